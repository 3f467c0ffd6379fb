package models

// Group is a named collection of users sharing expenses together.
// Members keeps insertion order for display; semantically it is a set.
type Group struct {
	// ID is the unique identifier for the group.
	ID string `json:"id"`

	// Name is the display name of the group (e.g., "Trip", "Roommates").
	Name string `json:"name"`

	// Emoji is an optional icon shown next to the name.
	Emoji string `json:"emoji,omitempty"`

	// Members is the ordered list of users in this group.
	Members []User `json:"members"`
}

// Member returns the member with the given user ID.
func (g *Group) Member(userID string) (User, bool) {
	if g == nil {
		return User{}, false
	}
	for _, m := range g.Members {
		if m.ID == userID {
			return m, true
		}
	}
	return User{}, false
}

// FindGroup returns the first group with the given ID.
func FindGroup(groups []Group, groupID string) (*Group, bool) {
	for i := range groups {
		if groups[i].ID == groupID {
			return &groups[i], true
		}
	}
	return nil, false
}
