// Package events publishes expense change notifications.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Type names an expense change.
type Type string

const (
	ExpenseCreated Type = "expense.created"
	ExpenseUpdated Type = "expense.updated"
	ExpenseDeleted Type = "expense.deleted"
)

// Event describes one change to the expense collection.
type Event struct {
	Type      Type      `json:"type"`
	ExpenseID string    `json:"expense_id"`
	GroupID   string    `json:"group_id,omitempty"`
	ViewerID  string    `json:"viewer_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// New builds an event stamped with the current time.
func New(t Type, expenseID, groupID, viewerID string) Event {
	return Event{
		Type:      t,
		ExpenseID: expenseID,
		GroupID:   groupID,
		ViewerID:  viewerID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events. Callers treat failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// LogPublisher writes events to a structured logger.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher returns a publisher logging through logger, or the
// default logger when nil.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.InfoContext(ctx, "Expense event",
		"type", event.Type,
		"expense_id", event.ExpenseID,
		"group_id", event.GroupID,
		"viewer_id", event.ViewerID,
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) Close() error { return nil }
