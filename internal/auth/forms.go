package auth

import (
	"regexp"
	"sort"
	"strings"
)

// MinPasswordLength is the shortest password the sign-in forms accept.
const MinPasswordLength = 6

var (
	emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-()]+$`)
)

// ValidationError maps form fields to user-facing messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type fieldErrors map[string]string

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

// LoginForm is the sign-in form.
type LoginForm struct {
	Email    string
	Password string
}

// Validate checks the email format and the password length.
func (f LoginForm) Validate() error {
	errs := fieldErrors{}
	checkEmail(errs, f.Email, "Enter a valid email")
	switch {
	case f.Password == "":
		errs["password"] = "Password is required"
	case len(f.Password) < MinPasswordLength:
		errs["password"] = "Minimum 6 characters"
	}
	return errs.err()
}

// SignupForm is the registration form.
type SignupForm struct {
	Name            string
	Email           string
	Phone           string
	Password        string
	ConfirmPassword string
}

// Validate checks every signup field. Phone is optional.
func (f SignupForm) Validate() error {
	errs := fieldErrors{}
	if strings.TrimSpace(f.Name) == "" {
		errs["name"] = "Name is required"
	}
	checkEmail(errs, f.Email, "Enter valid email")
	if f.Phone != "" && !phonePattern.MatchString(f.Phone) {
		errs["phone"] = "Invalid phone number"
	}
	switch {
	case f.Password == "":
		errs["password"] = "Password required"
	case len(f.Password) < MinPasswordLength:
		errs["password"] = "Min 6 characters"
	}
	switch {
	case f.ConfirmPassword == "":
		errs["confirm_password"] = "Confirm password"
	case f.ConfirmPassword != f.Password:
		errs["confirm_password"] = "Passwords do not match"
	}
	return errs.err()
}

// ForgotPasswordForm is the password reset request form.
type ForgotPasswordForm struct {
	Email string
}

// Validate checks the email.
func (f ForgotPasswordForm) Validate() error {
	errs := fieldErrors{}
	checkEmail(errs, f.Email, "Please enter a valid email")
	return errs.err()
}

func checkEmail(errs fieldErrors, email, invalidMsg string) {
	switch {
	case strings.TrimSpace(email) == "":
		errs["email"] = "Email is required"
	case !emailPattern.MatchString(email):
		errs["email"] = invalidMsg
	}
}
