package auth

import (
	"context"
	"fmt"

	"github.com/mmynk/splitledger/internal/models"
)

// Authenticator defines the interface for sign-in implementations.
// This abstraction allows swapping the mock flow for a real one
// without changing the service layer code.
type Authenticator interface {
	// SignIn returns the user a session should be opened for.
	SignIn(ctx context.Context, form LoginForm) (models.User, error)

	// SignUp registers the form's user and returns who the session is for.
	SignUp(ctx context.Context, form SignupForm) (models.User, error)

	// RequestPasswordReset starts a password reset for the form's email.
	RequestPasswordReset(ctx context.Context, form ForgotPasswordForm) error
}

// MockAuthenticator validates forms and then always signs in as one fixed
// viewer. It checks no credentials.
type MockAuthenticator struct {
	viewer models.User
}

// NewMockAuthenticator creates an authenticator that signs everyone in as viewer.
func NewMockAuthenticator(viewer models.User) *MockAuthenticator {
	return &MockAuthenticator{viewer: viewer}
}

func (a *MockAuthenticator) SignIn(_ context.Context, form LoginForm) (models.User, error) {
	if err := form.Validate(); err != nil {
		return models.User{}, err
	}
	return a.viewer, nil
}

func (a *MockAuthenticator) SignUp(_ context.Context, form SignupForm) (models.User, error) {
	if err := form.Validate(); err != nil {
		return models.User{}, err
	}
	return a.viewer, nil
}

func (a *MockAuthenticator) RequestPasswordReset(_ context.Context, form ForgotPasswordForm) error {
	if err := form.Validate(); err != nil {
		return fmt.Errorf("password reset: %w", err)
	}
	return nil
}
