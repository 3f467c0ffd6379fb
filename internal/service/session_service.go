package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/pkg/api"
	"github.com/mmynk/splitledger/pkg/api/apiconnect"
)

// SessionService implements the mock sign-in screens.
type SessionService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	defaultViewer models.User
}

var _ apiconnect.SessionServiceHandler = (*SessionService)(nil)

// NewSessionService creates a session service. defaultViewer answers WhoAmI
// for requests without a session.
func NewSessionService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, defaultViewer models.User) *SessionService {
	return &SessionService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		defaultViewer: defaultViewer,
	}
}

// Login validates the form and opens a session.
func (s *SessionService) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error) {
	user, err := s.authenticator.SignIn(ctx, auth.LoginForm{
		Email:    req.Msg.Email,
		Password: req.Msg.Password,
	})
	if err != nil {
		slog.Warn("Login rejected", "error", err)
		return nil, toConnectError(err)
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		slog.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	slog.Info("User logged in", "user_id", user.ID)
	return connect.NewResponse(&api.LoginResponse{
		Token: token,
		User:  api.User{ID: user.ID, Name: user.Name},
	}), nil
}

// Signup validates the registration form and opens a session.
func (s *SessionService) Signup(ctx context.Context, req *connect.Request[api.SignupRequest]) (*connect.Response[api.SignupResponse], error) {
	user, err := s.authenticator.SignUp(ctx, auth.SignupForm{
		Name:            req.Msg.Name,
		Email:           req.Msg.Email,
		Phone:           req.Msg.Phone,
		Password:        req.Msg.Password,
		ConfirmPassword: req.Msg.ConfirmPassword,
	})
	if err != nil {
		slog.Warn("Signup rejected", "error", err)
		return nil, toConnectError(err)
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		slog.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	slog.Info("User signed up", "user_id", user.ID)
	return connect.NewResponse(&api.SignupResponse{
		Token: token,
		User:  api.User{ID: user.ID, Name: user.Name},
	}), nil
}

// ForgotPassword validates the email. No message is actually sent.
func (s *SessionService) ForgotPassword(ctx context.Context, req *connect.Request[api.ForgotPasswordRequest]) (*connect.Response[api.ForgotPasswordResponse], error) {
	if err := s.authenticator.RequestPasswordReset(ctx, auth.ForgotPasswordForm{Email: req.Msg.Email}); err != nil {
		return nil, toConnectError(err)
	}
	slog.Info("Password reset requested")
	return connect.NewResponse(&api.ForgotPasswordResponse{}), nil
}

// WhoAmI returns the session's user, or the default viewer without one.
func (s *SessionService) WhoAmI(ctx context.Context, req *connect.Request[api.WhoAmIRequest]) (*connect.Response[api.WhoAmIResponse], error) {
	user := api.User{ID: s.defaultViewer.ID, Name: s.defaultViewer.Name}
	if id := middleware.GetViewerID(ctx); id != "" {
		user = api.User{ID: id, Name: middleware.GetViewerName(ctx)}
	}
	return connect.NewResponse(&api.WhoAmIResponse{User: user}), nil
}
