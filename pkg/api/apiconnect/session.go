package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/pkg/api"
)

// SessionServiceHandler is implemented by the session service.
type SessionServiceHandler interface {
	Login(context.Context, *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error)
	Signup(context.Context, *connect.Request[api.SignupRequest]) (*connect.Response[api.SignupResponse], error)
	ForgotPassword(context.Context, *connect.Request[api.ForgotPasswordRequest]) (*connect.Response[api.ForgotPasswordResponse], error)
	WhoAmI(context.Context, *connect.Request[api.WhoAmIRequest]) (*connect.Response[api.WhoAmIResponse], error)
}

// NewSessionServiceHandler builds an HTTP handler for svc.
func NewSessionServiceHandler(svc SessionServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	o := handlerOptions(opts)
	return "/" + SessionServiceName + "/", serviceMux(map[string]*connect.Handler{
		SessionServiceLoginProcedure:          connect.NewUnaryHandler(SessionServiceLoginProcedure, svc.Login, o),
		SessionServiceSignupProcedure:         connect.NewUnaryHandler(SessionServiceSignupProcedure, svc.Signup, o),
		SessionServiceForgotPasswordProcedure: connect.NewUnaryHandler(SessionServiceForgotPasswordProcedure, svc.ForgotPassword, o),
		SessionServiceWhoAmIProcedure:         connect.NewUnaryHandler(SessionServiceWhoAmIProcedure, svc.WhoAmI, o),
	})
}

// SessionServiceClient is a client for the session service.
type SessionServiceClient struct {
	login          *connect.Client[api.LoginRequest, api.LoginResponse]
	signup         *connect.Client[api.SignupRequest, api.SignupResponse]
	forgotPassword *connect.Client[api.ForgotPasswordRequest, api.ForgotPasswordResponse]
	whoAmI         *connect.Client[api.WhoAmIRequest, api.WhoAmIResponse]
}

// NewSessionServiceClient constructs a client for the service at baseURL.
func NewSessionServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *SessionServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	o := clientOptions(opts)
	return &SessionServiceClient{
		login:          connect.NewClient[api.LoginRequest, api.LoginResponse](httpClient, baseURL+SessionServiceLoginProcedure, o),
		signup:         connect.NewClient[api.SignupRequest, api.SignupResponse](httpClient, baseURL+SessionServiceSignupProcedure, o),
		forgotPassword: connect.NewClient[api.ForgotPasswordRequest, api.ForgotPasswordResponse](httpClient, baseURL+SessionServiceForgotPasswordProcedure, o),
		whoAmI:         connect.NewClient[api.WhoAmIRequest, api.WhoAmIResponse](httpClient, baseURL+SessionServiceWhoAmIProcedure, o),
	}
}

func (c *SessionServiceClient) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error) {
	return c.login.CallUnary(ctx, req)
}

func (c *SessionServiceClient) Signup(ctx context.Context, req *connect.Request[api.SignupRequest]) (*connect.Response[api.SignupResponse], error) {
	return c.signup.CallUnary(ctx, req)
}

func (c *SessionServiceClient) ForgotPassword(ctx context.Context, req *connect.Request[api.ForgotPasswordRequest]) (*connect.Response[api.ForgotPasswordResponse], error) {
	return c.forgotPassword.CallUnary(ctx, req)
}

func (c *SessionServiceClient) WhoAmI(ctx context.Context, req *connect.Request[api.WhoAmIRequest]) (*connect.Response[api.WhoAmIResponse], error) {
	return c.whoAmI.CallUnary(ctx, req)
}
