package middleware

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ViewerIDKey is the context key for the id of the user viewing the ledger.
	ViewerIDKey contextKey = "viewer_id"
	// ViewerNameKey is the context key for the viewer's display name.
	ViewerNameKey contextKey = "viewer_name"
)

// GetViewerID extracts the viewer id from the context.
// Returns empty string if not found.
func GetViewerID(ctx context.Context) string {
	id, _ := ctx.Value(ViewerIDKey).(string)
	return id
}

// GetViewerName extracts the viewer name from the context.
func GetViewerName(ctx context.Context) string {
	name, _ := ctx.Value(ViewerNameKey).(string)
	return name
}

// WithViewer returns a context carrying the given viewer.
func WithViewer(ctx context.Context, id, name string) context.Context {
	ctx = context.WithValue(ctx, ViewerIDKey, id)
	return context.WithValue(ctx, ViewerNameKey, name)
}

func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// OptionalAuth sets the viewer from a valid bearer token and otherwise
// lets the request through untouched. Invalid tokens are ignored.
func OptionalAuth(jwtManager *auth.JWTManager) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if token, ok := bearerToken(req.Header().Get("Authorization")); ok {
				if claims, err := jwtManager.Validate(token); err == nil {
					ctx = WithViewer(ctx, claims.UserID, claims.Name)
				}
			}
			return next(ctx, req)
		}
	}
}
