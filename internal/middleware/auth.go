package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/campfolio/service/internal/response"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

// identityKey is the context key for the authenticated Identity.
const identityKey contextKey = "identity"

// Identity is the caller resolved from a bearer token.
type Identity struct {
	UserID string
	Role   string
}

// WithIdentity returns ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the Identity stored by RequireAuth or OptionalAuth.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

// RequireAuth returns middleware that validates a Bearer JWT and injects
// the caller identity into the request context.
func RequireAuth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "authorization header required")
				return
			}
			id, msg := parseBearer(authHeader, jwtSecret)
			if msg != "" {
				response.Unauthorized(w, msg)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// OptionalAuth injects the identity when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalAuth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if h := r.Header.Get("Authorization"); h != "" {
				if id, msg := parseBearer(h, jwtSecret); msg == "" {
					r = r.WithContext(WithIdentity(r.Context(), id))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole rejects authenticated callers without the given role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				response.Unauthorized(w, "unauthorized")
				return
			}
			if id.Role != role {
				response.Forbidden(w, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// parseBearer returns the identity in header, or a client-facing message.
func parseBearer(header, jwtSecret string) (Identity, string) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return Identity{}, "invalid authorization header format"
	}

	token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return Identity{}, "invalid or expired token"
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, "invalid token claims"
	}
	userID, _ := claims["sub"].(string)
	if userID == "" {
		return Identity{}, "invalid token claims"
	}
	role, _ := claims["role"].(string)
	return Identity{UserID: userID, Role: role}, ""
}
