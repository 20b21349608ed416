package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// TokenValidator validates bearer tokens presented to guarded routes.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims are the token claims the middleware propagates into the
// request context.
type Claims struct {
	Subject string
}

type contextKeySubject struct{}

// GetSubject retrieves the authenticated subject from the context.
func GetSubject(ctx context.Context) string {
	subject, _ := ctx.Value(contextKeySubject{}).(string)
	return subject
}

// HS256Validator validates HS256-signed tokens against a shared key.
type HS256Validator struct {
	key []byte
}

func NewHS256Validator(key string) *HS256Validator {
	return &HS256Validator{key: []byte(key)}
}

func (v *HS256Validator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return &Claims{Subject: subject}, nil
}

// RequireAuth rejects requests without a valid bearer token and places
// the token subject in the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "request without bearer token",
					"request_id", GetRequestID(ctx), "path", r.URL.Path)
				unauthorized(w, "missing or malformed Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "request with invalid bearer token",
					"request_id", GetRequestID(ctx), "path", r.URL.Path, "error", err)
				unauthorized(w, "invalid or expired token")
				return
			}

			ctx = context.WithValue(ctx, contextKeySubject{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"error":"unauthorized","error_description":%q}`, description)
}
