package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dazzlersden/backend/internal/services"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

type contextKey string

const adminIDKey contextKey = "adminID"

// AuthConfig controls the admin identity check.
type AuthConfig struct {
	Enabled   bool
	SecretKey string
}

func GetAuthConfig() AuthConfig {
	viper.SetDefault("auth.enabled", true)

	return AuthConfig{
		Enabled:   viper.GetBool("auth.enabled"),
		SecretKey: viper.GetString("jwt.secret_key"),
	}
}

// AuthMiddleware resolves the acting admin from a Bearer JWT. With auth
// disabled every request passes through without an admin.
func AuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				services.SendErrorResponse(w, "Authorization header required", http.StatusUnauthorized, nil)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				services.SendErrorResponse(w, "Invalid authorization header format", http.StatusUnauthorized, nil)
				return
			}

			adminID, err := validateToken(parts[1], cfg.SecretKey)
			if err != nil {
				services.SendErrorResponse(w, "Invalid token", http.StatusUnauthorized, nil)
				return
			}

			ctx := WithAdminID(r.Context(), adminID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithAdminID returns a context carrying the acting admin.
func WithAdminID(ctx context.Context, adminID int64) context.Context {
	return context.WithValue(ctx, adminIDKey, adminID)
}

// AdminIDFromContext returns the acting admin, or nil in unauthenticated mode.
func AdminIDFromContext(ctx context.Context) *int64 {
	id, ok := ctx.Value(adminIDKey).(int64)
	if !ok {
		return nil
	}
	return &id
}

func validateToken(tokenString, secret string) (int64, error) {
	if secret == "" {
		return 0, errors.New("jwt secret is not configured")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, err
	}
	if !token.Valid {
		return 0, errors.New("token is not valid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errors.New("unexpected claims type")
	}

	raw, ok := claims["admin_id"]
	if !ok {
		raw, ok = claims["user_id"]
	}
	if !ok {
		return 0, errors.New("token carries no admin id")
	}

	switch v := raw.(type) {
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported admin id claim %T", raw)
	}
}
