package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Farkhat1984/Trai-on/configs"
	"github.com/Farkhat1984/Trai-on/internal/httputil"
	"github.com/Farkhat1984/Trai-on/internal/logger"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	SubjectIDContextKey contextKey = "subjectID"
	RoleContextKey      contextKey = "role"
)

// Roles carried in the JWT "role" claim. Shops authenticate with the same
// bearer scheme as users; the subject id then refers to the shops table.
const (
	RoleUser  = "user"
	RoleShop  = "shop"
	RoleAdmin = "admin"
)

func Authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.WriteError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid authorization header")
			return
		}

		tokenStr := parts[1]

		token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return []byte(configs.AppConfig.JWT.SECRET), nil
		})
		if err != nil || !token.Valid {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}

		sub, ok := claims["sub"].(float64)
		if !ok {
			logger.Log.Error("jwt subject missing or wrong type")
			httputil.WriteError(w, http.StatusUnauthorized, "invalid token payload")
			return
		}
		role, _ := claims["role"].(string)
		if role == "" {
			role = RoleUser
		}

		ctx := context.WithValue(r.Context(), SubjectIDContextKey, uint(sub))
		ctx = context.WithValue(ctx, RoleContextKey, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a route to one role. Must run after Authenticated.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ := r.Context().Value(RoleContextKey).(string)
			if got != role {
				httputil.WriteError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SubjectID extracts the authenticated subject from the request context.
func SubjectID(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(SubjectIDContextKey).(uint)
	return id, ok
}
