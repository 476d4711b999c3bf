package middleware

import (
	"context"
	"net/http"
	"strings"

	"service-desk/internal/models"
	"service-desk/internal/transport/http/httperr"
)

// Authenticator проверяет access-токен и статус его субъекта.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.AccessClaims, error)
}

type claimsKey struct{}

// ClaimsFrom достаёт проверенные claims из контекста запроса.
func ClaimsFrom(ctx context.Context) (*models.AccessClaims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*models.AccessClaims)
	return c, ok
}

// Authenticate — цепочка допуска к защищённым роутам:
//  1. извлечь bearer-токен из Authorization (нет/битый -> 401);
//  2. проверить подпись и срок (невалиден -> 401);
//  3. проверить, что учётная запись существует и активна (нет -> 403).
//
// Проверенные claims кладутся в контекст запроса и никогда не
// разделяются между запросами.
func Authenticate(auth Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				httperr.Write(w, r, http.StatusUnauthorized, "unauthenticated", "unauthorized")
				return
			}

			claims, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				httperr.WriteError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole пропускает только запросы с заданной ролью в claims.
// Ставится строго после Authenticate.
func RequireRole(role string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFrom(r.Context())
			if !ok || claims.Role != role {
				httperr.Write(w, r, http.StatusForbidden, "permission_denied", "forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}

	token := strings.TrimSpace(auth[len(prefix):])
	if token == "" {
		return "", false
	}

	return token, true
}
