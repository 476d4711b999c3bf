package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	logctx "service-desk/internal/pkg/log"
	"service-desk/internal/rate"
	"service-desk/internal/transport/http/httperr"
)

// RateLimit ограничивает частоту запросов по ключу clientIP(r)+":"+scope.
// scope разводит бюджеты разных групп роутов: исчерпание лимита на одном
// префиксе не съедает бюджет другого. При отказе — 429 и Retry-After.
//
// Ошибка бэкенда (например, недоступный Redis) пропускает запрос:
// деградация лимитера не должна превращаться в отказ всего сервиса.
func RateLimit(l rate.Limiter, scope string) Middleware {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r) + ":" + scope

			allowed, retryAfter, err := l.Allow(r.Context(), key, time.Now())
			if err != nil {
				logctx.From(r.Context()).Warn("rate_limiter_failed",
					slog.String("scope", scope),
					slog.String("err", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				secs := int(retryAfter / time.Second)
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				httperr.Write(w, r, http.StatusTooManyRequests, "resource_exhausted", "too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP извлекает адрес клиента: X-Forwarded-For от периметра,
// иначе RemoteAddr без порта.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
