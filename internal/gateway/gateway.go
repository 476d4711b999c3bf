// gateway — периметр системы: принимает браузерные запросы,
// превращает HttpOnly-cookie с access-токеном в стандартный
// Authorization-заголовок для внутренних сервисов, ограничивает частоту
// запросов по префиксам и проксирует трафик к апстримам.
//
// Внутренние сервисы остаются чисто header-based: браузер не хранит
// access-токен в доступном скриптам месте, а апстримы не знают о cookie.
package gateway

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	logctx "service-desk/internal/pkg/log"
	"service-desk/internal/rate"
	"service-desk/internal/transport/http/httperr"
	"service-desk/internal/transport/http/middleware"
)

// Префиксы периметра. Бюджеты rate-limit'а у них независимые.
const (
	authPrefix = "/auth"
	apiPrefix  = "/api"
)

// Options — параметры сборки периметра.
type Options struct {
	Logger  *slog.Logger
	Limiter rate.Limiter
	// AccessCookie — имя cookie, из которого собирается bearer-заголовок.
	AccessCookie string
	AuthUpstream string
	APIUpstream  string
}

// New собирает http.Handler периметра.
func New(opts Options) (http.Handler, error) {
	authURL, err := url.Parse(opts.AuthUpstream)
	if err != nil {
		return nil, err
	}

	apiURL, err := url.Parse(opts.APIUpstream)
	if err != nil {
		return nil, err
	}

	root := chi.NewRouter()

	root.Use(
		middleware.Recover(),
		middleware.RequestID(),
		middleware.Logging(opts.Logger),
	)

	root.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Бюджеты лимитера на /auth и /api разведены, чтобы перебор одного
	// префикса не исчерпал бюджет другого.
	root.Route(authPrefix, func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.Limiter, "auth"))
		r.Handle("/*", newProxy(authURL, authPrefix))
	})

	root.Route(apiPrefix, func(r chi.Router) {
		r.Use(
			middleware.RateLimit(opts.Limiter, "api"),
			cookieBridge(opts.AccessCookie),
		)
		r.Handle("/*", newProxy(apiURL, apiPrefix))
	})

	root.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httperr.Write(w, r, http.StatusNotFound, "not_found", "not found")
	})

	return root, nil
}

// cookieBridge синтезирует Authorization из HttpOnly-cookie для защищённого
// префикса. Уже присланный клиентом заголовок не перетирается.
func cookieBridge(cookieName string) middleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
					r.Header.Set("Authorization", "Bearer "+cookie.Value)
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// newProxy — reverse proxy к апстриму со срезанием префикса периметра.
func newProxy(target *url.URL, prefix string) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)

			path := strings.TrimPrefix(pr.In.URL.Path, prefix)
			if !strings.HasPrefix(path, "/") {
				path = "/" + path
			}
			pr.Out.URL.Path = path
			pr.Out.URL.RawPath = ""

			pr.SetXForwarded()
			pr.Out.Header.Set("X-Forwarded-Proto", "https")
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logctx.From(r.Context()).Error("proxy_error",
				slog.String("path", r.URL.Path),
				slog.String("err", err.Error()),
			)
			httperr.Write(w, r, http.StatusBadGateway, "bad_gateway", "bad gateway")
		},
	}
}
