package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"service-desk/internal/config"
	"service-desk/internal/models"
	"service-desk/internal/rate"
	"service-desk/internal/service"
	"service-desk/internal/transport/http/handlers"
	"service-desk/internal/transport/http/middleware"
)

// Options — параметры сборки HTTP-роутера auth-сервиса.
type Options struct {
	Logger *slog.Logger
	// Timeout — общий дедлайн запроса; <=0 отключает мидлвар.
	Timeout time.Duration
	// LoginLimiter ограничивает POST /login; nil отключает лимит.
	LoginLimiter rate.Limiter
	Cookies      config.CookieConfig
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc *service.Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	h := handlers.New(svc, opts.Cookies)

	root.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Открытые роуты.
	root.Post("/register", h.Register)
	root.With(middleware.RateLimit(opts.LoginLimiter, "login")).Post("/login", h.Login)
	root.Post("/refresh", h.RefreshSession)
	root.Post("/logout", h.Logout)

	// Защищённые роуты: проверка токена + активности учётной записи.
	root.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(svc))

		r.Get("/me", h.Me)

		// Административные роуты — дополнительно роль ADMIN.
		r.Group(func(admin chi.Router) {
			admin.Use(middleware.RequireRole(models.RoleAdmin))
			admin.Get("/users", h.ListUsers)
			admin.Patch("/users/{id}/status", h.UpdateUserStatus)
		})
	})

	return root
}
