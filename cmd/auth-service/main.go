package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"service-desk/internal/audit"
	"service-desk/internal/config"
	"service-desk/internal/rate"
	"service-desk/internal/service"
	"service-desk/internal/storage"
	"service-desk/internal/storage/postgres"
	httptransport "service-desk/internal/transport/http"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting auth-service", "env", cfg.Env)

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	// Подключение к БД c таймаутом.
	dbCtx, dbCancel := context.WithTimeout(rootCtx, 10*time.Second)
	str, err := postgres.New(dbCtx, cfg.DB.DatabaseURL)
	dbCancel()
	if err != nil {
		log.Error("postgres_connect_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer str.Close()
	log.Info("postgres_connected")

	srvc := service.New(str, cfg.Auth, audit.New(str))
	log.Info("service_initialized")

	// Лимитер логина: Redis при наличии общего бэкенда, иначе память процесса.
	loginLimiter, closeLimiter, err := newLoginLimiter(cfg.Limits)
	if err != nil {
		log.Error("rate_limiter_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer closeLimiter()

	handler := httptransport.NewRouter(srvc, httptransport.Options{
		Logger:       log,
		Timeout:      cfg.Timeouts.Service,
		LoginLimiter: loginLimiter,
		Cookies:      cfg.Cookies,
	})

	// Фоновая очистка просроченных refresh-сессий.
	startSessionJanitor(rootCtx, str, log, 30*time.Minute)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}
	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	// Ожидание сигнала завершения или фатальной ошибки сервера.
	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	log.Info("service_stopped")
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

// newLoginLimiter выбирает бэкенд лимитера POST /login.
func newLoginLimiter(limits config.LimitsConfig) (rate.Limiter, func(), error) {
	if limits.RedisURL == "" {
		return rate.NewMemory(limits.LoginMax, limits.LoginWindow), func() {}, nil
	}

	rl, err := rate.NewRedis(limits.RedisURL, limits.LoginMax, limits.LoginWindow, "sd:rl:login:")
	if err != nil {
		return nil, nil, err
	}

	return rl, func() { _ = rl.Close() }, nil
}

// startSessionJanitor запускает фоновую задачу, которая периодически удаляет
// просроченные refresh-сессии из хранилища.
func startSessionJanitor(ctx context.Context, str storage.Storage, log *slog.Logger, period time.Duration) {
	if period <= 0 {
		return
	}

	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := str.DeleteExpiredSessions(ctx, time.Now().UTC()); err != nil {
					log.Error("session_janitor_failed", slog.String("err", err.Error()))
				}
			}
		}
	}()
}
