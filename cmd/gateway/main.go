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

	"service-desk/internal/config"
	"service-desk/internal/gateway"
	"service-desk/internal/rate"
)

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
	log.Info("starting gateway", "env", cfg.Env)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	limiter, closeLimiter, err := newGatewayLimiter(cfg.Limits)
	if err != nil {
		log.Error("rate_limiter_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer closeLimiter()

	handler, err := gateway.New(gateway.Options{
		Logger:       log,
		Limiter:      limiter,
		AccessCookie: cfg.Cookies.AccessName,
		AuthUpstream: cfg.Gateway.AuthUpstream,
		APIUpstream:  cfg.Gateway.APIUpstream,
	})
	if err != nil {
		log.Error("gateway_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	addr := cfg.Gateway.Addr()
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	useTLS := cfg.Gateway.TLSCertPath != "" && cfg.Gateway.TLSKeyPath != ""

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error("listen_failed", slog.String("addr", addr), slog.String("err", err.Error()))
		os.Exit(1)
	}

	serveErrCh := make(chan error, 1)
	go func() {
		var serveErr error
		if useTLS {
			log.Info("https_listen_start", slog.String("addr", addr))
			serveErr = httpSrv.ServeTLS(ln, cfg.Gateway.TLSCertPath, cfg.Gateway.TLSKeyPath)
		} else {
			log.Info("http_listen_start", slog.String("addr", addr))
			serveErr = httpSrv.Serve(ln)
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			serveErrCh <- serveErr
		}
		close(serveErrCh)
	}()

	// Plain-HTTP листенер с постоянным редиректом на HTTPS. Нужен только
	// вместе с TLS.
	var redirectSrv *http.Server
	if useTLS {
		redirectSrv = newRedirectServer(cfg.Gateway)
		go func() {
			log.Info("redirect_listen_start", slog.String("addr", redirectSrv.Addr))
			if err := redirectSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("redirect_serve_failed", slog.String("err", err.Error()))
			}
		}()
	}

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("serve_failed", slog.String("err", err.Error()))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	if redirectSrv != nil {
		_ = redirectSrv.Shutdown(shutdownCtx)
	}

	log.Info("service_stopped")
}

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

// newGatewayLimiter выбирает бэкенд лимитера периметра.
func newGatewayLimiter(limits config.LimitsConfig) (rate.Limiter, func(), error) {
	if limits.RedisURL == "" {
		return rate.NewMemory(limits.GatewayMax, limits.GatewayWindow), func() {}, nil
	}

	rl, err := rate.NewRedis(limits.RedisURL, limits.GatewayMax, limits.GatewayWindow, "sd:rl:gw:")
	if err != nil {
		return nil, nil, err
	}

	return rl, func() { _ = rl.Close() }, nil
}

// newRedirectServer отвечает 301 на https-адрес периметра на любой запрос.
func newRedirectServer(cfg config.GatewayConfig) *http.Server {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}

		target := "https://" + net.JoinHostPort(host, cfg.Port) + r.URL.RequestURI()
		http.Redirect(w, r, target, http.StatusMovedPermanently)
	})

	return &http.Server{
		Addr:              cfg.RedirectAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
