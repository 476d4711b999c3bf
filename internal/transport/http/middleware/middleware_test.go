package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"service-desk/internal/models"
	"service-desk/internal/rate"
	"service-desk/internal/service"
	"service-desk/internal/transport/http/httperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// capHandler перехватывает записи slog для проверок в тестах.
type capHandler struct {
	base    []slog.Attr
	lastMsg string
	lastLvl slog.Level
	attrs   map[string]any
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	out := make(map[string]any, len(h.base)+8)
	for _, a := range h.base {
		out[a.Key] = a.Value.Any()
	}

	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})

	h.lastMsg = r.Message
	h.lastLvl = r.Level
	h.attrs = out
	return nil
}

func (h *capHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.base = append(h.base, attrs...)
	return h
}

func (h *capHandler) WithGroup(string) slog.Handler { return h }

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) httperr.ErrorResponse {
	t.Helper()
	var resp httperr.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func TestChain_OrderIsOuterToInner(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(okHandler(), mark("outer"), mark("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"outer", "inner"}, order)
}

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	t.Parallel()

	var seen string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Request-Id")
	}), RequestID())

	// Сгенерированный id: 32 hex-символа, в ответе и в запросе один и тот же.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Len(t, seen, 32)
	require.Equal(t, seen, rec.Header().Get("X-Request-Id"))

	// Присланный клиентом id сохраняется.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "rid-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "rid-123", seen)
	require.Equal(t, "rid-123", rec.Header().Get("X-Request-Id"))
}

func TestLogging_WritesRequestRecord(t *testing.T) {
	t.Parallel()

	h := &capHandler{}
	logger := slog.New(h)

	handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("body"))
	}), Logging(logger))

	req := httptest.NewRequest(http.MethodPost, "/register", nil)
	req.Header.Set("X-Request-Id", "rid-123")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, "http", h.lastMsg)
	require.Equal(t, slog.LevelInfo, h.lastLvl)
	require.Equal(t, "rid-123", h.attrs["request_id"])
	require.Equal(t, http.MethodPost, h.attrs["method"])
	require.Equal(t, "/register", h.attrs["path"])
	require.Equal(t, int64(201), h.attrs["status"])
	require.Equal(t, int64(4), h.attrs["bytes"])
}

func TestRecover_ConvertsPanicTo500(t *testing.T) {
	t.Parallel()

	handler := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), Recover())

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeErr(t, rec)
	require.Equal(t, "internal", resp.Error.Code)
	// Текст паники не утекает на клиент.
	require.NotContains(t, rec.Body.String(), "boom")
}

func TestTimeout_SetsDeadlineOnlyWhenAbsent(t *testing.T) {
	t.Parallel()

	var deadline time.Time
	var ok bool
	inner := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	})

	Chain(inner, Timeout(time.Second)).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(time.Second), deadline, 100*time.Millisecond)

	// Существующий (более ранний) deadline не перетирается.
	parent, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(parent)

	Chain(inner, Timeout(time.Hour)).ServeHTTP(httptest.NewRecorder(), req)
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(100*time.Millisecond), deadline, 50*time.Millisecond)
}

// fakeAuth реализует Authenticator без поднятия всего сервиса.
type fakeAuth struct {
	claims *models.AccessClaims
	err    error
}

func (f *fakeAuth) Authenticate(context.Context, string) (*models.AccessClaims, error) {
	return f.claims, f.err
}

func TestAuthenticate_MissingOrMalformedHeader(t *testing.T) {
	t.Parallel()

	handler := Chain(okHandler(), Authenticate(&fakeAuth{}))

	for _, header := range []string{"", "Basic abc", "Bearer ", "Bearer"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "header=%q", header)
		require.Equal(t, "unauthenticated", decodeErr(t, rec).Error.Code)
	}
}

func TestAuthenticate_ServiceErrorsMapped(t *testing.T) {
	t.Parallel()

	// Невалидный токен -> 401, деактивированная учётная запись -> 403.
	cases := []struct {
		err      error
		wantCode int
	}{
		{service.ErrInvalidToken, http.StatusUnauthorized},
		{service.ErrTokenExpired, http.StatusUnauthorized},
		{service.ErrAccountDisabled, http.StatusForbidden},
		{errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		handler := Chain(okHandler(), Authenticate(&fakeAuth{err: tc.err}))

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer some-token")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, tc.wantCode, rec.Code, "err=%v", tc.err)
	}
}

func TestAuthenticate_PutsClaimsIntoContext(t *testing.T) {
	t.Parallel()

	want := &models.AccessClaims{
		Subject: uuid.New(),
		Role:    models.RoleAdmin,
		Email:   "admin@example.com",
	}

	var got *models.AccessClaims
	inner := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, _ = ClaimsFrom(r.Context())
	})

	handler := Chain(inner, Authenticate(&fakeAuth{claims: want}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, want, got)
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	admin := &models.AccessClaims{Subject: uuid.New(), Role: models.RoleAdmin}
	user := &models.AccessClaims{Subject: uuid.New(), Role: models.RoleUser}

	handler := Chain(okHandler(), Authenticate(&fakeAuth{claims: admin}), RequireRole(models.RoleAdmin))
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Роль USER не проходит.
	handler = Chain(okHandler(), Authenticate(&fakeAuth{claims: user}), RequireRole(models.RoleAdmin))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "permission_denied", decodeErr(t, rec).Error.Code)

	// Без Authenticate claims нет вовсе.
	handler = Chain(okHandler(), RequireRole(models.RoleAdmin))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRateLimit_RejectsOverLimit(t *testing.T) {
	t.Parallel()

	handler := Chain(okHandler(), RateLimit(rate.NewMemory(2, time.Minute), "login"))

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Equal(t, "resource_exhausted", decodeErr(t, rec).Error.Code)
}

func TestRateLimit_ScopesAndClientsIndependent(t *testing.T) {
	t.Parallel()

	limiter := rate.NewMemory(1, time.Minute)
	loginHandler := Chain(okHandler(), RateLimit(limiter, "login"))
	otherHandler := Chain(okHandler(), RateLimit(limiter, "api"))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	loginHandler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	loginHandler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Другой scope с тем же клиентом — свой бюджет.
	rec = httptest.NewRecorder()
	otherHandler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Другой клиент в исчерпанном scope — свой бюджет.
	req2 := httptest.NewRequest(http.MethodPost, "/", nil)
	req2.RemoteAddr = "10.0.0.2:1234"
	rec = httptest.NewRecorder()
	loginHandler.ServeHTTP(rec, req2)
	require.Equal(t, http.StatusOK, rec.Code)
}

// brokenLimiter всегда возвращает ошибку бэкенда.
type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string, time.Time) (bool, time.Duration, error) {
	return false, 0, errors.New("redis down")
}

func TestRateLimit_FailsOpenOnBackendError(t *testing.T) {
	t.Parallel()

	handler := Chain(okHandler(), RateLimit(brokenLimiter{}, "login"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_NilLimiterIsNoop(t *testing.T) {
	t.Parallel()

	handler := Chain(okHandler(), RateLimit(nil, "login"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
