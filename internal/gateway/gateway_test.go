package gateway

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"service-desk/internal/rate"

	"github.com/stretchr/testify/require"
)

// echoUpstream отвечает путём и Authorization-заголовком пришедшего запроса.
func echoUpstream(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Upstream-Path", r.URL.Path)
		w.Header().Set("X-Upstream-Auth", r.Header.Get("Authorization"))
		w.Header().Set("X-Upstream-Proto", r.Header.Get("X-Forwarded-Proto"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("upstream"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestGateway(t *testing.T, limiter rate.Limiter) (http.Handler, *httptest.Server, *httptest.Server) {
	t.Helper()

	auth := echoUpstream(t)
	api := echoUpstream(t)

	h, err := New(Options{
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Limiter:      limiter,
		AccessCookie: "sd_access",
		AuthUpstream: auth.URL,
		APIUpstream:  api.URL,
	})
	require.NoError(t, err)

	return h, auth, api
}

func TestGateway_StripsPrefixes(t *testing.T) {
	t.Parallel()

	h, _, _ := newTestGateway(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("X-Upstream-Path"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tickets/42", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "/tickets/42", rec.Header().Get("X-Upstream-Path"))
}

func TestGateway_CookieBridge_OnlyForAPI(t *testing.T) {
	t.Parallel()

	h, _, _ := newTestGateway(t, nil)

	// Cookie с access-токеном превращается в Authorization для /api.
	req := httptest.NewRequest(http.MethodGet, "/api/tickets", nil)
	req.AddCookie(&http.Cookie{Name: "sd_access", Value: "jwt-value"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "Bearer jwt-value", rec.Header().Get("X-Upstream-Auth"))

	// Для /auth заголовок не синтезируется.
	req = httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.AddCookie(&http.Cookie{Name: "sd_access", Value: "jwt-value"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("X-Upstream-Auth"))
}

func TestGateway_CookieBridge_KeepsClientHeader(t *testing.T) {
	t.Parallel()

	h, _, _ := newTestGateway(t, nil)

	// Явный Authorization клиента имеет приоритет над cookie.
	req := httptest.NewRequest(http.MethodGet, "/api/tickets", nil)
	req.Header.Set("Authorization", "Bearer explicit")
	req.AddCookie(&http.Cookie{Name: "sd_access", Value: "from-cookie"})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "Bearer explicit", rec.Header().Get("X-Upstream-Auth"))
}

func TestGateway_PrefixBudgetsIndependent(t *testing.T) {
	t.Parallel()

	h, _, _ := newTestGateway(t, rate.NewMemory(1, time.Minute))

	req := func(path string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		r.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec
	}

	require.Equal(t, http.StatusOK, req("/auth/login").Code)
	require.Equal(t, http.StatusTooManyRequests, req("/auth/login").Code)

	// Бюджет /api не тронут перебором /auth.
	require.Equal(t, http.StatusOK, req("/api/tickets").Code)
	require.Equal(t, http.StatusTooManyRequests, req("/api/tickets").Code)
}

func TestGateway_SetsForwardedProto(t *testing.T) {
	t.Parallel()

	h, _, _ := newTestGateway(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tickets", nil))
	require.Equal(t, "https", rec.Header().Get("X-Upstream-Proto"))
}

func TestGateway_Health(t *testing.T) {
	t.Parallel()

	h, _, _ := newTestGateway(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGateway_UnknownPath(t *testing.T) {
	t.Parallel()

	h, _, _ := newTestGateway(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/unknown", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGateway_BadUpstreamURL(t *testing.T) {
	t.Parallel()

	_, err := New(Options{AuthUpstream: "://broken", APIUpstream: "http://ok"})
	require.Error(t, err)
}
