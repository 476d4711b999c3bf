package handlers

import (
	"net/http"

	"service-desk/internal/service"
	"service-desk/internal/transport/http/httperr"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type loginResponse struct {
	AccessToken string      `json:"accessToken"`
	User        userSummary `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Register — POST /register: создаёт учётную запись. Токены не выдаёт.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decodeStrict(r, &in); err != nil {
		httperr.Write(w, r, http.StatusBadRequest, "invalid_argument", "invalid payload")
		return
	}

	user, err := h.Service.RegisterUser(r.Context(), in.Email, in.Password)
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, userSummary{
		ID:    user.ID.String(),
		Email: user.Email,
		Role:  user.Role,
	})
}

// Login — POST /login: вход по email+пароль, выставляет сессионные cookie.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(r, &in); err != nil {
		httperr.Write(w, r, http.StatusBadRequest, "invalid_argument", "invalid payload")
		return
	}

	meta := service.ClientMeta{
		UserAgent: r.UserAgent(),
		IP:        clientIP(r),
	}

	pair, user, err := h.Service.LoginUser(r.Context(), in.Email, in.Password, meta)
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	h.setAuthCookies(w, pair)
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: pair.AccessToken,
		User: userSummary{
			ID:    user.ID.String(),
			Email: user.Email,
			Role:  user.Role,
		},
	})
}

// RefreshSession — POST /refresh: одноразовая ротация refresh-сессии
// по cookie, выставляет новую пару cookie.
func (h *Handlers) RefreshSession(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.Cookies.RefreshName)
	if err != nil || cookie.Value == "" {
		httperr.Write(w, r, http.StatusUnauthorized, "unauthenticated", "missing refresh token")
		return
	}

	meta := service.ClientMeta{
		UserAgent: r.UserAgent(),
		IP:        clientIP(r),
	}

	pair, _, err := h.Service.Refresh(r.Context(), cookie.Value, meta)
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	h.setAuthCookies(w, pair)
	writeJSON(w, http.StatusOK, messageResponse{Message: "refreshed"})
}

// Logout — POST /logout: best-effort отзыв сессии.
// Cookie очищаются и ответ успешен независимо от судьбы токена.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.Cookies.RefreshName); err == nil && cookie.Value != "" {
		h.Service.Logout(r.Context(), cookie.Value)
	}

	h.clearAuthCookies(w)
	writeJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}

// clientIP — адрес клиента для аудита: X-Forwarded-For от периметра,
// иначе RemoteAddr.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}

	return r.RemoteAddr
}
