package handlers

import (
	"net/http"
	"time"

	"service-desk/internal/models"
	"service-desk/internal/transport/http/httperr"
	"service-desk/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type userDetail struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type userStatusRequest struct {
	IsActive *bool `json:"is_active"`
}

func toUserDetail(u *models.User) userDetail {
	return userDetail{
		ID:        u.ID.String(),
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// Me — GET /me: сводка по текущему пользователю.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		httperr.Write(w, r, http.StatusUnauthorized, "unauthenticated", "unauthorized")
		return
	}

	user, err := h.Service.UserByID(r.Context(), claims.Subject)
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserDetail(user))
}

// ListUsers — GET /users (ADMIN): все пользователи, новые — первыми.
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.ListUsers(r.Context())
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	out := make([]userDetail, 0, len(users))
	for i := range users {
		out = append(out, toUserDetail(&users[i]))
	}

	writeJSON(w, http.StatusOK, out)
}

// UpdateUserStatus — PATCH /users/{id}/status (ADMIN): включает/выключает
// учётную запись.
func (h *Handlers) UpdateUserStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r.Context())
	if !ok {
		httperr.Write(w, r, http.StatusUnauthorized, "unauthenticated", "unauthorized")
		return
	}

	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httperr.Write(w, r, http.StatusBadRequest, "invalid_argument", "invalid user id")
		return
	}

	var in userStatusRequest
	if err := decodeStrict(r, &in); err != nil || in.IsActive == nil {
		httperr.Write(w, r, http.StatusBadRequest, "invalid_argument", "invalid payload")
		return
	}

	if err := h.Service.SetUserStatus(r.Context(), claims.Subject, targetID, *in.IsActive); err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "updated"})
}
