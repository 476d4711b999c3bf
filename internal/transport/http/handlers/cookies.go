package handlers

import (
	"net/http"
	"time"

	"service-desk/internal/models"
)

// Сессионные cookie: HttpOnly + SameSite=Strict всегда, Secure — из
// конфигурации (выключается только в локальной разработке). max-age
// каждого cookie совпадает с TTL соответствующего токена.
func (h *Handlers) setAuthCookies(w http.ResponseWriter, pair *models.TokenPair) {
	now := time.Now()

	http.SetCookie(w, &http.Cookie{
		Name:     h.Cookies.AccessName,
		Value:    pair.AccessToken,
		MaxAge:   maxAge(now, pair.AccessExpiresAt),
		Domain:   h.Cookies.Domain,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.Cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     h.Cookies.RefreshName,
		Value:    pair.RefreshToken,
		MaxAge:   maxAge(now, pair.RefreshExpiresAt),
		Domain:   h.Cookies.Domain,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.Cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearAuthCookies сбрасывает оба cookie. Вызывается из logout всегда,
// даже если refresh-токен не удалось разобрать или отозвать.
func (h *Handlers) clearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{h.Cookies.AccessName, h.Cookies.RefreshName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			MaxAge:   -1,
			Domain:   h.Cookies.Domain,
			Path:     "/",
			HttpOnly: true,
			Secure:   h.Cookies.Secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

func maxAge(now time.Time, expiresAt time.Time) int {
	age := int(expiresAt.Sub(now) / time.Second)
	if age < 1 {
		age = 1
	}

	return age
}
