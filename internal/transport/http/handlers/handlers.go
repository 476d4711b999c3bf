package handlers

import (
	"encoding/json"
	"net/http"

	"service-desk/internal/config"
	"service-desk/internal/service"
)

// Handlers агрегирует зависимости HTTP-хендлеров auth-сервиса.
type Handlers struct {
	Service *service.Service
	Cookies config.CookieConfig
}

func New(svc *service.Service, cookies config.CookieConfig) *Handlers {
	return &Handlers{Service: svc, Cookies: cookies}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через httperr.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}
