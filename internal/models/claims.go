package models

import (
	"time"

	"github.com/google/uuid"
)

// AccessClaims — проверенные данные access-токена.
// Нигде не сохраняются: живут только в контексте запроса.
type AccessClaims struct {
	Subject   uuid.UUID
	Role      string
	Email     string
	ExpiresAt time.Time
}
