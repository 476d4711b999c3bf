package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshSession — одна выданная refresh-сессия.
//
// ID совпадает с jti внутри refresh-токена и является ключом поиска.
// Сырой токен на сервере не хранится — только его хэш (TokenHash).
// Revoked меняется монотонно false -> true и обратно не возвращается.
type RefreshSession struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	// UserAgent и IPAddress — справочные поля для аудита.
	UserAgent string
	IPAddress string
	CreatedAt time.Time
}
