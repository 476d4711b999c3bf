package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditEvent — запись журнала действий.
// UserID может быть uuid.Nil, если действие не привязано к пользователю.
type AuditEvent struct {
	UserID    uuid.UUID
	Action    string
	Metadata  map[string]any
	CreatedAt time.Time
}
