package models

import (
	"time"

	"github.com/google/uuid"
)

// Роли пользователей. Других ролей в системе нет.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User — учётная запись в системе.
//
// Поля FailedLoginAttempts и LockUntil образуют состояние защиты от перебора:
// счётчик растёт на каждом неверном пароле и сбрасывается ТОЛЬКО успешным
// входом; истечение LockUntil счётчик не обнуляет.
type User struct {
	ID                  uuid.UUID
	Email               string
	PasswordHash        string
	Role                string
	IsActive            bool
	FailedLoginAttempts int
	// LockUntil == nil — блокировки нет.
	LockUntil *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LockedAt сообщает, заблокирована ли учётная запись на момент now.
func (u *User) LockedAt(now time.Time) bool {
	return u.LockUntil != nil && now.Before(*u.LockUntil)
}
