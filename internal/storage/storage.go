package storage

import (
	"context"
	"errors"
	"time"

	"service-desk/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrNotFound — запись не найдена (пользователь/сессия).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email/id сессии).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции над пользователями.
// Поля identity и lockout мутируются только через этот интерфейс.
type UserStorage interface {
	// SaveUser создаёт нового пользователя в БД.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по email.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// ListUsers возвращает всех пользователей (новые — первыми).
	ListUsers(ctx context.Context) ([]models.User, error)
	// UpdateUserStatus выставляет is_active. Идемпотентна.
	UpdateUserStatus(ctx context.Context, id uuid.UUID, active bool) error
	// RecordLoginFailure записывает новое значение счётчика неудачных
	// попыток и, при достижении порога, момент снятия блокировки.
	RecordLoginFailure(ctx context.Context, id uuid.UUID, attempts int, lockUntil *time.Time) error
	// ResetLoginFailures обнуляет счётчик и снимает блокировку.
	// Единственный путь возврата из состояния Locked.
	ResetLoginFailures(ctx context.Context, id uuid.UUID) error
}

// RefreshSessionStorage — журнал выданных refresh-сессий.
type RefreshSessionStorage interface {
	// SaveRefreshSession сохраняет новую сессию.
	SaveRefreshSession(ctx context.Context, session *models.RefreshSession) error
	// RefreshSessionByID находит сессию по её идентификатору (jti).
	RefreshSessionByID(ctx context.Context, id uuid.UUID) (*models.RefreshSession, error)
	// RevokeRefreshSession пытается отозвать сессию, если она ещё активна.
	// Возвращает:
	//
	//	(true, nil)  — сессия была активна и отозвана сейчас;
	//	(false, nil) — сессия существует, но уже была отозвана;
	//	(false, ErrNotFound) — сессия не найдена.
	RevokeRefreshSession(ctx context.Context, id uuid.UUID) (bool, error)
	// DeleteExpiredSessions удаляет все просроченные сессии.
	DeleteExpiredSessions(ctx context.Context, now time.Time) error
}

// AuditStorage — приёмник событий аудита.
type AuditStorage interface {
	// SaveAuditEvent записывает событие в журнал.
	SaveAuditEvent(ctx context.Context, event *models.AuditEvent) error
}

// Storage задаёт контракт работы с БД.
type Storage interface {
	UserStorage
	RefreshSessionStorage
	AuditStorage
	Close()
}
