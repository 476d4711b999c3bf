package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"service-desk/internal/models"
	"service-desk/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SaveRefreshSession сохраняет новую refresh-сессию.
func (s *Storage) SaveRefreshSession(ctx context.Context, session *models.RefreshSession) error {
	const op = "storage.postgres.SaveRefreshSession"

	query := `
		INSERT INTO refresh_sessions(id, user_id, token_hash, expires_at, revoked, user_agent, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.TokenHash,
		session.ExpiresAt,
		session.Revoked,
		session.UserAgent,
		session.IPAddress,
		session.CreatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RefreshSessionByID находит сессию по идентификатору (jti).
func (s *Storage) RefreshSessionByID(ctx context.Context, id uuid.UUID) (*models.RefreshSession, error) {
	const op = "storage.postgres.RefreshSessionByID"

	query := `
		SELECT id, user_id, token_hash, expires_at, revoked, user_agent, ip_address, created_at
		FROM refresh_sessions
		WHERE id = $1
	`

	var session models.RefreshSession
	err := s.db.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.ExpiresAt,
		&session.Revoked,
		&session.UserAgent,
		&session.IPAddress,
		&session.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &session, nil
}

// RevokeRefreshSession пытается отозвать сессию, если она ещё активна.
// Условный UPDATE — точка сериализации ротации: из двух конкурентных
// запросов с одним токеном ровно один получает (true, nil).
// Возвращает:
//
//	(true, nil)  — сессия была активна и отозвана сейчас;
//	(false, nil) — сессия существует, но уже была отозвана;
//	(false, ErrNotFound) — сессия не найдена.
func (s *Storage) RevokeRefreshSession(ctx context.Context, id uuid.UUID) (bool, error) {
	const op = "storage.postgres.RevokeRefreshSession"

	const upd = `
		UPDATE refresh_sessions
		SET revoked = TRUE
		WHERE id = $1 AND revoked = FALSE
		RETURNING user_id
	`

	var userID uuid.UUID
	err := s.db.QueryRow(ctx, upd, id).Scan(&userID)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	const sel = `
		SELECT revoked
		FROM refresh_sessions
		WHERE id = $1
	`

	var revoked bool
	err = s.db.QueryRow(ctx, sel, id).Scan(&revoked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return false, fmt.Errorf("%s: %w", op, err)
	}

	return false, nil
}

// DeleteExpiredSessions удаляет все просроченные сессии.
func (s *Storage) DeleteExpiredSessions(ctx context.Context, now time.Time) error {
	const op = "storage.postgres.DeleteExpiredSessions"

	query := `
		DELETE FROM refresh_sessions
		WHERE expires_at <= $1
	`

	_, err := s.db.Exec(ctx, query, now)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
