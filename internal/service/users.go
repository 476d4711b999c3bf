package service

import (
	"context"
	"errors"
	"fmt"

	"service-desk/internal/models"
	"service-desk/internal/storage"

	"github.com/google/uuid"
)

// Authenticate проверяет access-токен и актуальный статус его субъекта.
// Stateless-проверка подписи дополняется обращением к хранилищу:
// деактивированный (или удалённый) пользователь отклоняется даже
// с формально валидным токеном.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*models.AccessClaims, error) {
	const op = "service.users.Authenticate"

	claims, err := s.validateAccessToken(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrAccountDisabled)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !user.IsActive {
		return nil, fmt.Errorf("%s: %w", op, ErrAccountDisabled)
	}

	return claims, nil
}

// UserByID возвращает пользователя для /me.
func (s *Service) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "service.users.UserByID"

	user, err := s.storage.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// ListUsers возвращает всех пользователей (административная операция).
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "service.users.ListUsers"

	users, err := s.storage.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}

// SetUserStatus включает/выключает учётную запись. Идемпотентна.
func (s *Service) SetUserStatus(ctx context.Context, actorID, targetID uuid.UUID, active bool) error {
	const op = "service.users.SetUserStatus"

	if err := s.storage.UpdateUserStatus(ctx, targetID, active); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	s.audit.Record(ctx, actorID, "user_status_change", map[string]any{
		"target": targetID.String(),
		"active": active,
	})

	return nil
}
