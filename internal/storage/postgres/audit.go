package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"service-desk/internal/models"

	"github.com/google/uuid"
)

// SaveAuditEvent записывает событие аудита.
func (s *Storage) SaveAuditEvent(ctx context.Context, event *models.AuditEvent) error {
	const op = "storage.postgres.SaveAuditEvent"

	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	raw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var userID *uuid.UUID
	if event.UserID != uuid.Nil {
		userID = &event.UserID
	}

	query := `
		INSERT INTO audit_logs(user_id, action, metadata, created_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := s.db.Exec(ctx, query, userID, event.Action, raw, event.CreatedAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
