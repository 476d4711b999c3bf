// audit — best-effort журнал действий.
// Запись события никогда не валит основную операцию: ошибки приёмника
// логируются локально и проглатываются.
package audit

import (
	"context"
	"log/slog"
	"time"

	"service-desk/internal/models"
	"service-desk/internal/pkg/log"
	"service-desk/internal/storage"

	"github.com/google/uuid"
)

// Recorder пишет события аудита в приёмник.
type Recorder struct {
	sink storage.AuditStorage
}

// New создаёт Recorder. sink == nil делает запись no-op.
func New(sink storage.AuditStorage) *Recorder {
	return &Recorder{sink: sink}
}

// Record фиксирует событие. Сбой записи логируется и не возвращается.
func (r *Recorder) Record(ctx context.Context, userID uuid.UUID, action string, metadata map[string]any) {
	const op = "audit.Record"

	if r == nil || r.sink == nil {
		return
	}

	event := &models.AuditEvent{
		UserID:    userID,
		Action:    action,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}

	if err := r.sink.SaveAuditEvent(ctx, event); err != nil {
		log.From(ctx).Warn("audit_write_failed",
			slog.String("op", op),
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
	}
}
