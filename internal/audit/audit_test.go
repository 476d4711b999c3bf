package audit

import (
	"context"
	"errors"
	"testing"

	"service-desk/internal/models"
	"service-desk/mocks"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRecord_WritesEvent(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sink := mocks.NewMockAuditStorage(ctrl)
	rec := New(sink)

	userID := uuid.New()
	var got *models.AuditEvent
	sink.EXPECT().SaveAuditEvent(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e *models.AuditEvent) error {
			got = e
			return nil
		})

	rec.Record(context.Background(), userID, "login_success", map[string]any{"ip": "10.0.0.1"})

	require.NotNil(t, got)
	require.Equal(t, userID, got.UserID)
	require.Equal(t, "login_success", got.Action)
	require.Equal(t, "10.0.0.1", got.Metadata["ip"])
	require.False(t, got.CreatedAt.IsZero())
}

func TestRecord_SwallowsSinkError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sink := mocks.NewMockAuditStorage(ctrl)
	rec := New(sink)

	sink.EXPECT().SaveAuditEvent(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

	require.NotPanics(t, func() {
		rec.Record(context.Background(), uuid.New(), "register", nil)
	})
}

func TestRecord_NilRecorderAndSinkAreNoop(t *testing.T) {
	t.Parallel()

	var nilRec *Recorder
	require.NotPanics(t, func() {
		nilRec.Record(context.Background(), uuid.New(), "login_success", nil)
	})

	require.NotPanics(t, func() {
		New(nil).Record(context.Background(), uuid.New(), "login_success", nil)
	})
}
