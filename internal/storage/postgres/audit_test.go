package postgres

import (
	"context"
	"testing"
	"time"

	"service-desk/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestIntegration_SaveAuditEvent(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := newUser("audit@example.com")
	require.NoError(t, st.SaveUser(context.Background(), u))

	event := &models.AuditEvent{
		UserID:    u.ID,
		Action:    "login_success",
		Metadata:  map[string]any{"ip": "10.0.0.1"},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, st.SaveAuditEvent(context.Background(), event))

	var (
		action string
		raw    []byte
	)
	err := st.db.QueryRow(context.Background(),
		`SELECT action, metadata FROM audit_logs WHERE user_id = $1`, u.ID).
		Scan(&action, &raw)
	require.NoError(t, err)
	require.Equal(t, "login_success", action)
	require.Contains(t, string(raw), "10.0.0.1")
}

// Событие без субъекта (uuid.Nil) пишется с NULL user_id.
func TestIntegration_SaveAuditEvent_NilSubject(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	event := &models.AuditEvent{
		UserID:    uuid.Nil,
		Action:    "login_failed",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, st.SaveAuditEvent(context.Background(), event))

	var count int
	err := st.db.QueryRow(context.Background(),
		`SELECT count(*) FROM audit_logs WHERE user_id IS NULL AND action = 'login_failed'`).
		Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

// Аудит переживает удаление пользователя: user_id обнуляется, запись остаётся.
func TestIntegration_AuditSurvivesUserDelete(t *testing.T) {
	st, cleanup := startPostgres(t)
	defer cleanup()

	u := newUser("gone@example.com")
	require.NoError(t, st.SaveUser(context.Background(), u))

	require.NoError(t, st.SaveAuditEvent(context.Background(), &models.AuditEvent{
		UserID:    u.ID,
		Action:    "register",
		CreatedAt: time.Now().UTC(),
	}))

	_, err := st.db.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, u.ID)
	require.NoError(t, err)

	var count int
	err = st.db.QueryRow(context.Background(),
		`SELECT count(*) FROM audit_logs WHERE action = 'register' AND user_id IS NULL`).
		Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
