package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"service-desk/internal/models"
	"service-desk/internal/storage"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := activeUser(t, "Abcdef1!")
	at, err := svc.generateAccessToken(user, time.Now().UTC())
	require.NoError(t, err)

	st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)

	claims, err := svc.Authenticate(context.Background(), at)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.Subject)
	require.Equal(t, user.Role, claims.Role)
}

func TestAuthenticate_DisabledOrMissingSubject(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := activeUser(t, "Abcdef1!")
	at, err := svc.generateAccessToken(user, time.Now().UTC())
	require.NoError(t, err)

	// Деактивирован после выдачи токена.
	disabled := *user
	disabled.IsActive = false
	st.EXPECT().UserByID(gomock.Any(), user.ID).Return(&disabled, nil)

	_, err = svc.Authenticate(context.Background(), at)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrAccountDisabled)

	// Субъект не существует.
	st.EXPECT().UserByID(gomock.Any(), user.ID).Return(nil, storage.ErrNotFound)

	_, err = svc.Authenticate(context.Background(), at)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrAccountDisabled)
}

func TestAuthenticate_BadToken(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	_, err := svc.Authenticate(context.Background(), "not-a-jwt")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestUserByID_MapsNotFound(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	id := uuid.New()
	st.EXPECT().UserByID(gomock.Any(), id).Return(nil, storage.ErrNotFound)

	_, err := svc.UserByID(context.Background(), id)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListUsers_Propagated(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	want := []models.User{{ID: uuid.New()}, {ID: uuid.New()}}
	st.EXPECT().ListUsers(gomock.Any()).Return(want, nil)

	got, err := svc.ListUsers(context.Background())
	require.NoError(t, err)
	require.Equal(t, want, got)

	st.EXPECT().ListUsers(gomock.Any()).Return(nil, errors.New("db down"))
	_, err = svc.ListUsers(context.Background())
	require.Error(t, err)
}

func TestSetUserStatus(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	actor := uuid.New()
	target := uuid.New()

	st.EXPECT().UpdateUserStatus(gomock.Any(), target, false).Return(nil)
	require.NoError(t, svc.SetUserStatus(context.Background(), actor, target, false))

	st.EXPECT().UpdateUserStatus(gomock.Any(), target, true).Return(storage.ErrNotFound)
	err := svc.SetUserStatus(context.Background(), actor, target, true)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrNotFound)
}
