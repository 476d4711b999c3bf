package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"service-desk/internal/models"
	"service-desk/internal/pkg/log"
	"service-desk/internal/pkg/redact"
	"service-desk/internal/security"
	"service-desk/internal/storage"

	"github.com/google/uuid"
)

// ClientMeta — справочные данные клиента, сохраняемые в refresh-сессии.
type ClientMeta struct {
	UserAgent string
	IP        string
}

// RegisterUser регистрирует нового пользователя.
// Токены при регистрации не выдаются — клиент входит отдельным запросом.
func (s *Service) RegisterUser(ctx context.Context, email, password string) (*models.User, error) {
	const op = "service.auth.RegisterUser"

	normEmail, err := validateEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	if err := validatePassword(password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.storage.UserByEmail(ctx, normEmail)
	if err == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hashedPassword, err := security.HashPassword(password, s.argon)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Email:        normEmail,
		PasswordHash: hashedPassword,
		Role:         models.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.audit.Record(ctx, user.ID, "register", map[string]any{"email": user.Email})

	return user, nil
}

// LoginUser выполняет вход по email+пароль с учётом блокировки.
//
// Порядок проверок важен и совпадает с политикой сервиса:
// активность учётной записи -> блокировка -> пароль. Заблокированный
// аккаунт отклоняется ДО проверки пароля: не тратим argon2 и не
// расширяем тайминговый канал.
func (s *Service) LoginUser(ctx context.Context, email, password string, meta ClientMeta) (*models.TokenPair, *models.User, error) {
	const op = "service.auth.LoginUser"

	lg := log.From(ctx)

	normEmail, err := validateEmail(email)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if len(password) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.storage.UserByEmail(ctx, normEmail)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if !user.IsActive {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrAccountDisabled)
	}

	now := time.Now().UTC()
	if user.LockedAt(now) {
		lg.Warn("login_rejected_locked",
			slog.String("op", op),
			slog.String("email", redact.Email(user.Email)),
		)
		return nil, nil, fmt.Errorf("%s: %w", op, ErrAccountLocked)
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if !ok {
		if err := s.recordLoginFailure(ctx, user, now); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}

		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	// Успешная проверка пароля — единственный путь сброса счётчика.
	if err := s.storage.ResetLoginFailures(ctx, user.ID); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.issueTokenPair(ctx, user, meta)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	s.audit.Record(ctx, user.ID, "login_success", map[string]any{"ip": meta.IP})

	return pair, user, nil
}

// recordLoginFailure инкрементирует счётчик неудач и при достижении порога
// выставляет lock_until. Счётчик НЕ обнуляется по истечении прошлой
// блокировки: пользователь, переждавший её и снова ошибившийся,
// блокируется сразу.
func (s *Service) recordLoginFailure(ctx context.Context, user *models.User, now time.Time) error {
	const op = "service.auth.recordLoginFailure"

	attempts := user.FailedLoginAttempts + 1

	var lockUntil *time.Time
	if attempts >= s.cfg.LockThreshold {
		until := now.Add(s.cfg.LockDuration)
		lockUntil = &until
	}

	if err := s.storage.RecordLoginFailure(ctx, user.ID, attempts, lockUntil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.audit.Record(ctx, user.ID, "login_failed", map[string]any{
		"email":    user.Email,
		"attempts": attempts,
	})

	return nil
}

// Refresh выполняет ротацию refresh-сессии.
//
// Протокол: подпись -> журнал -> активность пользователя -> условный
// отзыв старой сессии -> выпуск новой пары. Отзыв — точка сериализации:
// из двух конкурентных запросов с одним токеном ротацию завершает ровно
// один, второй видит сессию уже отозванной. Refresh-токен одноразовый.
func (s *Service) Refresh(ctx context.Context, refreshToken string, meta ClientMeta) (*models.TokenPair, *models.User, error) {
	const op = "service.auth.Refresh"

	lg := log.From(ctx)

	userID, sessionID, err := s.validateRefreshToken(refreshToken)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	session, err := s.storage.RefreshSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if session.Revoked {
		lg.Warn("refresh_session_revoked",
			slog.String("op", op),
			slog.String("session_id", session.ID.String()),
		)
		return nil, nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
	}

	now := time.Now().UTC()
	if now.After(session.ExpiresAt) {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
	}

	if session.UserID != userID || !security.TokenHashEqual(refreshToken, session.TokenHash) {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("%s: %w", op, ErrAccountDisabled)
		}

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if !user.IsActive {
		return nil, nil, fmt.Errorf("%s: %w", op, ErrAccountDisabled)
	}

	revoked, err := s.storage.RevokeRefreshSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if !revoked {
		// Конкурентная ротация: отзыв выполнил кто-то другой.
		return nil, nil, fmt.Errorf("%s: %w", op, ErrTokenRevoked)
	}

	pair, err := s.issueTokenPair(ctx, user, meta)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	s.audit.Record(ctx, user.ID, "refresh_rotated", map[string]any{
		"old": sessionID.String(),
	})

	return pair, user, nil
}

// Logout отзывает refresh-сессию. Best-effort: битый/чужой/уже отозванный
// токен — не ошибка, клиент в любом случае получает успех, а cookie
// очищаются транспортом.
func (s *Service) Logout(ctx context.Context, refreshToken string) {
	const op = "service.auth.Logout"

	lg := log.From(ctx)

	if refreshToken == "" {
		return
	}

	userID, sessionID, err := s.validateRefreshToken(refreshToken)
	if err != nil {
		lg.Debug("logout_token_invalid", slog.String("op", op))
		return
	}

	if _, err := s.storage.RevokeRefreshSession(ctx, sessionID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		lg.Warn("logout_revoke_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return
	}

	s.audit.Record(ctx, userID, "logout", map[string]any{})
}

// issueTokenPair выпускает пару access+refresh и сохраняет новую
// refresh-сессию в журнале. Ошибка записи не ретраится: лучше отказ,
// чем риск двойной выдачи.
func (s *Service) issueTokenPair(ctx context.Context, user *models.User, meta ClientMeta) (*models.TokenPair, error) {
	const op = "service.auth.issueTokenPair"

	now := time.Now().UTC()

	accessToken, err := s.generateAccessToken(user, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sessionID := uuid.New()
	refreshToken, err := s.generateRefreshToken(user, sessionID, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	session := &models.RefreshSession{
		ID:        sessionID,
		UserID:    user.ID,
		TokenHash: security.HashToken(refreshToken),
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
		UserAgent: orUnknown(meta.UserAgent),
		IPAddress: orUnknown(meta.IP),
		CreatedAt: now,
	}

	if err := s.storage.SaveRefreshSession(ctx, session); err != nil {
		// Коллизия uuid.New() практически исключена; конфликт здесь —
		// признак серьёзной проблемы, наружу уходит 500.
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  now.Add(s.cfg.AccessTokenTTL),
		RefreshExpiresAt: session.ExpiresAt,
	}, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}

	return s
}

// validateEmail проверяет базовый формат email и обрезает пробелы снаружи.
func validateEmail(raw string) (string, error) {
	const op = "service.auth.validateEmail"

	email := strings.TrimSpace(raw)
	if email == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	return strings.ToLower(email), nil
}

// validatePassword проверяет минимальные требования к паролю: длина >= 8.
func validatePassword(pw string) error {
	const op = "service.auth.validatePassword"

	if len(pw) == 0 {
		return fmt.Errorf("%s: %w", op, ErrEmptyPassword)
	}

	if len([]rune(pw)) < 8 {
		return fmt.Errorf("%s: %w", op, ErrWeakPassword)
	}

	return nil
}
