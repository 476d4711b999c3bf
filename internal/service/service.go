// service содержит бизнес-логику учётных записей и сессий:
// регистрацию/аутентификацию пользователей, защиту от перебора паролей,
// выпуск/проверку токенов и ротацию refresh-сессий поверх интерфейсов
// из пакета storage.
//
// Основные аспекты:
//   - Пакет не хранит состояние запроса внутри Service; экземпляр Service
//     безопасен для конкурентного использования из разных горутин при условии,
//     что переданное хранилище (storage.Storage) потокобезопасно.
//   - Все ветки "неверный пароль"/"невалидный токен" — значения-ошибки,
//     а не исключительные ситуации; транспорт маппит их на HTTP-коды
//     (см. комментарии к переменным ошибок ниже).
package service

import (
	"errors"

	"service-desk/internal/audit"
	"service-desk/internal/config"
	"service-desk/internal/security"
	"service-desk/internal/storage"
)

var (
	// ErrInvalidCredentials — пара логин/пароль неверна или пользователь
	// не найден. Наружу уходит единое сообщение: неизвестный email и
	// неверный пароль неразличимы. Транспорт: HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken — токен (access/refresh) некорректен по формату/подписи
	// или его сессия отсутствует в журнале. Транспорт: HTTP 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк. Транспорт: HTTP 401.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked — сессия отозвана (logout/ротация) и недействительна
	// независимо от срока. Транспорт: HTTP 401.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrEmailTaken — e-mail уже занят другим пользователем. Транспорт: HTTP 409.
	ErrEmailTaken = errors.New("email already taken")

	// ErrAccountLocked — учётная запись временно заблокирована после серии
	// неудачных входов. Сообщение не раскрывает ни остаток попыток,
	// ни точное время разблокировки. Транспорт: HTTP 423.
	ErrAccountLocked = errors.New("account locked")

	// ErrAccountDisabled — учётная запись деактивирована администратором
	// либо субъект токена не найден. Транспорт: HTTP 403.
	ErrAccountDisabled = errors.New("account disabled")

	// ErrNotFound — запрошенный пользователь не существует. Транспорт: HTTP 404.
	ErrNotFound = errors.New("not found")

	// ErrInvalidEmail — e-mail имеет некорректный формат. Транспорт: HTTP 400.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrWeakPassword — пароль короче минимальной длины. Транспорт: HTTP 400.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword — пароль пустой. Транспорт: HTTP 400.
	ErrEmptyPassword = errors.New("password is empty")
)

// Service описывает бизнес-логику auth-сервиса.
type Service struct {
	storage storage.Storage
	cfg     config.AuthConfig
	argon   security.Argon2Params
	audit   *audit.Recorder
}

// New создаёт новый экземпляр Service.
// rec может быть nil — тогда события аудита не пишутся.
func New(storage storage.Storage, cfg config.AuthConfig, rec *audit.Recorder) *Service {
	return &Service{
		storage: storage,
		cfg:     cfg,
		argon:   security.DefaultArgon2Params(),
		audit:   rec,
	}
}
