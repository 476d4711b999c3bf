package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// HashToken возвращает base64url(sha256(token)) — в этом виде хэш
// refresh-токена хранится в БД. Memory-hard функция здесь не нужна:
// вход — не пароль, а 256-битное случайное значение.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// TokenHashEqual сравнивает предъявленный токен с хранимым хэшем
// за константное время.
func TokenHashEqual(token, storedHash string) bool {
	computed := HashToken(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}
