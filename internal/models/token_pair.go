package models

import "time"

// TokenPair — пара токенов, выдаваемая при входе и ротации.
//
// Описание:
//   - AccessToken — короткоживущий JWT для доступа к API;
//   - RefreshToken — JWT с jti сессии, предъявляется для выпуска новой пары;
//     на сервере хранится только хэш;
//   - AccessExpiresAt / RefreshExpiresAt — моменты истечения (UTC), по ним
//     выставляется max-age сессионных cookie.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
