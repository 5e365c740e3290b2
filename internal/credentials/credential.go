// credentials — хранилище текущей пары токенов шлюза.
//
// Store — листовой компонент: атомарные Get/Set/Clear над неизменяемым
// значением Credential и подсказка IsExpiringSoon для проактивного обновления.
// Хранилище локальное и не возвращает ошибок; опциональная персистентность
// (storage.Persister) работает «за» ним в фоновом писателе, её сбои только
// логируются.
package credentials

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credential — пара токенов и момент истечения access-токена.
// Инвариант: оба токена либо заданы, либо пусты.
type Credential struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Complete сообщает, заданы ли оба токена.
func (c Credential) Complete() bool {
	return c.AccessToken != "" && c.RefreshToken != ""
}

// ExpiringSoon сообщает, истекает ли access-токен в пределах threshold от now.
// Нулевой Expiry — подсказки нет, false.
func (c Credential) ExpiringSoon(now time.Time, threshold time.Duration) bool {
	if c.Expiry.IsZero() {
		return false
	}

	return !now.Add(threshold).Before(c.Expiry)
}

// ExpiryFromJWT читает claim exp из access-токена без проверки подписи.
// Подпись проверяет бэкенд; шлюзу exp нужен только как подсказка.
// Для непарсящегося токена или токена без exp возвращает нулевое время.
func ExpiryFromJWT(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}

	return exp.Time.UTC()
}
