package models

import (
	"time"

	"github.com/pribylovaa/research-gateway/internal/credentials"
)

// Credential собирает credential из ответа identity-сервиса.
// Нулевой access_expires_at оставляет Expiry пустым: его выведут из JWT.
func (a AuthResponse) Credential() credentials.Credential {
	c := credentials.Credential{
		AccessToken:  a.AccessToken,
		RefreshToken: a.RefreshToken,
	}

	if a.AccessExpiresAt > 0 {
		c.Expiry = time.Unix(a.AccessExpiresAt, 0).UTC()
	}

	return c
}

func RefreshFromCredential(c credentials.Credential) RefreshRequest {
	return RefreshRequest{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
	}
}
