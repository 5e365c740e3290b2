package credentials

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMalformed — сохранённое значение не декодируется в полный Credential.
var ErrMalformed = errors.New("malformed credential")

type wireCredential struct {
	AccessToken  string `json:"at"`
	RefreshToken string `json:"rt"`
	Expiry       int64  `json:"exp,omitempty"` // Unix UTC
}

// Encode обратимо кодирует credential для хранения: JSON -> base64url.
func Encode(c Credential) ([]byte, error) {
	const op = "credentials.Encode"

	if !c.Complete() {
		return nil, fmt.Errorf("%s: %w", op, ErrMalformed)
	}

	w := wireCredential{AccessToken: c.AccessToken, RefreshToken: c.RefreshToken}
	if !c.Expiry.IsZero() {
		w.Expiry = c.Expiry.Unix()
	}

	raw, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]byte, base64.RawURLEncoding.EncodedLen(len(raw)))
	base64.RawURLEncoding.Encode(out, raw)
	return out, nil
}

// Decode — обратная к Encode операция.
func Decode(data []byte) (Credential, error) {
	const op = "credentials.Decode"

	raw := make([]byte, base64.RawURLEncoding.DecodedLen(len(data)))
	n, err := base64.RawURLEncoding.Decode(raw, data)
	if err != nil {
		return Credential{}, fmt.Errorf("%s: %w", op, ErrMalformed)
	}

	var w wireCredential
	if err := json.Unmarshal(raw[:n], &w); err != nil {
		return Credential{}, fmt.Errorf("%s: %w", op, ErrMalformed)
	}

	c := Credential{AccessToken: w.AccessToken, RefreshToken: w.RefreshToken}
	if w.Expiry > 0 {
		c.Expiry = time.Unix(w.Expiry, 0).UTC()
	}

	if !c.Complete() {
		return Credential{}, fmt.Errorf("%s: %w", op, ErrMalformed)
	}

	return c, nil
}
