// Модели JSON-обмена с identity-сервисом и REST-поверхностью шлюза.
package models

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest — тело обмена: текущая пара целиком.
type RefreshRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type RevokeRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RevokeResponse struct {
	Ok bool `json:"ok"`
}

type AuthResponse struct {
	UserID          string `json:"user_id"`
	AccessToken     string `json:"access_token"`
	RefreshToken    string `json:"refresh_token"`
	AccessExpiresAt int64  `json:"access_expires_at"` // Unix UTC, 0 — не сообщён
}

// SessionResponse — статус сессии шлюза для фронта. Токены наружу не отдаются.
type SessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"user_id,omitempty"` // только в ответе на вход
	ExpiresAt     int64  `json:"expires_at,omitempty"`
	State         string `json:"state"`
}

// BackendHealthResponse — результат gRPC health-проверки бэкенда от имени сессии.
type BackendHealthResponse struct {
	Service string `json:"service,omitempty"`
	Status  string `json:"status"`
}

// UpstreamErrorBody — форма тела ошибки бэкенда; Code проверяется на
// маркеры протухшего токена.
type UpstreamErrorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Code string `json:"code"`
}

// ErrorCode возвращает код ошибки из вложенной или плоской формы.
func (b UpstreamErrorBody) ErrorCode() string {
	if b.Error.Code != "" {
		return b.Error.Code
	}

	return b.Code
}
