package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/akimovaa/go-storefront-auth/internal/models"
)

// Claims декодирует payload текущего access-токена.
// Отсутствующий или нечитаемый токен даёт (nil, false) — это не ошибка.
//
// Подпись намеренно не проверяется: секрет подписи живёт на сервере,
// клиент использует payload только для отображения и проверки срока.
func (m *Manager) Claims(ctx context.Context) (*models.Claims, bool) {
	token, ok := m.AccessToken(ctx)
	if !ok {
		return nil, false
	}

	return DecodeClaims(token)
}

// DecodeClaims декодирует payload произвольного access-токена.
func DecodeClaims(token string) (*models.Claims, bool) {
	if token == "" {
		return nil, false
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, false
	}

	raw, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, false
	}

	claims := &models.Claims{}

	// JSON-числа приходят как float64.
	if id, ok := raw["id"].(float64); ok {
		claims.UserID = int64(id)
	}
	if username, ok := raw["username"].(string); ok {
		claims.Username = username
	}
	if role, ok := raw["role"].(string); ok {
		claims.Role = role
	}
	if sub, ok := raw["sub"].(string); ok {
		claims.Subject = sub
	}
	if exp, ok := raw["exp"].(float64); ok {
		claims.ExpiresAt = time.Unix(int64(exp), 0).UTC()
	}
	if iat, ok := raw["iat"].(float64); ok {
		claims.IssuedAt = time.Unix(int64(iat), 0).UTC()
	}

	return claims, true
}

// IsExpired сравнивает exp токена с текущим временем.
// Недекодируемый токен считается истёкшим (fail-closed).
func (m *Manager) IsExpired(token string) bool {
	claims, ok := DecodeClaims(token)
	if !ok {
		return true
	}

	return claims.ExpiredAt(m.now())
}

// IsAccessExpired проверяет текущий access-токен из хранилища.
// Отсутствие токена — истечение.
func (m *Manager) IsAccessExpired(ctx context.Context) bool {
	token, ok := m.AccessToken(ctx)
	if !ok {
		return true
	}

	return m.IsExpired(token)
}
