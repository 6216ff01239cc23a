package models

import "time"

// Claims — данные, декодированные из payload access-токена.
// Производное состояние: никогда не персистится, пересчитывается
// по требованию из текущего токена.
//
// Форма payload на проводе: {id, username, role, exp, iat, sub}.
type Claims struct {
	// UserID — числовой идентификатор пользователя (claim "id").
	UserID int64
	// Username — логин пользователя.
	Username string
	// Role — роль (например, USER/ADMIN) для ветвлений в UI.
	Role string
	// Subject — claim "sub" как есть.
	Subject string
	// IssuedAt — момент выпуска токена (UTC).
	IssuedAt time.Time
	// ExpiresAt — момент истечения токена (UTC).
	ExpiresAt time.Time
}

// ExpiredAt сообщает, истёк ли токен на момент now.
// Нулевое ExpiresAt считается истёкшим (fail-closed).
func (c Claims) ExpiredAt(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return true
	}

	return !now.Before(c.ExpiresAt)
}
