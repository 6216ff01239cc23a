package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/akimovaa/go-storefront-auth/internal/models"
	"github.com/akimovaa/go-storefront-auth/internal/pkg/log"
)

// Форма запроса/ответа эндпоинта обмена.
type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	Success bool `json:"success"`
	Data    struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	} `json:"data"`
}

// Refresh обменивает refresh-токен на новую пару.
//
// Поведение:
//   - refresh-токен отсутствует — состояние очищается, сессия завершается,
//     возвращается ErrNoRefreshToken;
//   - сервер вернул новую пару — она персистится, возвращается nil;
//   - любой иной исход (не-2xx, битый ответ, сетевая ошибка) — состояние
//     очищается, сессия завершается, возвращается ErrRefreshFailed.
//
// Одновременные вызовы схлопываются в один обмен (single-flight):
// все ожидающие получают результат первого.
func (m *Manager) Refresh(ctx context.Context) error {
	_, err, _ := m.sf.Do("refresh", func() (any, error) {
		return nil, m.refresh(ctx)
	})

	return err
}

func (m *Manager) refresh(ctx context.Context) error {
	const op = "auth.refresh.Refresh"

	lg := log.From(ctx)

	refreshToken, ok := m.RefreshToken(ctx)
	if !ok || refreshToken == "" {
		m.sessionExpired(ctx)
		return fmt.Errorf("%s: %w", op, ErrNoRefreshToken)
	}

	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		m.sessionExpired(ctx)
		return fmt.Errorf("%s: %w", op, ErrRefreshFailed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.refreshURL, bytes.NewReader(body))
	if err != nil {
		m.sessionExpired(ctx)
		return fmt.Errorf("%s: %w", op, ErrRefreshFailed)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.hc.Do(req)
	if err != nil {
		lg.Error("token_exchange_transport_failed", slog.String("op", op), slog.String("err", err.Error()))
		m.sessionExpired(ctx)
		return fmt.Errorf("%s: %w", op, ErrRefreshFailed)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		lg.Warn("token_exchange_rejected", slog.String("op", op), slog.Int("status", resp.StatusCode))
		m.sessionExpired(ctx)
		return fmt.Errorf("%s: %w", op, ErrRefreshFailed)
	}

	var out refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		m.sessionExpired(ctx)
		return fmt.Errorf("%s: %w", op, ErrRefreshFailed)
	}

	if !out.Success || out.Data.AccessToken == "" || out.Data.RefreshToken == "" {
		m.sessionExpired(ctx)
		return fmt.Errorf("%s: %w", op, ErrRefreshFailed)
	}

	pair := models.TokenPair{
		AccessToken:  out.Data.AccessToken,
		RefreshToken: out.Data.RefreshToken,
	}
	if err := m.SetPair(ctx, pair); err != nil {
		m.sessionExpired(ctx)
		return fmt.Errorf("%s: %w", op, ErrRefreshFailed)
	}

	return nil
}
