// service содержит пользовательские операции аутентификации магазина:
// вход/выход, повторную проверку пароля, смену пароля и конструкторы
// сессий подтверждения для четырёх потоков.
//
// Основные аспекты:
//   - Service не хранит состояние запроса; экземпляр безопасен для
//     конкурентного использования.
//   - Ожидаемые отказы (неверные учётные данные, неверный пароль)
//     возвращаются сентинельными ошибками, а не паниками.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/akimovaa/go-storefront-auth/internal/auth"
	"github.com/akimovaa/go-storefront-auth/internal/config"
	"github.com/akimovaa/go-storefront-auth/internal/httpclient"
	"github.com/akimovaa/go-storefront-auth/internal/models"
	"github.com/akimovaa/go-storefront-auth/internal/verify"
)

var (
	// ErrInvalidCredentials — пара логин/пароль неверна или пуста.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrWrongPassword — текущий пароль не прошёл повторную проверку.
	ErrWrongPassword = errors.New("wrong password")

	// ErrChangeRejected — сервер отклонил смену пароля.
	ErrChangeRejected = errors.New("password change rejected")

	// ErrNotAuthenticated — операция требует активной сессии.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// Service — операции аутентификации поверх обёртки запросов.
type Service struct {
	api  *httpclient.Client
	mgr  *auth.Manager
	auth config.AuthConfig
	vcfg config.VerificationConfig
}

// New создаёт сервис.
func New(api *httpclient.Client, mgr *auth.Manager, authCfg config.AuthConfig, vcfg config.VerificationConfig) *Service {
	return &Service{
		api:  api,
		mgr:  mgr,
		auth: authCfg,
		vcfg: vcfg,
	}
}

// Форма ответа логина совпадает с ответом обмена токенов.
type loginResponse struct {
	Success bool `json:"success"`
	Data    struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	} `json:"data"`
}

// Login выполняет вход по логину и паролю и персистит выданную пару.
// Возвращает claims из свежего access-токена.
func (s *Service) Login(ctx context.Context, username, password string) (*models.Claims, error) {
	const op = "service.auth.Login"

	if username == "" || password == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	resp, err := s.api.Post(ctx, s.auth.LoginPath,
		httpclient.WithoutAuth(),
		httpclient.WithJSON(map[string]string{
			"username": username,
			"password": password,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if !resp.OK() {
		return nil, fmt.Errorf("%s: login failed: %s", op, resp.Message())
	}

	var out loginResponse
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !out.Success || out.Data.AccessToken == "" || out.Data.RefreshToken == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair := models.TokenPair{
		AccessToken:  out.Data.AccessToken,
		RefreshToken: out.Data.RefreshToken,
	}
	if err := s.mgr.SetPair(ctx, pair); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	claims, _ := auth.DecodeClaims(pair.AccessToken)

	return claims, nil
}

// Logout завершает локальную сессию: пара уничтожается.
func (s *Service) Logout(ctx context.Context) error {
	const op = "service.auth.Logout"

	if err := s.mgr.Clear(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RecheckPassword повторно проверяет текущий пароль на аутентифицированном
// маршруте (подтверждение личности перед чувствительными действиями).
func (s *Service) RecheckPassword(ctx context.Context, password string) error {
	const op = "service.auth.RecheckPassword"

	if password == "" {
		return fmt.Errorf("%s: %w", op, ErrWrongPassword)
	}

	resp, err := s.api.Post(ctx, s.auth.RecheckPath,
		httpclient.WithJSON(map[string]string{"password": password}),
	)
	if err != nil {
		if errors.Is(err, httpclient.ErrUnauthenticated) {
			return fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if resp.OK() {
		return nil
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return fmt.Errorf("%s: %w", op, ErrWrongPassword)
	}

	return fmt.Errorf("%s: recheck failed: %s", op, resp.Message())
}

// ChangePassword меняет пароль. Сервер при успехе инвалидирует выданные
// токены, поэтому локальная пара тоже уничтожается — пользователь входит
// заново с новым паролем.
func (s *Service) ChangePassword(ctx context.Context, current, next string) error {
	const op = "service.auth.ChangePassword"

	if current == "" || next == "" {
		return fmt.Errorf("%s: %w", op, ErrChangeRejected)
	}

	resp, err := s.api.Put(ctx, s.auth.ChangePasswordPath,
		httpclient.WithJSON(map[string]string{
			"currentPassword": current,
			"newPassword":     next,
		}),
	)
	if err != nil {
		if errors.Is(err, httpclient.ErrUnauthenticated) {
			return fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if !resp.OK() {
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return fmt.Errorf("%s: %w: %s", op, ErrChangeRejected, resp.Message())
		}

		return fmt.Errorf("%s: change failed: %s", op, resp.Message())
	}

	if err := s.mgr.Clear(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// CurrentUser возвращает claims активной сессии.
func (s *Service) CurrentUser(ctx context.Context) (*models.Claims, bool) {
	return s.mgr.Claims(ctx)
}

// EmailVerification создаёт сессию подтверждения e-mail.
func (s *Service) EmailVerification(opts ...verify.Option) *verify.Session {
	return verify.NewSession(verify.EmailFlow(s.vcfg), s.api, opts...)
}

// PhoneVerification создаёт сессию подтверждения телефона.
func (s *Service) PhoneVerification(opts ...verify.Option) *verify.Session {
	return verify.NewSession(verify.PhoneFlow(s.vcfg), s.api, opts...)
}

// LoginIDRecovery создаёт сессию восстановления логина.
func (s *Service) LoginIDRecovery(opts ...verify.Option) *verify.Session {
	return verify.NewSession(verify.LoginIDFlow(s.vcfg), s.api, opts...)
}

// PasswordRecovery создаёт сессию восстановления пароля.
func (s *Service) PasswordRecovery(opts ...verify.Option) *verify.Session {
	return verify.NewSession(verify.PasswordFlow(s.vcfg), s.api, opts...)
}
