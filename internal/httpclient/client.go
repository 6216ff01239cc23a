// httpclient — обёртка исходящих запросов к API магазина.
//
// Обёртка собирает заголовки (JSON content-type, bearer-токен, заголовки
// вызывающего), выполняет запрос и на единственный 401 прозрачно делает
// обмен токенов с одним повтором исходного запроса. Любой другой статус
// возвращается вызывающему без интерпретации: бизнес-коды — ответственность
// уровня выше.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/akimovaa/go-storefront-auth/internal/auth"
	"github.com/akimovaa/go-storefront-auth/internal/pkg/log"
)

var (
	// ErrUnauthenticated — запрос получил 401 и восстановить сессию
	// обменом токенов не удалось. Вызывающий уводит пользователя на вход.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Config — зависимости клиента.
type Config struct {
	// BaseURL — базовый URL API (без завершающего /).
	BaseURL string
	// HTTPClient — транспорт; nil заменяется клиентом с таймаутом 15s.
	HTTPClient *http.Client
	// Auth — менеджер жизненного цикла токенов.
	Auth *auth.Manager
}

// Client — аутентифицированный HTTP-клиент API магазина.
type Client struct {
	baseURL string
	hc      *http.Client
	auth    *auth.Manager
}

// New создаёт клиент.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		hc:      hc,
		auth:    cfg.Auth,
	}
}

type requestOptions struct {
	body        []byte
	contentType string
	headers     http.Header
	query       url.Values
	anonymous   bool
}

// RequestOption настраивает один запрос.
type RequestOption func(*requestOptions) error

// WithJSON сериализует body в JSON и выставляет соответствующий content-type.
func WithJSON(v any) RequestOption {
	return func(o *requestOptions) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal json body: %w", err)
		}

		o.body = data
		o.contentType = "application/json"

		return nil
	}
}

// WithBody задаёт сырое тело. Пустой contentType означает, что заголовок
// не выставляется вовсе — для multipart-тел границу определяет транспорт
// или сам вызывающий.
func WithBody(body []byte, contentType string) RequestOption {
	return func(o *requestOptions) error {
		o.body = body
		o.contentType = contentType

		return nil
	}
}

// WithHeader добавляет заголовок вызывающего. Заголовки вызывающего
// накладываются последними и выигрывают при конфликте.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) error {
		if o.headers == nil {
			o.headers = http.Header{}
		}
		o.headers.Set(key, value)

		return nil
	}
}

// WithQuery добавляет параметр строки запроса.
func WithQuery(key, value string) RequestOption {
	return func(o *requestOptions) error {
		if o.query == nil {
			o.query = url.Values{}
		}
		o.query.Set(key, value)

		return nil
	}
}

// WithoutAuth выполняет запрос анонимно, даже если токен есть
// (публичные маршруты: регистрация, восстановление пароля).
func WithoutAuth() RequestOption {
	return func(o *requestOptions) error {
		o.anonymous = true

		return nil
	}
}

// Do выполняет запрос method path относительно базового URL.
//
// Порядок сборки заголовков: content-type тела → Authorization: Bearer
// (если токен есть и запрос не анонимный) → заголовки вызывающего.
// На 401 выполняется ровно один обмен токенов и ровно один повтор
// исходного запроса; второй ответ возвращается как есть. Провал обмена —
// ErrUnauthenticated без повтора. Остальные статусы не интерпретируются.
func (c *Client) Do(ctx context.Context, method, path string, opts ...RequestOption) (*Response, error) {
	const op = "httpclient.client.Do"

	var o requestOptions
	for _, apply := range opts {
		if err := apply(&o); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	resp, err := c.issue(ctx, method, path, &o)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if resp.StatusCode != http.StatusUnauthorized || o.anonymous {
		return resp, nil
	}

	// Единственный цикл обмен-повтор: без рекурсии, без петель.
	if err := c.auth.Refresh(ctx); err != nil {
		log.From(ctx).Warn("request_auth_recovery_failed",
			slog.String("op", op),
			slog.String("path", path),
		)

		return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	resp, err = c.issue(ctx, method, path, &o)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return resp, nil
}

// issue собирает и выполняет один HTTP-запрос; тело реплицируемо,
// заголовки собираются заново при каждом вызове (свежий access-токен).
func (c *Client) issue(ctx context.Context, method, path string, o *requestOptions) (*Response, error) {
	u := c.baseURL + path
	if len(o.query) > 0 {
		u += "?" + o.query.Encode()
	}

	var body *bytes.Reader
	if o.body != nil {
		body = bytes.NewReader(o.body)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}

	if o.contentType != "" {
		req.Header.Set("Content-Type", o.contentType)
	}

	if !o.anonymous {
		if token, ok := c.auth.AccessToken(ctx); ok && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	req.Header.Set("X-Request-Id", uuid.NewString())

	// Заголовки вызывающего — последними: при конфликте выигрывает он.
	for key, values := range o.headers {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	httpResp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}

	return readResponse(httpResp)
}

// Get — сокращение для Do(http.MethodGet, ...).
func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, opts...)
}

// Post — сокращение для Do(http.MethodPost, ...).
func (c *Client) Post(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, opts...)
}

// Put — сокращение для Do(http.MethodPut, ...).
func (c *Client) Put(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, opts...)
}
