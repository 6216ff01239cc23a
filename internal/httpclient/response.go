package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// genericFailureMessage — запасное сообщение, когда сервер не прислал своё.
const genericFailureMessage = "request failed"

// Response — полностью прочитанный ответ сервера.
// Тело буферизуется целиком: это позволяет и декодировать его повторно,
// и вернуть второй ответ после повтора запроса без висящих соединений.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func readResponse(resp *http.Response) (*Response, error) {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// OK сообщает, что статус из диапазона 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// DecodeJSON декодирует тело в v.
func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response json: %w", err)
	}

	return nil
}

// Message извлекает человекочитаемое сообщение сервера.
// Бизнес-ошибки (4xx/5xx с доменным текстом) — не-бросаемые значения:
// UI показывает сообщение сервера, а при его отсутствии — общее.
//
// Поддерживаются формы {"message": "..."} и {"error": {"message": "..."}};
// не-JSON тело трактуется как текст сообщения.
func (r *Response) Message() string {
	body := strings.TrimSpace(string(r.Body))
	if body == "" {
		return genericFailureMessage
	}

	var flat struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(r.Body, &flat); err == nil && flat.Message != "" {
		return flat.Message
	}

	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(r.Body, &nested); err == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}

	if !json.Valid(r.Body) {
		return body
	}

	return genericFailureMessage
}
