package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/akimovaa/go-storefront-auth/internal/httpclient"
)

// Статусы сессии подтверждения.
type Status string

const (
	// StatusIdle — начальное состояние, цель редактируема.
	StatusIdle Status = "idle"
	// StatusSending — код отправляется на цель.
	StatusSending Status = "sending"
	// StatusAwaitingInput — код отправлен, идёт отсчёт, ожидается ввод.
	StatusAwaitingInput Status = "awaiting-input"
	// StatusVerifying — введённый код проверяется сервером.
	StatusVerifying Status = "verifying"
	// StatusSucceeded — код подтверждён; терминальное для цикла.
	StatusSucceeded Status = "succeeded"
	// StatusExpired — окно истекло; допустима только повторная отправка.
	StatusExpired Status = "expired"
)

var (
	// ErrInvalidTarget — цель не прошла проверку формата;
	// сетевой вызов не выполнялся.
	ErrInvalidTarget = errors.New("invalid verification target")

	// ErrEmptyCode — пустой ввод кода; сетевой вызов не выполнялся.
	ErrEmptyCode = errors.New("empty verification code")

	// ErrCodeRejected — сервер отклонил код; допустим повторный ввод
	// до истечения окна.
	ErrCodeRejected = errors.New("verification code rejected")

	// ErrCodeExpired — окно истекло (в том числе пока проверка была
	// в полёте: истечение всегда побеждает поздний ответ).
	ErrCodeExpired = errors.New("verification code expired")

	// ErrSendFailed — отправка кода не состоялась (сеть или отказ сервера).
	ErrSendFailed = errors.New("verification send failed")

	// ErrVerifyFailed — проверка кода не состоялась по транспортной причине.
	ErrVerifyFailed = errors.New("verification request failed")

	// ErrSessionClosed — операция над закрытой сессией.
	ErrSessionClosed = errors.New("verification session closed")

	// ErrInvalidState — операция недопустима в текущем статусе
	// (например, Confirm до отправки кода).
	ErrInvalidState = errors.New("invalid session state")
)

// Doer — минимальный контракт HTTP-клиента, нужный сессии.
// Ему удовлетворяет httpclient.Client.
type Doer interface {
	Post(ctx context.Context, path string, opts ...httpclient.RequestOption) (*httpclient.Response, error)
}

// Snapshot — срез состояния сессии для отрисовки.
type Snapshot struct {
	Target           string
	Status           Status
	CodeSent         bool
	SecondsRemaining int
	TargetLocked     bool
}

// Option настраивает сессию при создании.
type Option func(*Session)

// WithSuccessCallback задаёт колбэк успешного подтверждения;
// вызывается с подтверждённой целью до сброса сессии.
func WithSuccessCallback(fn func(target string)) Option {
	return func(s *Session) { s.onSuccess = fn }
}

// WithExpiredCallback задаёт колбэк истечения окна.
func WithExpiredCallback(fn func()) Option {
	return func(s *Session) { s.onExpired = fn }
}

// WithTickInterval переопределяет период тика (сокращается в тестах).
func WithTickInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.tick = d
		}
	}
}

// Session — машина состояний одного окна подтверждения.
//
// Жизненный цикл: idle → sending → awaiting-input ⇄ verifying →
// {succeeded | expired}; отказ сервера по коду возвращает в awaiting-input.
// Каждому циклу отправки соответствует идентификатор cycle: завершения
// устаревших асинхронных операций (поздний ответ после истечения, сброса
// или закрытия) отбрасываются по несовпадению идентификатора.
type Session struct {
	flow      Flow
	api       Doer
	onSuccess func(target string)
	onExpired func()
	tick      time.Duration

	mu        sync.Mutex
	status    Status
	target    string
	locked    bool
	codeSent  bool
	remaining int
	cycle     uuid.UUID
	stop      chan struct{}
	closed    bool
}

// NewSession создаёт сессию потока flow поверх HTTP-клиента api.
func NewSession(flow Flow, api Doer, opts ...Option) *Session {
	s := &Session{
		flow:   flow,
		api:    api,
		tick:   time.Second,
		status: StatusIdle,
	}

	for _, apply := range opts {
		apply(s)
	}

	return s
}

// Send валидирует цель и отправляет на неё код.
//
// Невалидный формат цели — ErrInvalidTarget без сетевого вызова, сессия
// остаётся в idle. Успешная отправка переводит в awaiting-input, блокирует
// цель и запускает отсчёт полного окна.
func (s *Session) Send(ctx context.Context, target string) error {
	const op = "verify.session.Send"

	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", op, ErrSessionClosed)
	}

	if s.status != StatusIdle {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w: %s", op, ErrInvalidState, s.status)
	}

	norm, err := s.flow.Validate(target)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w: %v", op, ErrInvalidTarget, err)
	}

	s.status = StatusSending
	s.target = norm
	cycle := uuid.New()
	s.cycle = cycle
	s.mu.Unlock()

	return s.completeSend(ctx, op, cycle)
}

// Resend повторно отправляет код на текущую цель из awaiting-input или
// expired: окно сбрасывается на полное, цель блокируется заново.
func (s *Session) Resend(ctx context.Context) error {
	const op = "verify.session.Resend"

	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", op, ErrSessionClosed)
	}

	if s.status != StatusAwaitingInput && s.status != StatusExpired {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w: %s", op, ErrInvalidState, s.status)
	}

	if _, err := s.flow.Validate(s.target); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w: %v", op, ErrInvalidTarget, err)
	}

	s.stopCountdownLocked()
	s.status = StatusSending
	cycle := uuid.New()
	s.cycle = cycle
	s.mu.Unlock()

	return s.completeSend(ctx, op, cycle)
}

// completeSend выполняет сетевую отправку и применяет её исход,
// если цикл всё ещё актуален.
func (s *Session) completeSend(ctx context.Context, op string, cycle uuid.UUID) error {
	opts := []httpclient.RequestOption{httpclient.WithJSON(map[string]string{"target": s.targetSnapshot()})}
	if !s.flow.Authenticated {
		opts = append(opts, httpclient.WithoutAuth())
	}

	resp, sendErr := s.api.Post(ctx, s.flow.SendPath, opts...)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.cycle != cycle {
		// Сессию сбросили, пока запрос был в полёте: исход отбрасывается.
		return fmt.Errorf("%s: %w", op, ErrSessionClosed)
	}

	if sendErr != nil {
		s.status = StatusIdle
		s.locked = false
		return fmt.Errorf("%s: %w: %v", op, ErrSendFailed, sendErr)
	}

	if !resp.OK() {
		s.status = StatusIdle
		s.locked = false
		return fmt.Errorf("%s: %w: %s", op, ErrSendFailed, resp.Message())
	}

	s.status = StatusAwaitingInput
	s.codeSent = true
	s.locked = true
	s.remaining = int(s.flow.Window / time.Second)
	s.startCountdownLocked(cycle)

	return nil
}

// Confirm проверяет введённый код.
//
// Пустой код — ErrEmptyCode без сетевого вызова. Отказ сервера —
// ErrCodeRejected с сообщением, сессия возвращается в awaiting-input
// (повторный ввод допустим до истечения окна). Успех вызывает колбэк
// с подтверждённой целью и полностью сбрасывает сессию. Если окно истекло,
// пока проверка была в полёте, результат отбрасывается — ErrCodeExpired.
func (s *Session) Confirm(ctx context.Context, code string) error {
	const op = "verify.session.Confirm"

	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", op, ErrSessionClosed)
	}

	if s.status == StatusExpired {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", op, ErrCodeExpired)
	}

	if s.status != StatusAwaitingInput {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w: %s", op, ErrInvalidState, s.status)
	}

	if strings.TrimSpace(code) == "" {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", op, ErrEmptyCode)
	}

	s.status = StatusVerifying
	cycle := s.cycle
	target := s.target
	s.mu.Unlock()

	opts := []httpclient.RequestOption{httpclient.WithJSON(map[string]string{
		"target": target,
		"code":   strings.TrimSpace(code),
	})}
	if !s.flow.Authenticated {
		opts = append(opts, httpclient.WithoutAuth())
	}

	resp, verifyErr := s.api.Post(ctx, s.flow.ConfirmPath, opts...)

	s.mu.Lock()

	if s.closed || s.cycle != cycle {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", op, ErrSessionClosed)
	}

	// Тик, дошедший до нуля, всегда побеждает поздний ответ того же цикла.
	if s.status == StatusExpired {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", op, ErrCodeExpired)
	}

	if verifyErr != nil {
		s.status = StatusAwaitingInput
		s.mu.Unlock()
		return fmt.Errorf("%s: %w: %v", op, ErrVerifyFailed, verifyErr)
	}

	if !resp.OK() {
		s.status = StatusAwaitingInput
		s.mu.Unlock()
		return fmt.Errorf("%s: %w: %s", op, ErrCodeRejected, resp.Message())
	}

	s.status = StatusSucceeded
	s.stopCountdownLocked()
	callback := s.onSuccess
	s.resetLocked()
	s.mu.Unlock()

	if callback != nil {
		callback(target)
	}

	return nil
}

// Close останавливает отсчёт и сбрасывает сессию. Запросы в полёте
// становятся устаревшими: их исходы (включая колбэк успеха) не наблюдаемы.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.stopCountdownLocked()
	s.resetLocked()
}

// Snapshot возвращает срез состояния для отрисовки.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Target:           s.target,
		Status:           s.status,
		CodeSent:         s.codeSent,
		SecondsRemaining: s.remaining,
		TargetLocked:     s.locked,
	}
}

// Status возвращает текущий статус.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status
}

// Remaining возвращает оставшиеся секунды окна.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.remaining
}

func (s *Session) targetSnapshot() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.target
}

// resetLocked приводит сессию к начальному состоянию. cycle обнуляется,
// чтобы завершения запросов прежних циклов были отброшены.
func (s *Session) resetLocked() {
	s.status = StatusIdle
	s.target = ""
	s.locked = false
	s.codeSent = false
	s.remaining = 0
	s.cycle = uuid.Nil
}

// startCountdownLocked запускает тикер цикла cycle. Вызывается под мьютексом.
func (s *Session) startCountdownLocked(cycle uuid.UUID) {
	s.stopCountdownLocked()

	stop := make(chan struct{})
	s.stop = stop

	go s.countdown(cycle, stop)
}

// stopCountdownLocked останавливает текущий тикер, если он есть.
func (s *Session) stopCountdownLocked() {
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

// countdown — секундный тик обратного отсчёта. Достижение нуля принудительно
// переводит сессию в expired независимо от запросов в полёте.
func (s *Session) countdown(cycle uuid.UUID, stop chan struct{}) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		s.mu.Lock()

		if s.closed || s.cycle != cycle {
			s.mu.Unlock()
			return
		}

		if s.status != StatusAwaitingInput && s.status != StatusVerifying {
			s.mu.Unlock()
			return
		}

		s.remaining--
		if s.remaining > 0 {
			s.mu.Unlock()
			continue
		}

		s.remaining = 0
		s.status = StatusExpired
		s.codeSent = false
		s.locked = false
		if s.stop == stop {
			s.stop = nil
		}
		expired := s.onExpired
		s.mu.Unlock()

		if expired != nil {
			expired()
		}

		return
	}
}

// FormatRemaining форматирует остаток окна как MM:SS с ведущими нулями.
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}

	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
