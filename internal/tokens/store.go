// tokens — хранилище пары access/refresh-токенов.
//
// Пакет определяет узкий контракт Store и три реализации: in-memory
// (по умолчанию), файловую и Redis. Вышележащие компоненты зависят только
// от интерфейса, что позволяет подменять механизм хранения, не трогая
// вызывающий код.
//
// Инвариант всех реализаций: пара записывается и читается целиком.
// Частичная пара (один ключ есть, второго нет) трактуется как отсутствие
// пары.
package tokens

import (
	"context"
	"errors"

	"github.com/akimovaa/go-storefront-auth/internal/models"
)

var (
	// ErrStoreUnavailable — бэкенд хранилища недоступен (например, Redis
	// не отвечает). Отсутствие пары ошибкой не считается.
	ErrStoreUnavailable = errors.New("token store unavailable")
)

//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks

// Store — контракт хранилища пары токенов.
//
// Все реализации потокобезопасны: запись пары — одна атомарная операция,
// чтения идемпотентны.
type Store interface {
	// Pair возвращает текущую пару и признак её наличия.
	// Отсутствие пары — не ошибка: (zero, false, nil).
	Pair(ctx context.Context) (models.TokenPair, bool, error)
	// SetPair атомарно сохраняет оба значения, перезаписывая прежнюю пару.
	// Неполная пара отвергается.
	SetPair(ctx context.Context, pair models.TokenPair) error
	// Clear удаляет оба значения. Повторный Clear — no-op.
	Clear(ctx context.Context) error
	// Close освобождает ресурсы бэкенда.
	Close() error
}

// ErrIncompletePair — попытка сохранить пару без одного из токенов.
var ErrIncompletePair = errors.New("incomplete token pair")
