// auth содержит менеджер жизненного цикла пары токенов: чтение и запись
// пары через хранилище, декодирование claims access-токена, проверку
// истечения и обмен refresh-токена на новую пару.
//
// Основные аспекты:
//   - Manager не хранит состояние запроса; экземпляр безопасен для
//     конкурентного использования при потокобезопасном хранилище.
//   - Ожидаемые отказы (отсутствующий токен, битый payload) возвращаются
//     значениями, а не паниками и не ошибками там, где спецификация
//     контракта требует "absent".
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/akimovaa/go-storefront-auth/internal/models"
	"github.com/akimovaa/go-storefront-auth/internal/tokens"
)

var (
	// ErrNoRefreshToken — refresh-токен отсутствует в хранилище;
	// обмен невозможен, состояние очищено.
	ErrNoRefreshToken = errors.New("no refresh token")

	// ErrRefreshFailed — обмен refresh-токена отклонён сервером или
	// не состоялся (сетевая ошибка, некорректный ответ); состояние
	// очищено, сессия завершена.
	ErrRefreshFailed = errors.New("token refresh failed")
)

// Config — зависимости и настройки менеджера.
type Config struct {
	// BaseURL — базовый URL удалённого API (без завершающего /).
	BaseURL string
	// RefreshPath — путь эндпоинта обмена токенов.
	RefreshPath string
	// HTTPClient — транспорт для обмена; nil заменяется клиентом
	// с таймаутом 15s.
	HTTPClient *http.Client
	// OnSessionExpired вызывается один раз за неудачный обмен —
	// это точка, где UI уводит пользователя на вход. Может быть nil.
	OnSessionExpired func()
}

// Manager владеет парой токенов процесса.
type Manager struct {
	store            tokens.Store
	hc               *http.Client
	refreshURL       string
	onSessionExpired func()

	// Одновременные вызовы Refresh схлопываются в один обмен:
	// параллельно упавшие запросы не множат обращения к эндпоинту.
	sf singleflight.Group

	now func() time.Time
}

// New создаёт менеджер поверх хранилища.
func New(store tokens.Store, cfg Config) *Manager {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}

	return &Manager{
		store:            store,
		hc:               hc,
		refreshURL:       strings.TrimRight(cfg.BaseURL, "/") + cfg.RefreshPath,
		onSessionExpired: cfg.OnSessionExpired,
		now:              time.Now,
	}
}

// AccessToken возвращает текущий access-токен и признак его наличия.
// Ошибки хранилища приравниваются к отсутствию токена: чтение никогда
// не роняет вызывающего.
func (m *Manager) AccessToken(ctx context.Context) (string, bool) {
	pair, ok, err := m.store.Pair(ctx)
	if err != nil || !ok {
		return "", false
	}

	return pair.AccessToken, true
}

// RefreshToken — симметричное чтение refresh-токена.
func (m *Manager) RefreshToken(ctx context.Context) (string, bool) {
	pair, ok, err := m.store.Pair(ctx)
	if err != nil || !ok {
		return "", false
	}

	return pair.RefreshToken, true
}

// SetPair атомарно персистит новую пару.
func (m *Manager) SetPair(ctx context.Context, pair models.TokenPair) error {
	return m.store.SetPair(ctx, pair)
}

// Clear удаляет пару (logout, провал обмена, смена пароля).
func (m *Manager) Clear(ctx context.Context) error {
	return m.store.Clear(ctx)
}

// sessionExpired очищает состояние и дёргает колбэк завершения сессии.
func (m *Manager) sessionExpired(ctx context.Context) {
	_ = m.store.Clear(ctx)

	if m.onSessionExpired != nil {
		m.onSessionExpired()
	}
}
