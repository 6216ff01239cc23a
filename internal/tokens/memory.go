package tokens

import (
	"context"
	"sync"

	"github.com/akimovaa/go-storefront-auth/internal/models"
)

// memoryStore — хранилище пары в памяти процесса. Бэкенд по умолчанию.
type memoryStore struct {
	mu   sync.RWMutex
	pair models.TokenPair
	has  bool
}

// NewMemory создаёт пустое in-memory хранилище.
func NewMemory() Store {
	return &memoryStore{}
}

func (s *memoryStore) Pair(_ context.Context) (models.TokenPair, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.has {
		return models.TokenPair{}, false, nil
	}

	return s.pair, true, nil
}

func (s *memoryStore) SetPair(_ context.Context, pair models.TokenPair) error {
	if !pair.Complete() {
		return ErrIncompletePair
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pair = pair
	s.has = true

	return nil
}

func (s *memoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pair = models.TokenPair{}
	s.has = false

	return nil
}

func (s *memoryStore) Close() error { return nil }
