package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/akimovaa/go-storefront-auth/internal/models"
)

// fileStore — пара токенов в JSON-файле (для CLI/киоска, переживает
// перезапуск процесса). Запись атомарная: во временный файл + rename.
type fileStore struct {
	mu   sync.Mutex
	path string
}

type filePayload struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// NewFile создаёт файловое хранилище по указанному пути.
// Файл создаётся лениво при первом SetPair с правами 0600.
func NewFile(path string) (Store, error) {
	const op = "tokens.file.NewFile"

	if path == "" {
		return nil, fmt.Errorf("%s: empty file path", op)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &fileStore{path: path}, nil
}

func (s *fileStore) Pair(_ context.Context) (models.TokenPair, bool, error) {
	const op = "tokens.file.Pair"

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.TokenPair{}, false, nil
		}

		return models.TokenPair{}, false, fmt.Errorf("%s: %w", op, err)
	}

	var payload filePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		// Битый файл считаем отсутствием пары: чтение никогда
		// не роняет вызывающего.
		return models.TokenPair{}, false, nil
	}

	pair := models.TokenPair{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
	}
	if !pair.Complete() {
		return models.TokenPair{}, false, nil
	}

	return pair, true, nil
}

func (s *fileStore) SetPair(_ context.Context, pair models.TokenPair) error {
	const op = "tokens.file.SetPair"

	if !pair.Complete() {
		return ErrIncompletePair
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(filePayload{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *fileStore) Clear(_ context.Context) error {
	const op = "tokens.file.Clear"

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *fileStore) Close() error { return nil }
