package tokens

import (
	"context"
	"fmt"

	"github.com/akimovaa/go-storefront-auth/internal/config"
)

// FromConfig создаёт хранилище по конфигурации.
func FromConfig(ctx context.Context, cfg config.TokensConfig) (Store, error) {
	const op = "tokens.factory.FromConfig"

	switch cfg.Backend {
	case config.TokensBackendMemory, "":
		return NewMemory(), nil
	case config.TokensBackendFile:
		st, err := NewFile(cfg.FilePath)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		return st, nil
	case config.TokensBackendRedis:
		st, err := NewRedis(ctx, cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		return st, nil
	default:
		return nil, fmt.Errorf("%s: unknown tokens backend %q", op, cfg.Backend)
	}
}
