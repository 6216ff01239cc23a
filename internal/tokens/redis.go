package tokens

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/akimovaa/go-storefront-auth/internal/models"
)

// Ключи пары в Redis (поверх префикса).
const (
	keyAccessToken  = "accessToken"
	keyRefreshToken = "refreshToken"
)

// legacyKeys — ключи прежних версий клиента. Кроме пары токенов никакое
// аутентификационное состояние не персистится, поэтому остатки старых
// схем вычищаются при старте.
var legacyKeys = []string{"token", "authToken", "userInfo"}

type redisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedis создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "store:auth:". При создании выполняется
// fail-fast ping и удаление legacy-ключей.
func NewRedis(ctx context.Context, redisURL, prefix string) (Store, error) {
	const op = "tokens.redis.NewRedis"

	if prefix == "" {
		prefix = "store:auth:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}

	s := &redisStore{rdb: rdb, prefix: prefix}

	if err := s.purgeLegacy(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s, nil
}

func (s *redisStore) key(name string) string { return s.prefix + name }

// purgeLegacy удаляет ключи устаревших схем хранения.
func (s *redisStore) purgeLegacy(ctx context.Context) error {
	keys := make([]string, 0, len(legacyKeys))
	for _, k := range legacyKeys {
		keys = append(keys, s.key(k))
	}

	return s.rdb.Del(ctx, keys...).Err()
}

func (s *redisStore) Pair(ctx context.Context) (models.TokenPair, bool, error) {
	const op = "tokens.redis.Pair"

	vals, err := s.rdb.MGet(ctx, s.key(keyAccessToken), s.key(keyRefreshToken)).Result()
	if err != nil {
		return models.TokenPair{}, false, fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}

	pair := models.TokenPair{
		AccessToken:  asString(vals[0]),
		RefreshToken: asString(vals[1]),
	}

	// Неполная пара (след оборванной записи прежних версий) — отсутствие.
	if !pair.Complete() {
		return models.TokenPair{}, false, nil
	}

	return pair, true, nil
}

func (s *redisStore) SetPair(ctx context.Context, pair models.TokenPair) error {
	const op = "tokens.redis.SetPair"

	if !pair.Complete() {
		return ErrIncompletePair
	}

	// MSet атомарен: оба значения становятся видимы одновременно.
	err := s.rdb.MSet(ctx,
		s.key(keyAccessToken), pair.AccessToken,
		s.key(keyRefreshToken), pair.RefreshToken,
	).Err()
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}

	return nil
}

func (s *redisStore) Clear(ctx context.Context) error {
	const op = "tokens.redis.Clear"

	err := s.rdb.Del(ctx, s.key(keyAccessToken), s.key(keyRefreshToken)).Err()
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}

	return nil
}

func (s *redisStore) Close() error { return s.rdb.Close() }

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}

	return ""
}
