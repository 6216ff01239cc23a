package tokens

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/akimovaa/go-storefront-auth/internal/models"
)

// Общий контрактный прогон для memory и file бэкендов.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()

	ctx := context.Background()

	t.Run("empty store has no pair", func(t *testing.T) {
		st := newStore(t)
		defer func() { _ = st.Close() }()

		_, ok, err := st.Pair(ctx)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("set then read", func(t *testing.T) {
		st := newStore(t)
		defer func() { _ = st.Close() }()

		want := models.TokenPair{AccessToken: "at-1", RefreshToken: "rt-1"}
		require.NoError(t, st.SetPair(ctx, want))

		got, ok, err := st.Pair(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, want, got)
	})

	t.Run("set overwrites previous pair", func(t *testing.T) {
		st := newStore(t)
		defer func() { _ = st.Close() }()

		require.NoError(t, st.SetPair(ctx, models.TokenPair{AccessToken: "at-1", RefreshToken: "rt-1"}))
		require.NoError(t, st.SetPair(ctx, models.TokenPair{AccessToken: "at-2", RefreshToken: "rt-2"}))

		got, ok, err := st.Pair(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "at-2", got.AccessToken)
		require.Equal(t, "rt-2", got.RefreshToken)
	})

	t.Run("incomplete pair rejected", func(t *testing.T) {
		st := newStore(t)
		defer func() { _ = st.Close() }()

		err := st.SetPair(ctx, models.TokenPair{AccessToken: "at-only"})
		require.ErrorIs(t, err, ErrIncompletePair)

		_, ok, err := st.Pair(ctx)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("clear removes pair and is idempotent", func(t *testing.T) {
		st := newStore(t)
		defer func() { _ = st.Close() }()

		require.NoError(t, st.SetPair(ctx, models.TokenPair{AccessToken: "at", RefreshToken: "rt"}))
		require.NoError(t, st.Clear(ctx))
		require.NoError(t, st.Clear(ctx))

		_, ok, err := st.Pair(ctx)
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestMemoryStore_Contract(t *testing.T) {
	t.Parallel()

	runStoreContract(t, func(t *testing.T) Store {
		return NewMemory()
	})
}

func TestFileStore_Contract(t *testing.T) {
	t.Parallel()

	runStoreContract(t, func(t *testing.T) Store {
		st, err := NewFile(filepath.Join(t.TempDir(), "tokens.json"))
		require.NoError(t, err)
		return st
	})
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.json")

	st, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, st.SetPair(ctx, models.TokenPair{AccessToken: "at", RefreshToken: "rt"}))
	require.NoError(t, st.Close())

	st2, err := NewFile(path)
	require.NoError(t, err)

	got, ok, err := st2.Pair(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "at", got.AccessToken)
	require.Equal(t, "rt", got.RefreshToken)
}

func TestFileStore_CorruptFileReadsAsAbsent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	st, err := NewFile(path)
	require.NoError(t, err)

	_, ok, err := st.Pair(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFileStore_EmptyPathRejected(t *testing.T) {
	t.Parallel()

	_, err := NewFile("")
	require.Error(t, err)
}
