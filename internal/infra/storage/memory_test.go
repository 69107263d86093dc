package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/research-camera/internal/domain/kv"
)

// exerciseStore runs the same contract checks against any kv.Store.
func exerciseStore(t *testing.T, s kv.Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "arc_users")
	assert.ErrorIs(t, err, kv.ErrNotFound)

	require.NoError(t, s.Set(ctx, "arc_users", []byte(`[{"id":"1"}]`)))
	require.NoError(t, s.Set(ctx, "arc_session", []byte(`{"id":"1"}`)))
	require.NoError(t, s.Set(ctx, "other", []byte(`{}`)))

	got, err := s.Get(ctx, "arc_users")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"1"}]`, string(got))

	require.NoError(t, s.Set(ctx, "arc_users", []byte(`[]`)))
	got, err = s.Get(ctx, "arc_users")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(got))

	keys, err := s.Keys(ctx, "arc_")
	require.NoError(t, err)
	assert.Equal(t, []string{"arc_session", "arc_users"}, keys)

	require.NoError(t, s.Delete(ctx, "arc_session"))
	assert.ErrorIs(t, s.Delete(ctx, "arc_session"), kv.ErrNotFound)
	_, err = s.Get(ctx, "arc_session")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestMemory_Contract(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemory_CopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	v := []byte(`{"a":1}`)
	require.NoError(t, m.Set(ctx, "k", v))
	v[2] = 'b'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))
}
