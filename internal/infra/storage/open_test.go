package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/research-camera/internal/config"
	"github.com/bryanwahyu/research-camera/internal/logger"
)

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()

	cfg := config.Default()
	cfg.Storage.Driver = "memory"
	s, closeFn, err := Open(ctx, cfg, logger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)
	assert.NoError(t, closeFn())

	cfg.Storage.Driver = "FILE"
	cfg.Storage.Path = filepath.Join(t.TempDir(), "state.json")
	s, _, err = Open(ctx, cfg, logger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &File{}, s)
}

func TestOpen_UnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = "floppy"
	_, closeFn, err := Open(context.Background(), cfg, logger.Nop())
	assert.ErrorContains(t, err, "floppy")
	assert.NotNil(t, closeFn)
}

type downStore struct{ *Memory }

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestPing(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, Ping(ctx, NewMemory()))
	assert.EqualError(t, Ping(ctx, downStore{NewMemory()}), "connection refused")
}
