package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/bryanwahyu/research-camera/internal/config"
	"github.com/bryanwahyu/research-camera/internal/domain/kv"
	"github.com/bryanwahyu/research-camera/internal/infra/db/mysql"
	"github.com/bryanwahyu/research-camera/internal/infra/db/postgres"
	"github.com/bryanwahyu/research-camera/internal/logger"
)

// Open picks the kv.Store backend named by cfg.Storage.Driver. The returned
// close func releases connections held by the backend and is never nil.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (kv.Store, func() error, error) {
	noop := func() error { return nil }
	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))

	switch driver {
	case "", "file":
		s, err := NewFile(cfg.Storage.Path)
		if err != nil {
			return nil, noop, fmt.Errorf("open file store: %w", err)
		}
		log.Debug().Str("path", s.Path()).Msg("using file store")
		return s, noop, nil

	case "memory":
		return NewMemory(), noop, nil

	case "redis":
		s, err := NewRedis(ctx, cfg.Storage.RedisURL, cfg.Storage.Prefix)
		if err != nil {
			return nil, noop, fmt.Errorf("open redis store: %w", err)
		}
		return s, s.Close, nil

	case "minio":
		m := cfg.Storage.Minio
		s, err := NewMinio(ctx, MinioOptions{
			Endpoint:  m.Endpoint,
			Region:    m.Region,
			Bucket:    m.BucketName,
			AccessKey: m.AccessKey,
			SecretKey: m.SecretKey,
			UseSSL:    m.UseSSL,
			Prefix:    cfg.Storage.Prefix,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("open minio store: %w", err)
		}
		return s, noop, nil

	case "mysql":
		db, err := mysql.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, noop, fmt.Errorf("connect mysql: %w", err)
		}
		repo := mysql.NewKVRepository(db)
		return withSchema(ctx, repo, db, repo.EnsureSchema)

	case "postgres":
		db, err := postgres.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, noop, fmt.Errorf("connect postgres: %w", err)
		}
		repo := postgres.NewKVRepository(db)
		return withSchema(ctx, repo, db, repo.EnsureSchema)
	}

	return nil, noop, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func withSchema(ctx context.Context, s kv.Store, db *sql.DB, ensure func(context.Context) error) (kv.Store, func() error, error) {
	if err := ensure(ctx); err != nil {
		_ = db.Close()
		return nil, func() error { return nil }, fmt.Errorf("ensure schema: %w", err)
	}
	return s, db.Close, nil
}

// Ping checks a remote backend through kv.Pinger. Local stores always pass.
func Ping(ctx context.Context, s kv.Store) error {
	p, ok := s.(kv.Pinger)
	if !ok {
		return nil
	}
	return p.Ping(ctx)
}
