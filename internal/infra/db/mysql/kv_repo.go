package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bryanwahyu/research-camera/internal/domain/kv"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_store (
  k          VARCHAR(191) NOT NULL PRIMARY KEY,
  v          LONGTEXT     NOT NULL,
  updated_at DATETIME(3)  NOT NULL
) DEFAULT CHARSET=utf8mb4;`

// KVRepository implements kv.Store on a single MySQL table.
type KVRepository struct {
	db *sql.DB
}

func NewKVRepository(db *sql.DB) *KVRepository {
	return &KVRepository{db: db}
}

// EnsureSchema creates the kv_store table when it does not exist.
func (r *KVRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *KVRepository) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `SELECT v FROM kv_store WHERE k=?;`
	var v string
	if err := r.db.QueryRowContext(ctx, q, key).Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, kv.ErrNotFound
		}
		return nil, err
	}
	return []byte(v), nil
}

func (r *KVRepository) Set(ctx context.Context, key string, value []byte) error {
	const q = `
INSERT INTO kv_store (k, v, updated_at)
VALUES (?,?,?)
ON DUPLICATE KEY UPDATE
  v=VALUES(v), updated_at=VALUES(updated_at);
`
	_, err := r.db.ExecContext(ctx, q, key, string(value), time.Now().UTC())
	return err
}

func (r *KVRepository) Delete(ctx context.Context, key string) error {
	const q = `DELETE FROM kv_store WHERE k=?;`
	res, err := r.db.ExecContext(ctx, q, key)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return kv.ErrNotFound
	}
	return nil
}

func (r *KVRepository) Keys(ctx context.Context, prefix string) ([]string, error) {
	const q = `SELECT k FROM kv_store WHERE k LIKE ? ORDER BY k;`
	rows, err := r.db.QueryContext(ctx, q, likePrefix(prefix))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (r *KVRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
