package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/phrazzld/literacy-poster/internal/platform/logger"
	"github.com/phrazzld/literacy-poster/internal/store"
)

const kvTable = "kv_entries"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// KVStore implements store.KeyValueStore on the kv_entries table.
type KVStore struct {
	db *sql.DB
}

// NewKVStore creates a store over an open database. Run Migrate first.
func NewKVStore(db *sql.DB) *KVStore {
	return &KVStore{db: db}
}

var _ store.KeyValueStore = (*KVStore)(nil)

// Get implements store.KeyValueStore.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.get(ctx, s.db, key, false)
}

func (s *KVStore) get(ctx context.Context, q store.DBTX, key string, forUpdate bool) ([]byte, error) {
	b := psql.Select("value").From(kvTable).Where(sq.Eq{"key": key})
	if forUpdate {
		b = b.Suffix("FOR UPDATE")
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var value []byte
	if err := q.QueryRowContext(ctx, query, args...).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		logger.FromContext(ctx).Error("failed to read key", slog.String("key", key), slog.Any("error", err))
		return nil, MapError(err)
	}
	return value, nil
}

// Set implements store.KeyValueStore.
func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	return s.set(ctx, s.db, key, value)
}

func (s *KVStore) set(ctx context.Context, q store.DBTX, key string, value []byte) error {
	query, args, err := psql.Insert(kvTable).
		Columns("key", "value", "updated_at").
		Values(key, string(value), time.Now().UTC()).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		logger.FromContext(ctx).Error("failed to write key", slog.String("key", key), slog.Any("error", err))
		return MapError(err)
	}
	return nil
}

// Delete implements store.KeyValueStore.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	query, args, err := psql.Delete(kvTable).Where(sq.Eq{"key": key}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return MapError(err)
	}
	return nil
}

// Keys implements store.KeyValueStore.
func (s *KVStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	query, args, err := psql.Select("key").
		From(kvTable).
		Where(sq.Like{"key": escapeLike(prefix) + "%"}).
		OrderBy("key").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.FromContext(ctx).Error("failed to close rows", slog.Any("error", err))
		}
	}()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, MapError(err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return keys, nil
}

// Update implements store.KeyValueStore. An advisory lock on the key is held
// for the duration of fn; a row lock alone would not serialize updates of a
// key that has no row yet.
func (s *KVStore) Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error {
	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := lockKey(ctx, tx, key); err != nil {
			return err
		}

		current, err := s.get(ctx, tx, key, true)
		if err != nil && !store.IsNotFoundError(err) {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		return s.set(ctx, tx, key, next)
	})
}

// lockKey takes a transaction-scoped advisory lock derived from key.
func lockKey(ctx context.Context, tx *sql.Tx, key string) error {
	query, args, err := psql.Select().Column(sq.Expr("pg_advisory_xact_lock(hashtext(?))", key)).ToSql()
	if err != nil {
		return fmt.Errorf("build advisory lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		logger.FromContext(ctx).Error("failed to lock key", slog.String("key", key), slog.Any("error", err))
		return MapError(err)
	}
	return nil
}

// escapeLike escapes LIKE wildcards so prefixes match literally.
func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
