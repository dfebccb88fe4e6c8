package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
)

const opTimeout = 5 * time.Second

// KVStore реализует domain.KVStore поверх таблицы kv_entries.
// Срок жизни вычисляется часами базы, истёкшие строки невидимы для чтения
// и удаляются пакетно через DeleteExpired.
type KVStore struct {
	db *sql.DB
}

// NewKVStore создаёт PostgreSQL-реализацию KVStore.
func NewKVStore(store *Store) *KVStore {
	return &KVStore{db: store.DB()}
}

func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value
		FROM kv_entries
		WHERE key = $1
		  AND (expires_at IS NULL OR expires_at > NOW())
	`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrKeyNotFound
		}
		return "", fmt.Errorf("get kv entry %s: %w", key, err)
	}
	return value, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_entries (key, value, expires_at, updated_at)
		VALUES ($1, $2, `+expiresAtExpr+`, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = EXCLUDED.updated_at
	`, key, value, ttl.Seconds())
	if err != nil {
		return fmt.Errorf("set kv entry %s: %w", key, err)
	}
	return nil
}

func (s *KVStore) Del(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete kv entry %s: %w", key, err)
	}
	return nil
}

// SetNX вставляет ключ, только если он отсутствует или истёк.
// Конкурирующие вставки сериализуются первичным ключом.
func (s *KVStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_entries (key, value, expires_at, updated_at)
		VALUES ($1, $2, `+expiresAtExpr+`, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = EXCLUDED.updated_at
		WHERE kv_entries.expires_at IS NOT NULL
		  AND kv_entries.expires_at <= NOW()
	`, key, value, ttl.Seconds())
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("setnx kv entry %s: %w", key, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("kv rows affected: %w", err)
	}
	return affected == 1, nil
}

func (s *KVStore) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("postgres kv store is not initialized")
	}
	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

// DeleteExpired удаляет истёкшие записи пачками, самые старые первыми.
// limit<=0 снимает ограничение на размер пачки.
func (s *KVStore) DeleteExpired(ctx context.Context, before time.Time, limit int) ([]string, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, `
			DELETE FROM kv_entries
			WHERE key IN (
				SELECT key
				FROM kv_entries
				WHERE expires_at IS NOT NULL AND expires_at <= $1
				ORDER BY expires_at ASC
				LIMIT $2
			)
			RETURNING key
		`, before, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			DELETE FROM kv_entries
			WHERE expires_at IS NOT NULL AND expires_at <= $1
			RETURNING key
		`, before)
	}
	if err != nil {
		return nil, fmt.Errorf("delete expired kv entries: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan deleted kv key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deleted kv keys: %w", err)
	}
	return keys, nil
}

// expiresAtExpr переводит TTL в секундах ($3) в момент истечения; 0 — бессрочно.
const expiresAtExpr = `CASE WHEN $3::double precision > 0 THEN NOW() + make_interval(secs => $3::double precision) ELSE NULL END`

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var (
	_ domain.KVStore       = (*KVStore)(nil)
	_ domain.ExpiringStore = (*KVStore)(nil)
)
