// Package kv содержит общие операции над domain.KVStore: JSON-записи и
// списки идентификаторов, хранящиеся как JSON-массивы.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
)

// GetJSON читает и декодирует запись. Отсутствующий ключ и повреждённый JSON
// дают found=false без ошибки; повреждение логируется.
func GetJSON(ctx context.Context, store domain.KVStore, key string, dst any) (bool, error) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, domain.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		log.WithFields(log.Fields{
			"component": "kv",
			"key":       key,
		}).WithError(err).Warn("corrupted record treated as missing")
		return false, nil
	}
	return true, nil
}

// SetJSON кодирует и записывает значение с TTL (0 — бессрочно).
func SetJSON(ctx context.Context, store domain.KVStore, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := store.Set(ctx, key, string(payload), ttl); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
