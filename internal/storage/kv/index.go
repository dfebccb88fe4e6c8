package kv

import (
	"context"
	"slices"
	"time"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
)

// ReadIDs возвращает список идентификаторов индекса, новые первыми.
func ReadIDs(ctx context.Context, store domain.KVStore, key string) ([]string, error) {
	var ids []string
	if _, err := GetJSON(ctx, store, key, &ids); err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// PrependID добавляет id в начало индекса, если его там ещё нет.
// limit > 0 обрезает индекс до limit самых новых записей.
func PrependID(ctx context.Context, store domain.KVStore, key, id string, limit int, ttl time.Duration) error {
	ids, err := ReadIDs(ctx, store, key)
	if err != nil {
		return err
	}
	if slices.Contains(ids, id) {
		return nil
	}

	ids = append([]string{id}, ids...)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return SetJSON(ctx, store, key, ids, ttl)
}

// RemoveID удаляет id из индекса; отсутствие id не считается ошибкой.
func RemoveID(ctx context.Context, store domain.KVStore, key, id string, ttl time.Duration) error {
	ids, err := ReadIDs(ctx, store, key)
	if err != nil {
		return err
	}

	idx := slices.Index(ids, id)
	if idx < 0 {
		return nil
	}
	return SetJSON(ctx, store, key, slices.Delete(ids, idx, idx+1), ttl)
}
