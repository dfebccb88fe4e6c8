package domain

import (
	"context"
	"time"
)

// KVStore описывает минимальный контракт key-value хранилища, поверх которого
// построены корзины, заказы, возвраты и программа лояльности.
// Значения хранятся строками, сериализацию структур выполняют вызывающие.
type KVStore interface {
	// Get возвращает значение по ключу или ErrKeyNotFound, если ключ отсутствует либо истёк.
	Get(ctx context.Context, key string) (string, error)
	// Set записывает значение. ttl == 0 означает бессрочное хранение.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Del удаляет ключ. Удаление отсутствующего ключа не считается ошибкой.
	Del(ctx context.Context, key string) error
	// SetNX атомарно записывает значение, только если ключа ещё нет.
	// Возвращает true, если запись выполнена этим вызовом.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Ping проверяет доступность хранилища.
	Ping(ctx context.Context) error
}

// ExpiringStore реализуют хранилища без нативного TTL: просроченные записи
// нужно удалять фоновым воркером.
type ExpiringStore interface {
	// DeleteExpired удаляет не более limit записей, истёкших к моменту before,
	// и возвращает их ключи.
	DeleteExpired(ctx context.Context, before time.Time, limit int) ([]string, error)
}
