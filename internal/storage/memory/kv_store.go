package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
)

type entry struct {
	value     string
	expiresAt time.Time // нулевое значение — без срока
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !e.expiresAt.After(now)
}

// KVStore реализует domain.KVStore в памяти для локальной разработки и тестов.
// Истёкшие ключи удаляются лениво при чтении или через DeleteExpired.
type KVStore struct {
	mu    sync.RWMutex
	items map[string]entry
	now   func() time.Time
}

// NewKVStore создаёт пустое in-memory хранилище.
func NewKVStore() *KVStore {
	return &KVStore{
		items: make(map[string]entry),
		now:   time.Now,
	}
}

// WithClock подменяет источник времени; используется в тестах истечения TTL.
func (s *KVStore) WithClock(now func() time.Time) *KVStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *KVStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	e, ok := s.items[key]
	now := s.now()
	s.mu.RUnlock()

	if !ok {
		return "", domain.ErrKeyNotFound
	}
	if e.expired(now) {
		s.mu.Lock()
		if cur, ok := s.items[key]; ok && cur.expired(s.now()) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return "", domain.ErrKeyNotFound
	}
	return e.value, nil
}

func (s *KVStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = s.newEntry(value, ttl)
	return nil
}

func (s *KVStore) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *KVStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.items[key]; ok && !existing.expired(s.now()) {
		return false, nil
	}
	s.items[key] = s.newEntry(value, ttl)
	return true, nil
}

func (s *KVStore) Ping(context.Context) error {
	return nil
}

// DeleteExpired удаляет не более limit истёкших ключей; limit <= 0 снимает ограничение.
func (s *KVStore) DeleteExpired(_ context.Context, before time.Time, limit int) ([]string, error) {
	if before.IsZero() {
		before = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for key, e := range s.items {
		if !e.expired(before) {
			continue
		}

		delete(s.items, key)
		removed = append(removed, key)
		if limit > 0 && len(removed) >= limit {
			break
		}
	}

	return removed, nil
}

// Len возвращает количество хранимых ключей, включая ещё не удалённые истёкшие.
func (s *KVStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *KVStore) newEntry(value string, ttl time.Duration) entry {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	return e
}

var (
	_ domain.KVStore       = (*KVStore)(nil)
	_ domain.ExpiringStore = (*KVStore)(nil)
)
