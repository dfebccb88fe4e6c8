package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
)

func setupTestRedis(t *testing.T) (*KVStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewKVStore(client), mr
}

func TestKVStore_GetMissing(t *testing.T) {
	store, _ := setupTestRedis(t)

	_, err := store.Get(context.Background(), "order:missing")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestKVStore_SetWithTTL(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "cart:session:s1", `{"items":[]}`, 7*24*time.Hour))

	got, err := store.Get(ctx, "cart:session:s1")
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, got)
	assert.Equal(t, 7*24*time.Hour, mr.TTL("cart:session:s1"))

	mr.FastForward(7*24*time.Hour + time.Second)
	_, err = store.Get(ctx, "cart:session:s1")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestKVStore_SetWithoutTTLIsPermanent(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "order:o1", `{"id":"o1"}`, 0))
	assert.Equal(t, time.Duration(0), mr.TTL("order:o1"))
}

func TestKVStore_Del(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("return:r1", "{}"))
	require.NoError(t, store.Del(ctx, "return:r1"))
	assert.False(t, mr.Exists("return:r1"))
	require.NoError(t, store.Del(ctx, "return:r1"))
}

func TestKVStore_SetNX(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	first, err := store.SetNX(ctx, "event:evt_1:processed", "1", 0)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := store.SetNX(ctx, "event:evt_1:processed", "1", 0)
	require.NoError(t, err)
	assert.False(t, second)
}

func TestKVStore_SetNXConcurrent(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.SetNX(ctx, "event:evt_race:processed", "1", 0)
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestKVStore_PingFailsWhenServerDown(t *testing.T) {
	store, mr := setupTestRedis(t)
	mr.Close()

	assert.Error(t, store.Ping(context.Background()))
}
