package postgres

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
)

func TestKVStore_PostgresSetGetDel(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	kv := NewKVStore(store)
	ctx := context.Background()

	_, err := kv.Get(ctx, "order:missing")
	require.ErrorIs(t, err, domain.ErrKeyNotFound)

	require.NoError(t, kv.Set(ctx, "order:o1", `{"id":"o1"}`, 0))
	got, err := kv.Get(ctx, "order:o1")
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"o1"}`, got)

	require.NoError(t, kv.Set(ctx, "order:o1", `{"id":"o1","status":"paid"}`, 0))
	got, err = kv.Get(ctx, "order:o1")
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"o1","status":"paid"}`, got)

	require.NoError(t, kv.Del(ctx, "order:o1"))
	_, err = kv.Get(ctx, "order:o1")
	require.ErrorIs(t, err, domain.ErrKeyNotFound)
	require.NoError(t, kv.Del(ctx, "order:o1"))
}

func TestKVStore_PostgresExpiredEntriesAreInvisible(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	kv := NewKVStore(store)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "order:draft:d1", "{}", 50*time.Millisecond))
	time.Sleep(120 * time.Millisecond)

	_, err := kv.Get(ctx, "order:draft:d1")
	require.ErrorIs(t, err, domain.ErrKeyNotFound)

	won, err := kv.SetNX(ctx, "order:draft:d1", "{}", time.Hour)
	require.NoError(t, err)
	require.True(t, won, "expired key must be reclaimable")
}

func TestKVStore_PostgresSetNXSingleWinner(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	kv := NewKVStore(store)
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := kv.SetNX(ctx, "event:evt_pg:processed", domain.ProcessedValue, 0)
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load())
}

func TestKVStore_PostgresDeleteExpiredBatches(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	kv := NewKVStore(store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, kv.Set(ctx, fmt.Sprintf("cart:session:s%d", i), "{}", 10*time.Millisecond))
	}
	require.NoError(t, kv.Set(ctx, "order:keep", "{}", 0))
	time.Sleep(50 * time.Millisecond)

	deleted, err := kv.DeleteExpired(ctx, time.Now().UTC(), 2)
	require.NoError(t, err)
	require.Len(t, deleted, 2)

	rest, err := kv.DeleteExpired(ctx, time.Now().UTC(), 0)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.ElementsMatch(t, []string{"cart:session:s0", "cart:session:s1", "cart:session:s2"}, append(deleted, rest...))

	_, err = kv.Get(ctx, "order:keep")
	require.NoError(t, err)
}
