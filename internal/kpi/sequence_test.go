package kpi

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestMemorySequencerIsMonotonicPerScope(t *testing.T) {
	seq := NewMemorySequencer()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = seq.Next(ctx, "tenant-a")
		}()
	}
	wg.Wait()

	current, err := seq.Current(ctx, "tenant-a")
	require.NoError(t, err)
	require.Equal(t, int64(50), current)

	other, err := seq.Current(ctx, "tenant-b")
	require.NoError(t, err)
	require.Zero(t, other)
}

func TestRedisSequencer(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	seq := NewRedisSequencer(client, "")
	current, err := seq.Current(ctx, "tenant-a")
	require.NoError(t, err)
	require.Zero(t, current)

	first, err := seq.Next(ctx, "tenant-a")
	require.NoError(t, err)
	second, err := seq.Next(ctx, "tenant-a")
	require.NoError(t, err)
	require.Equal(t, int64(1), first)
	require.Equal(t, int64(2), second)

	current, err = seq.Current(ctx, "tenant-a")
	require.NoError(t, err)
	require.Equal(t, int64(2), current)

	require.True(t, mr.Exists("kpi:refresh:tenant-a"))
	require.Equal(t, 24*time.Hour, mr.TTL("kpi:refresh:tenant-a"))
}

func TestRedisSequencerSharedAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	clientA := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	clientB := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = clientA.Close()
		_ = clientB.Close()
	})
	ctx := context.Background()

	a := NewRedisSequencer(clientA, "replica")
	b := NewRedisSequencer(clientB, "replica")

	id, err := a.Next(ctx, "tenant")
	require.NoError(t, err)
	_, err = b.Next(ctx, "tenant")
	require.NoError(t, err)

	latest, err := a.Current(ctx, "tenant")
	require.NoError(t, err)
	require.NotEqual(t, id, latest)
}
