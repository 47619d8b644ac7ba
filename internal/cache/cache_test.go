package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCachesWithinTTL(t *testing.T) {
	var calls int
	c := New(10*time.Second, func(ctx context.Context, key string) (int, error) {
		calls++
		return 42, nil
	})

	v, err := c.Get(context.Background(), "pool")
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = c.Get(context.Background(), "pool")
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls, "second fetch within TTL must not hit the producer")
}

func TestGetRefreshesAfterExpiry(t *testing.T) {
	var calls int
	c := New(10*time.Second, func(ctx context.Context, key string) (int, error) {
		calls++
		return calls, nil
	})

	current := time.Unix(1000, 0)
	c.now = func() time.Time { return current }

	v, err := c.Get(context.Background(), "pool")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	current = current.Add(11 * time.Second)

	v, err = c.Get(context.Background(), "pool")
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, calls, "fetch after TTL expiry must hit the producer again")
}

func TestGetDistinctKeys(t *testing.T) {
	c := New(time.Minute, func(ctx context.Context, key string) (string, error) {
		return "value-" + key, nil
	})

	a, err := c.Get(context.Background(), "a")
	require.NoError(t, err)
	b, err := c.Get(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, "value-a", a)
	assert.Equal(t, "value-b", b)
}

func TestProducerErrorNotCached(t *testing.T) {
	var calls int
	failing := errors.New("feed unavailable")
	c := New(time.Minute, func(ctx context.Context, key string) (int, error) {
		calls++
		if calls == 1 {
			return 0, failing
		}
		return 7, nil
	})

	_, err := c.Get(context.Background(), "tips")
	assert.ErrorIs(t, err, failing)

	v, err := c.Get(context.Background(), "tips")
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 2, calls)
}

func TestConcurrentLookupsCollapse(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c := New(time.Minute, func(ctx context.Context, key string) (int, error) {
		calls.Add(1)
		<-release
		return 1, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Get(context.Background(), "tip_floor")
			assert.NoError(t, err)
			assert.Equal(t, 1, v)
		}()
	}

	// Give every goroutine time to join the in-flight call before the
	// producer is allowed to finish.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "identical concurrent lookups should share one producer call")
}

func TestForget(t *testing.T) {
	var calls int
	c := New(time.Minute, func(ctx context.Context, key string) (int, error) {
		calls++
		return calls, nil
	})

	_, err := c.Get(context.Background(), "state")
	require.NoError(t, err)
	c.Forget("state")

	v, err := c.Get(context.Background(), "state")
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}
