package properties

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetAndGet(t *testing.T) {
	s := NewStore()
	s.Set("http.port", "8080")

	v, ok := s.Get("http.port")
	assert.True(t, ok)
	assert.Equal(t, "8080", v)
	assert.Equal(t, "fallback", s.GetOrDefault("missing", "fallback"))
	assert.Equal(t, []string{"http.port"}, s.Keys())
}

func TestStore_SetDefault(t *testing.T) {
	s := NewStore()
	s.Set("log.level", "debug")
	s.SetFuture("app.url", func() (string, error) { return "http://x", nil })

	assert.False(t, s.SetDefault("log.level", "info"))
	assert.False(t, s.SetDefault("app.url", "ignored"))
	assert.True(t, s.SetDefault("log.format", "text"))

	assert.Equal(t, "debug", s.GetOrDefault("log.level", ""))
	assert.Equal(t, "text", s.GetOrDefault("log.format", ""))
}

func TestStore_FuturesResolvedInOrder(t *testing.T) {
	s := NewStore()
	var order []string

	s.SetFuture("b", func() (string, error) { order = append(order, "b"); return "2", nil })
	s.SetFuture("a", func() (string, error) {
		order = append(order, "a")
		// suppliers may read already resolved values
		b, _ := s.Get("b")
		return b + "-a", nil
	})

	_, ok := s.Get("a")
	assert.False(t, ok, "future must not be visible before resolution")
	assert.Equal(t, []string{"b", "a"}, s.Futures())

	require.NoError(t, s.ResolveFutures())
	assert.Equal(t, []string{"b", "a"}, order)
	assert.Equal(t, "2-a", s.GetOrDefault("a", ""))
	assert.Equal(t, []string{"b", "a"}, s.Futures())
}

func TestStore_FuturesReevaluatedOnEveryResolve(t *testing.T) {
	s := NewStore()
	port := 1000
	calls := 0
	s.SetFuture("dep.url", func() (string, error) {
		calls++
		port++
		return fmt.Sprintf("http://localhost:%d", port), nil
	})

	require.NoError(t, s.ResolveFutures())
	assert.Equal(t, "http://localhost:1001", s.GetOrDefault("dep.url", ""))

	require.NoError(t, s.ResolveFutures())
	assert.Equal(t, "http://localhost:1002", s.GetOrDefault("dep.url", ""))
	assert.Equal(t, 2, calls)
}

func TestStore_FutureErrorKeepsRemainingPending(t *testing.T) {
	s := NewStore()
	boom := errors.New("service not started")

	s.SetFuture("ok", func() (string, error) { return "1", nil })
	s.SetFuture("bad", func() (string, error) { return "", boom })
	s.SetFuture("later", func() (string, error) { return "3", nil })

	err := s.ResolveFutures()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "bad")

	assert.Equal(t, "1", s.GetOrDefault("ok", ""))
	_, ok := s.Get("later")
	assert.False(t, ok, "suppliers after a failure must not run")
	assert.Equal(t, []string{"ok", "bad", "later"}, s.Futures())
}

func TestStore_SetReplacesFuture(t *testing.T) {
	s := NewStore()
	s.SetFuture("k", func() (string, error) { return "future", nil })
	s.Set("k", "now")

	require.NoError(t, s.ResolveFutures())
	assert.Equal(t, "now", s.GetOrDefault("k", ""))
	assert.Empty(t, s.Futures())
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := NewStore()
	s.Set("a", "1")

	snap := s.Snapshot()
	snap["a"] = "changed"
	snap["b"] = "new"

	assert.Equal(t, "1", s.GetOrDefault("a", ""))
	assert.Equal(t, 1, s.Len())
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Set("k", "v")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.Snapshot()
				_, _ = s.Get("k")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, "v", s.GetOrDefault("k", ""))
}
