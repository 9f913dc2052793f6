package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStore_GetOrLoad_CollapsesConcurrentLoads(t *testing.T) {
	t.Parallel()

	store := NewStore[[]byte](time.Minute)
	var calls atomic.Int32

	loader := func(context.Context) ([]byte, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return []byte("<html></html>"), nil
	}

	const workers = 32
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err := store.GetOrLoad(context.Background(), "https://scores.example.com/a", loader)
			if err != nil {
				errCh <- err
				return
			}
			if string(v) != "<html></html>" {
				errCh <- errUnexpectedValue
			}
		}()
	}

	close(start)
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
}

func TestStore_GetOrLoad_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	store := NewStore[string](time.Second)
	now := time.Date(2026, 10, 19, 18, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	var calls atomic.Int32
	loader := func(context.Context) (string, error) {
		calls.Add(1)
		return "doc", nil
	}

	if _, err := store.GetOrLoad(context.Background(), "k", loader); err != nil {
		t.Fatalf("first GetOrLoad error: %v", err)
	}
	if _, err := store.GetOrLoad(context.Background(), "k", loader); err != nil {
		t.Fatalf("second GetOrLoad error: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("loader called %d times before expiry, want 1", got)
	}

	now = now.Add(2 * time.Second)
	if _, err := store.GetOrLoad(context.Background(), "k", loader); err != nil {
		t.Fatalf("third GetOrLoad error: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("loader called %d times after expiry, want 2", got)
	}
}

func TestStore_GetOrLoad_DoesNotCacheErrors(t *testing.T) {
	t.Parallel()

	store := NewStore[string](time.Minute)
	boom := errors.New("boom")
	if _, err := store.GetOrLoad(context.Background(), "k", func(context.Context) (string, error) {
		return "", boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected loader error, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store after failed load")
	}
}

func TestStore_ZeroTTLDisablesRetention(t *testing.T) {
	t.Parallel()

	store := NewStore[string](0)
	store.Set(context.Background(), "k", "v")
	if _, ok := store.Get(context.Background(), "k"); ok {
		t.Fatalf("expected no retention with zero ttl")
	}
}

func TestStore_PurgeAndDelete(t *testing.T) {
	t.Parallel()

	store := NewStore[int](time.Second)
	now := time.Date(2026, 10, 19, 18, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.Set(context.Background(), "doc:a", 1)
	store.Set(context.Background(), "doc:b", 2)
	store.Set(context.Background(), "other", 3)
	store.Delete(context.Background(), "doc:a")
	if store.Len() != 2 {
		t.Fatalf("expected 2 entries after Delete, got %d", store.Len())
	}

	now = now.Add(time.Hour)
	if removed := store.Purge(); removed != 2 {
		t.Fatalf("expected 2 purged entries, got %d", removed)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store after purge, got %d", store.Len())
	}
}

var errUnexpectedValue = errors.New("unexpected loaded value")
