package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCache_TTL(t *testing.T) {
	c := NewCache[int](time.Second)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	calls := 0
	fetch := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}
	ctx := context.Background()

	if v, _ := c.Get(ctx, "k", fetch); v != 1 {
		t.Errorf("Expected 1, got %d", v)
	}
	if v, _ := c.Get(ctx, "k", fetch); v != 1 {
		t.Errorf("Expected cached 1, got %d", v)
	}

	now = now.Add(time.Second)
	if v, _ := c.Get(ctx, "k", fetch); v != 2 {
		t.Errorf("Expected refetch after TTL, got %d", v)
	}

	c.Invalidate("k")
	if v, _ := c.Get(ctx, "k", fetch); v != 3 {
		t.Errorf("Expected refetch after Invalidate, got %d", v)
	}
}

func TestCache_ErrorNotCached(t *testing.T) {
	c := NewCache[string](time.Minute)
	boom := errors.New("boom")

	_, err := c.Get(context.Background(), "k", func(context.Context) (string, error) {
		return "", boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Expected fetch error, got %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Expected empty cache after error, got %d", c.Len())
	}
}

func TestCache_ZeroTTLDisables(t *testing.T) {
	c := NewCache[int](0)
	calls := 0
	for i := 0; i < 3; i++ {
		c.Get(context.Background(), "k", func(context.Context) (int, error) {
			calls++
			return calls, nil
		})
	}
	if calls != 3 {
		t.Errorf("Expected 3 fetches, got %d", calls)
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Expected empty cache, got %d", c.Len())
	}
}

func TestCache_SlowFetchDoesNotBlockOtherKeys(t *testing.T) {
	c := NewCache[int](time.Minute)
	ctx := context.Background()

	if _, err := c.Get(ctx, "b", func(context.Context) (int, error) { return 2, nil }); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Get(ctx, "a", func(context.Context) (int, error) {
			close(started)
			<-release
			return 1, nil
		})
	}()
	<-started

	got := make(chan int, 1)
	go func() {
		v, _ := c.Get(ctx, "b", func(context.Context) (int, error) { return -1, nil })
		got <- v
	}()

	select {
	case v := <-got:
		if v != 2 {
			t.Errorf("Expected cached 2, got %d", v)
		}
	case <-time.After(time.Second):
		t.Error("Expected cached read of b while a is fetching")
	}
	close(release)
	<-done
}

func TestCache_ConcurrentMissesShareFetch(t *testing.T) {
	c := NewCache[int](time.Minute)
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 7, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Get(ctx, "k", fetch)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("Expected 1 fetch, got %d", n)
	}
	for i, v := range results {
		if v != 7 {
			t.Errorf("Expected 7 for caller %d, got %d", i, v)
		}
	}
}

func TestCache_WaitHonoursContext(t *testing.T) {
	c := NewCache[int](time.Minute)
	release := make(chan struct{})
	defer close(release)

	go c.Get(context.Background(), "k", func(context.Context) (int, error) {
		<-release
		return 1, nil
	})
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Get(ctx, "k", func(context.Context) (int, error) { return 2, nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}
