package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestTokenBucket_Take(t *testing.T) {
	clock := newFakeClock()
	tb := newTokenBucket(3, 1, clock.Now)

	for i := range 3 {
		if !tb.Take(1) {
			t.Fatalf("take %d should succeed", i+1)
		}
	}
	if tb.Take(1) {
		t.Fatal("bucket should be empty")
	}

	clock.Advance(500 * time.Millisecond)
	if tb.Take(1) {
		t.Error("half a token should not be enough")
	}

	clock.Advance(500 * time.Millisecond)
	if !tb.Take(1) {
		t.Error("one token should have been refilled")
	}
}

func TestTokenBucket_RefillCapped(t *testing.T) {
	clock := newFakeClock()
	tb := newTokenBucket(5, 10, clock.Now)
	tb.Take(5)

	clock.Advance(time.Hour)
	if got := tb.Remaining(); got != 5 {
		t.Errorf("expected refill capped at capacity 5, got %d", got)
	}
	if tb.Capacity() != 5 {
		t.Errorf("expected capacity 5, got %d", tb.Capacity())
	}
}

func TestTokenBucket_TimeUntilAvailable(t *testing.T) {
	clock := newFakeClock()
	tb := newTokenBucket(2, 2, clock.Now)

	if d := tb.TimeUntilAvailable(1); d != 0 {
		t.Errorf("expected 0 with a full bucket, got %v", d)
	}

	tb.Take(2)
	if d := tb.TimeUntilAvailable(1); d != 500*time.Millisecond {
		t.Errorf("expected 500ms, got %v", d)
	}
	if d := tb.TimeUntilAvailable(2); d != time.Second {
		t.Errorf("expected 1s, got %v", d)
	}
}

func TestTokenBucket_Wait(t *testing.T) {
	tb := NewTokenBucket(1, 100)

	if _, err := tb.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	waited, err := tb.Wait(context.Background())
	if err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if waited <= 0 {
		t.Errorf("second wait should have blocked, waited %v", waited)
	}
}

func TestTokenBucket_WaitCanceled(t *testing.T) {
	clock := newFakeClock()
	tb := newTokenBucket(1, 0.001, clock.Now)
	tb.Take(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := tb.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestTokenBucket_Concurrent(t *testing.T) {
	clock := newFakeClock()
	tb := newTokenBucket(100, 1, clock.Now)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		taken int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				if tb.Take(1) {
					mu.Lock()
					taken++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if taken != 100 {
		t.Errorf("expected exactly 100 tokens taken, got %d", taken)
	}
}
