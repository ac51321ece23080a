package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func newTestTracker(t *testing.T, maxWait time.Duration) (*Tracker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewTracker(client, "scope1", maxWait, zerolog.Nop()), mr
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"empty", "", DefaultRetryAfter},
		{"seconds", "7", 7 * time.Second},
		{"zero seconds", "0", DefaultRetryAfter},
		{"http date", now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second},
		{"date in the past", now.Add(-time.Minute).Format(http.TimeFormat), DefaultRetryAfter},
		{"garbage", "soon", DefaultRetryAfter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseRetryAfter(tt.value, now); got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestTracker_GetState_Empty(t *testing.T) {
	tracker, _ := newTestTracker(t, 0)

	state, err := tracker.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.IsBlocked(time.Now()) {
		t.Error("empty state should not be blocked")
	}
}

func TestTracker_UpdateFromResponse_IgnoresOtherStatuses(t *testing.T) {
	tracker, mr := newTestTracker(t, 0)

	for _, status := range []int{200, 404, 500} {
		if err := tracker.UpdateFromResponse(context.Background(), status, http.Header{}); err != nil {
			t.Fatalf("UpdateFromResponse(%d) error = %v", status, err)
		}
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Errorf("expected no keys, got %v", keys)
	}
}

func TestTracker_UpdateFromResponse_StoresBlock(t *testing.T) {
	tracker, mr := newTestTracker(t, 0)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }

	headers := http.Header{}
	headers.Set("Retry-After", "5")
	ctx := context.Background()

	if err := tracker.UpdateFromResponse(ctx, http.StatusTooManyRequests, headers); err != nil {
		t.Fatalf("UpdateFromResponse() error = %v", err)
	}
	if err := tracker.UpdateFromResponse(ctx, http.StatusTooManyRequests, headers); err != nil {
		t.Fatalf("UpdateFromResponse() error = %v", err)
	}

	if !mr.Exists(RedisKeyBlockedUntil + ":scope1") {
		t.Fatal("blocked_until key not written under scope")
	}

	state, err := tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if !state.BlockedUntil.Equal(now.Add(5 * time.Second)) {
		t.Errorf("BlockedUntil = %v, want %v", state.BlockedUntil, now.Add(5*time.Second))
	}
	if state.Hits != 2 {
		t.Errorf("Hits = %d, want 2", state.Hits)
	}
}

func TestTracker_Wait(t *testing.T) {
	tracker, _ := newTestTracker(t, 50*time.Millisecond)
	ctx := context.Background()

	// Not blocked: returns immediately.
	if err := tracker.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	// Short block: waits it out.
	now := time.Now()
	tracker.now = func() time.Time { return now }
	headers := http.Header{}
	headers.Set("Retry-After", "1")
	if err := tracker.UpdateFromResponse(ctx, http.StatusTooManyRequests, headers); err != nil {
		t.Fatalf("UpdateFromResponse() error = %v", err)
	}
	tracker.now = func() time.Time { return now.Add(980 * time.Millisecond) }

	start := time.Now()
	if err := tracker.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Errorf("Wait() returned after %v, expected to hold back", elapsed)
	}

	// Long block: fails fast.
	tracker.now = func() time.Time { return now }
	if err := tracker.Wait(ctx); !errors.Is(err, ErrBlocked) {
		t.Errorf("Wait() error = %v, want ErrBlocked", err)
	}
}

func TestTracker_Wait_ContextCancelled(t *testing.T) {
	tracker, _ := newTestTracker(t, time.Minute)
	now := time.Now()
	tracker.now = func() time.Time { return now }

	headers := http.Header{}
	headers.Set("Retry-After", "30")
	if err := tracker.UpdateFromResponse(context.Background(), http.StatusTooManyRequests, headers); err != nil {
		t.Fatalf("UpdateFromResponse() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := tracker.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want context.DeadlineExceeded", err)
	}
}
