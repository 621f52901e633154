package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func newTestCounter(t *testing.T) (*PlayCounter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewPlayCounter(rdb), mr
}

func TestPlayCounterIncrement(t *testing.T) {
	counter, mr := newTestCounter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := counter.Increment(ctx, 10); err != nil {
			t.Fatalf("Increment failed: %v", err)
		}
	}

	val, err := counter.Peek(ctx, 10)
	if err != nil {
		t.Fatalf("Peek failed: %v", err)
	}
	if val != 3 {
		t.Errorf("count = %d, want 3", val)
	}

	// 计数键必须带过期时间，避免孤儿计数常驻
	if mr.TTL(PlayCountKey(10)) != playCountExpiry {
		t.Errorf("counter TTL = %v, want %v", mr.TTL(PlayCountKey(10)), playCountExpiry)
	}
}

func TestPlayCounterPeekAbsent(t *testing.T) {
	counter, _ := newTestCounter(t)
	val, err := counter.Peek(context.Background(), 999)
	if err != nil {
		t.Fatalf("Peek on absent key failed: %v", err)
	}
	if val != 0 {
		t.Errorf("absent counter = %d, want 0", val)
	}
}

func TestPlayCounterSyncToStore(t *testing.T) {
	counter, _ := newTestCounter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := counter.Increment(ctx, 1); err != nil {
			t.Fatalf("Increment failed: %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		if err := counter.Increment(ctx, 2); err != nil {
			t.Fatalf("Increment failed: %v", err)
		}
	}

	applied := map[int64]int64{}
	err := counter.SyncToStore(ctx, func(trackID, delta int64) error {
		applied[trackID] += delta
		return nil
	})
	if err != nil {
		t.Fatalf("SyncToStore failed: %v", err)
	}

	if applied[1] != 5 || applied[2] != 2 {
		t.Errorf("applied = %v, want map[1:5 2:2]", applied)
	}

	// 回写后计数器应被清空
	if val, _ := counter.Peek(ctx, 1); val != 0 {
		t.Errorf("counter 1 not drained, still %d", val)
	}
	if val, _ := counter.Peek(ctx, 2); val != 0 {
		t.Errorf("counter 2 not drained, still %d", val)
	}
}

func TestPlayCounterSyncContinuesOnApplyFailure(t *testing.T) {
	counter, _ := newTestCounter(t)
	ctx := context.Background()

	if err := counter.Increment(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := counter.Increment(ctx, 2); err != nil {
		t.Fatal(err)
	}

	var okApplies int
	err := counter.SyncToStore(ctx, func(trackID, delta int64) error {
		if trackID == 1 {
			return context.DeadlineExceeded
		}
		okApplies++
		return nil
	})
	if err != nil {
		t.Fatalf("SyncToStore should swallow per-key failures: %v", err)
	}
	if okApplies != 1 {
		t.Errorf("okApplies = %d, want 1", okApplies)
	}
}
