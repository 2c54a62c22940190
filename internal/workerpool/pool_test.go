package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"classboard/internal/config"
	"classboard/internal/svcerr"

	"github.com/redis/go-redis/v9"
)

func TestDo_ReturnsResult(t *testing.T) {
	p := New(config.PoolConfig{Workers: 2}, nil)

	v, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if err != nil || v != 42 {
		t.Fatalf("expected 42, got %d %v", v, err)
	}
}

func TestDo_PassesTaskErrorThrough(t *testing.T) {
	p := New(config.PoolConfig{Workers: 1}, nil)

	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		return 0, svcerr.NotFound()
	})
	if !svcerr.Is(err, svcerr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDo_ExhaustedPoolIsTransient(t *testing.T) {
	p := New(config.PoolConfig{Workers: 1, AcquireTimeout: 20 * time.Millisecond}, nil)

	block := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_, _ = Do(context.Background(), p, func(ctx context.Context) (struct{}, error) {
			close(started)
			<-block
			return struct{}{}, nil
		})
	}()
	<-started

	_, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		t.Errorf("task must not run while the pool is exhausted")
		return 0, nil
	})
	close(block)

	if !svcerr.Is(err, svcerr.KindTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestDo_CancelledRequestLeavesTaskRunning(t *testing.T) {
	p := New(config.PoolConfig{Workers: 1}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	finished := make(chan struct{})
	var taskCtxErr atomic.Value

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Do(ctx, p, func(taskCtx context.Context) (int, error) {
		<-release
		if e := taskCtx.Err(); e != nil {
			taskCtxErr.Store(e)
		}
		close(finished)
		return 1, nil
	})
	if !svcerr.Is(err, svcerr.KindTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}

	close(release)
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatalf("task did not complete after request cancellation")
	}
	if v := taskCtxErr.Load(); v != nil {
		t.Fatalf("task context must not inherit request cancellation, got %v", v)
	}
}

func TestDo_CancelledBeforeDispatch(t *testing.T) {
	p := New(config.PoolConfig{Workers: 1}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Bool
	_, err := Do(ctx, p, func(context.Context) (int, error) {
		ran.Store(true)
		return 0, nil
	})
	if !svcerr.Is(err, svcerr.KindTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if ran.Load() {
		t.Fatalf("task must not run for a cancelled request")
	}
}

func TestDo_PanicBecomesInternal(t *testing.T) {
	p := New(config.PoolConfig{Workers: 1}, nil)

	_, err := Do(context.Background(), p, func(context.Context) (int, error) {
		panic("boom")
	})
	if !svcerr.Is(err, svcerr.KindInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}

	// the slot must have been released
	if _, err := Do(context.Background(), p, func(context.Context) (int, error) { return 1, nil }); err != nil {
		t.Fatalf("pool unusable after panic: %v", err)
	}
}

type fakeLimiter struct {
	allow    bool
	err      error
	acquired atomic.Int32
	released atomic.Int32
}

func (f *fakeLimiter) Acquire(context.Context) (bool, error) {
	if f.err != nil || !f.allow {
		return false, f.err
	}
	f.acquired.Add(1)
	return true, nil
}

func (f *fakeLimiter) Release(context.Context) error {
	f.released.Add(1)
	return nil
}

func TestDo_LimiterRejectionIsTransient(t *testing.T) {
	for _, l := range []*fakeLimiter{{allow: false}, {err: errors.New("redis down")}} {
		p := New(config.PoolConfig{Workers: 1}, nil, WithLimiter(l))
		_, err := Do(context.Background(), p, func(context.Context) (int, error) { return 1, nil })
		if !svcerr.Is(err, svcerr.KindTransient) {
			t.Fatalf("expected transient error, got %v", err)
		}
		// local slot must be handed back
		if !p.sem.TryAcquire(1) {
			t.Fatalf("local slot leaked after limiter rejection")
		}
	}
}

func TestDo_LimiterReleasedAfterTask(t *testing.T) {
	l := &fakeLimiter{allow: true}
	p := New(config.PoolConfig{Workers: 1}, nil, WithLimiter(l))

	if _, err := Do(context.Background(), p, func(context.Context) (int, error) { return 1, nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.acquired.Load() != 1 || l.released.Load() != 1 {
		t.Fatalf("expected one acquire and one release, got %d/%d", l.acquired.Load(), l.released.Load())
	}
}

func TestRedisLimiter_RejectsMisconfiguration(t *testing.T) {
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()

	cases := []struct {
		name string
		l    *RedisLimiter
	}{
		{"nil client", NewRedisLimiter(nil, "k", 1, time.Second)},
		{"empty key", NewRedisLimiter(rdb, "", 1, time.Second)},
		{"zero limit", NewRedisLimiter(rdb, "k", 0, time.Second)},
		{"zero ttl", NewRedisLimiter(rdb, "k", 1, 0)},
	}
	for _, tc := range cases {
		if ok, err := tc.l.Acquire(ctx); !errors.Is(err, errLimiterMisconfigured) || ok {
			t.Fatalf("%s: expected rejection, got ok=%v err=%v", tc.name, ok, err)
		}
		if err := tc.l.Release(ctx); !errors.Is(err, errLimiterMisconfigured) {
			t.Fatalf("%s: expected release rejection, got %v", tc.name, err)
		}
	}
}

func TestDo_RedisLimiterFailureIsTransient(t *testing.T) {
	p := New(config.PoolConfig{Workers: 1}, nil, WithLimiter(NewRedisLimiter(nil, "k", 1, time.Second)))

	_, err := Do(context.Background(), p, func(context.Context) (int, error) { return 1, nil })
	if !svcerr.Is(err, svcerr.KindTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}
