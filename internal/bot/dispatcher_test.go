package bot

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"billsplit/internal/telegram"

	"go.uber.org/zap"
)

type handlerFunc func(ctx context.Context, update *telegram.Update) error

func (f handlerFunc) HandleUpdate(ctx context.Context, update *telegram.Update) error {
	return f(ctx, update)
}

func TestDispatcher_ProcessesAllUpdates(t *testing.T) {
	var handled int32
	var wg sync.WaitGroup
	wg.Add(10)

	d := NewDispatcher(3, 10, time.Second, handlerFunc(func(ctx context.Context, u *telegram.Update) error {
		defer wg.Done()
		atomic.AddInt32(&handled, 1)
		if u.UpdateID%2 == 0 {
			return errors.New("even updates fail")
		}
		return nil
	}), zap.NewNop())

	d.Start(context.Background())
	for i := 1; i <= 10; i++ {
		if err := d.Dispatch(&telegram.Update{UpdateID: int64(i)}); err != nil {
			t.Fatalf("unexpected dispatch error: %v", err)
		}
	}

	wg.Wait()
	d.Stop()

	if got := atomic.LoadInt32(&handled); got != 10 {
		t.Errorf("expected 10 handled updates, got %d", got)
	}
}

func TestDispatcher_QueueFull(t *testing.T) {
	d := NewDispatcher(1, 1, time.Second, handlerFunc(func(ctx context.Context, u *telegram.Update) error {
		return nil
	}), zap.NewNop())

	// not started, so nothing drains the queue
	if err := d.Dispatch(&telegram.Update{UpdateID: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.Dispatch(&telegram.Update{UpdateID: 2}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestDispatcher_StopDrainsQueue(t *testing.T) {
	var handled int32
	d := NewDispatcher(1, 5, time.Second, handlerFunc(func(ctx context.Context, u *telegram.Update) error {
		atomic.AddInt32(&handled, 1)
		return nil
	}), zap.NewNop())

	for i := 1; i <= 5; i++ {
		_ = d.Dispatch(&telegram.Update{UpdateID: int64(i)})
	}
	d.Start(context.Background())
	d.Stop()

	if got := atomic.LoadInt32(&handled); got != 5 {
		t.Errorf("expected queued updates to be drained, got %d", got)
	}
	if err := d.Dispatch(&telegram.Update{UpdateID: 6}); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped after Stop, got %v", err)
	}
	d.Stop()
}

func TestDispatcher_AppliesTimeoutAndRecovers(t *testing.T) {
	deadlines := make(chan bool, 2)

	d := NewDispatcher(1, 2, 50*time.Millisecond, handlerFunc(func(ctx context.Context, u *telegram.Update) error {
		_, ok := ctx.Deadline()
		deadlines <- ok
		if u.UpdateID == 1 {
			panic("boom")
		}
		return nil
	}), zap.NewNop())

	d.Start(context.Background())
	_ = d.Dispatch(&telegram.Update{UpdateID: 1})
	_ = d.Dispatch(&telegram.Update{UpdateID: 2})
	d.Stop()

	close(deadlines)
	count := 0
	for ok := range deadlines {
		count++
		if !ok {
			t.Error("expected handler context to carry a deadline")
		}
	}
	if count != 2 {
		t.Errorf("expected worker to survive the panic and handle both updates, got %d", count)
	}
}
