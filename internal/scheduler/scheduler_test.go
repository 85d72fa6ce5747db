package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSweeper struct {
	mu          sync.Mutex
	orderSweeps int
	slotSweeps  int
	orderErr    error
	lastNow     time.Time
}

func (s *stubSweeper) SweepExpiredOrders(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orderSweeps++
	s.lastNow = now
	return 0, s.orderErr
}

func (s *stubSweeper) SweepAbandonedSlots(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slotSweeps++
	return 0, nil
}

func (s *stubSweeper) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderSweeps, s.slotSweeps
}

func TestScheduler_RunsBothSweepsPerTick(t *testing.T) {
	sweeper := &stubSweeper{}
	sched := New(sweeper, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		orders, slots := sweeper.counts()
		return orders >= 2 && slots >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	orders, slots := sweeper.counts()
	assert.Equal(t, orders, slots)
	sweeper.mu.Lock()
	assert.False(t, sweeper.lastNow.IsZero())
	sweeper.mu.Unlock()
}

func TestScheduler_KeepsTickingAfterSweepError(t *testing.T) {
	sweeper := &stubSweeper{orderErr: errors.New("db down")}
	sched := New(sweeper, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Start(ctx)

	// The failing order sweep must not stop the loop or skip the slot sweep.
	require.Eventually(t, func() bool {
		orders, slots := sweeper.counts()
		return orders >= 3 && slots >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	sweeper := &stubSweeper{}
	sched := New(sweeper, time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after context cancel")
	}
}
