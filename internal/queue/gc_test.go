package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type mockDLQPurger struct {
	purgeFunc func(ctx context.Context, retention time.Duration) (int, error)
}

var _ DLQPurger = (*mockDLQPurger)(nil)

func (m *mockDLQPurger) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	if m.purgeFunc != nil {
		return m.purgeFunc(ctx, retention)
	}
	return 0, nil
}

func TestGarbageCollector_Sweep(t *testing.T) {
	t.Parallel()

	const retention = 72 * time.Hour

	tests := []struct {
		name       string
		purger     DLQPurger
		wantErr    bool
		wantPurged int64
	}{
		{name: "no purger is a no-op"},
		{
			name: "counts purged letters",
			purger: &mockDLQPurger{purgeFunc: func(_ context.Context, r time.Duration) (int, error) {
				if r != retention {
					return 0, errors.New("retention not forwarded")
				}
				return 4, nil
			}},
			wantPurged: 4,
		},
		{
			name:   "empty queue",
			purger: &mockDLQPurger{},
		},
		{
			name: "broker failure",
			purger: &mockDLQPurger{purgeFunc: func(context.Context, time.Duration) (int, error) {
				return 0, errors.New("channel closed")
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gc := NewGarbageCollector(tt.purger, time.Hour, retention, zap.NewNop())
			err := gc.sweep(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("sweep() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := gc.Purged(); got != tt.wantPurged {
				t.Errorf("Purged() = %d, want %d", got, tt.wantPurged)
			}
		})
	}
}

func TestGarbageCollector_StartSweepsUntilCancelled(t *testing.T) {
	t.Parallel()

	sweeps := make(chan struct{}, 16)
	purger := &mockDLQPurger{purgeFunc: func(context.Context, time.Duration) (int, error) {
		sweeps <- struct{}{}
		return 1, nil
	}}
	gc := NewGarbageCollector(purger, 10*time.Millisecond, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gc.Start(ctx) }()

	// the first sweep runs before any tick, the second proves the ticker is live
	for i := 0; i < 2; i++ {
		select {
		case <-sweeps:
		case <-time.After(2 * time.Second):
			t.Fatalf("sweep %d never happened", i+1)
		}
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Start() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
	if gc.Purged() < 2 {
		t.Errorf("Purged() = %d, want at least 2", gc.Purged())
	}
}

func TestGarbageCollector_StartCancelledSkipsSweep(t *testing.T) {
	t.Parallel()

	purger := &mockDLQPurger{purgeFunc: func(context.Context, time.Duration) (int, error) {
		t.Error("sweep ran on a cancelled context")
		return 0, nil
	}}
	gc := NewGarbageCollector(purger, time.Hour, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := gc.Start(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Start() = %v, want context.Canceled", err)
	}
}
