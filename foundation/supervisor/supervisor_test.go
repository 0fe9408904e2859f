package supervisor_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coreblock/node/foundation/supervisor"
)

func Test_ChildCompletesAndIsRemoved(t *testing.T) {
	sup := supervisor.New("test", nil)
	defer sup.Shutdown()

	ran := make(chan struct{})
	sup.Start("one", func(ctx context.Context) error {
		close(ran)
		return nil
	})

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatalf("child never ran")
	}

	// The child returned nil, so it must be removed rather than restarted.
	deadline := time.Now().Add(2 * time.Second)
	for sup.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("completed child still under supervision")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func Test_ChildRestartsOnError(t *testing.T) {
	sup := supervisor.New("test", nil)
	defer sup.Shutdown()

	var runs int32
	sup.Start("crashy", func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return errors.New("boom")
	})

	deadline := time.Now().Add(3 * time.Second)
	for atomic.LoadInt32(&runs) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("child was not restarted after an abnormal exit: runs=%d", atomic.LoadInt32(&runs))
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func Test_ShutdownStopsChildren(t *testing.T) {
	sup := supervisor.New("test", nil)

	started := make(chan struct{})
	stopped := make(chan struct{})
	sup.Start("blocker", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		close(stopped)
		return ctx.Err()
	})

	<-started
	sup.Shutdown()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("child did not observe shutdown")
	}

	// Starting after shutdown is a no-op.
	sup.Start("late", func(ctx context.Context) error {
		t.Errorf("child started after shutdown")
		return nil
	})
	time.Sleep(50 * time.Millisecond)
}

func Test_StopCancelsOneChild(t *testing.T) {
	sup := supervisor.New("test", nil)
	defer sup.Shutdown()

	stopped := make(chan struct{})
	sup.Start("victim", func(ctx context.Context) error {
		<-ctx.Done()
		close(stopped)
		return ctx.Err()
	})

	sup.Stop("victim")

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("child did not observe Stop")
	}
}
