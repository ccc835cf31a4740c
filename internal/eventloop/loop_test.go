package eventloop

import (
	"context"
	"errors"
	"testing"
	"time"
)

func startLoop(t *testing.T, l *Loop) <-chan error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() {
		errCh <- l.Run(context.Background())
	}()
	t.Cleanup(l.Close)
	return errCh
}

func TestLoop_RunsInOrder(t *testing.T) {
	l := New(2, nil)
	startLoop(t, l)

	var got []int
	for i := 0; i < 50; i++ {
		i := i
		if !l.Post(func() { got = append(got, i) }) {
			t.Fatalf("Post(%d) returned false", i)
		}
	}

	// Do runs after everything posted before it
	if err := l.Do(context.Background(), func() {}); err != nil {
		t.Fatalf("Do failed: %v", err)
	}

	if len(got) != 50 {
		t.Fatalf("ran %d functions, want 50", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Errorf("got[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestLoop_PostNil(t *testing.T) {
	l := New(1, nil)
	if l.Post(nil) {
		t.Error("Post(nil) should return false")
	}
}

func TestLoop_CloseDrainsThenStops(t *testing.T) {
	l := New(4, nil)

	ran := 0
	for i := 0; i < 3; i++ {
		l.Post(func() { ran++ })
	}
	l.Close()

	if l.Post(func() { ran++ }) {
		t.Error("Post should return false after Close")
	}

	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run returned %v, want nil", err)
	}
	if ran != 3 {
		t.Errorf("ran = %d, want 3", ran)
	}
}

func TestLoop_ContextCancelStops(t *testing.T) {
	l := New(4, nil)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- l.Run(ctx)
	}()

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run returned %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if err := l.Do(context.Background(), func() {}); !errors.Is(err, ErrClosed) {
		t.Errorf("Do after stop = %v, want ErrClosed", err)
	}
}

func TestLoop_RunTwice(t *testing.T) {
	l := New(1, nil)
	startLoop(t, l)

	// Make sure the first Run is active
	if err := l.Do(context.Background(), func() {}); err != nil {
		t.Fatalf("Do failed: %v", err)
	}

	if err := l.Run(context.Background()); !errors.Is(err, ErrRunning) {
		t.Errorf("second Run = %v, want ErrRunning", err)
	}
}

func TestLoop_DoHonorsContext(t *testing.T) {
	l := New(1, nil)
	// Not running: Do can only end through its context

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.Do(ctx, func() {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do = %v, want DeadlineExceeded", err)
	}
}
