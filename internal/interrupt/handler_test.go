package interrupt_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"syscall"
	"testing"
	"time"

	"crossvoice/internal/interrupt"
)

// sendSignal delivers a fake SIGINT to the handler's channel.
func sendSignal(ch chan os.Signal) {
	ch <- syscall.SIGINT
}

// waitFor polls cond until it returns true or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestHandler_FirstInterruptCancelsContext(t *testing.T) {
	t.Parallel()

	sigCh := make(chan os.Signal, 2)
	h, ctx := interrupt.NewHandlerWithOptions(context.Background(), interrupt.Options{
		SigCh:    sigCh,
		ExitFunc: func(int) {},
		Stderr:   io.Discard,
	})
	defer h.Stop()

	if h.Interrupted() {
		t.Fatal("Interrupted() = true before any signal")
	}

	sendSignal(sigCh)
	waitFor(t, h.Interrupted)

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not canceled after first interrupt")
	}
}

func TestHandler_SecondInterruptWithinWindowAborts(t *testing.T) {
	t.Parallel()

	sigCh := make(chan os.Signal, 2)
	exitCode := make(chan int, 1)
	now := time.Now()

	var stderr bytes.Buffer
	h, _ := interrupt.NewHandlerWithOptions(context.Background(), interrupt.Options{
		SigCh:    sigCh,
		ExitFunc: func(code int) { exitCode <- code },
		NowFunc:  func() time.Time { return now },
		Stderr:   &stderr,
	})
	defer h.Stop()

	sendSignal(sigCh)
	waitFor(t, h.Interrupted)
	sendSignal(sigCh)

	select {
	case code := <-exitCode:
		if code != interrupt.ExitInterrupt {
			t.Errorf("exit code = %d, want %d", code, interrupt.ExitInterrupt)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second interrupt did not abort")
	}
}

func TestHandler_SecondInterruptOutsideWindowIgnored(t *testing.T) {
	t.Parallel()

	sigCh := make(chan os.Signal, 2)
	exited := make(chan int, 1)
	base := time.Now()
	current := base

	h, _ := interrupt.NewHandlerWithOptions(context.Background(), interrupt.Options{
		SigCh:    sigCh,
		ExitFunc: func(code int) { exited <- code },
		NowFunc:  func() time.Time { return current },
		Stderr:   io.Discard,
	})
	defer h.Stop()

	sendSignal(sigCh)
	waitFor(t, h.Interrupted)

	// A second interrupt after the window must not abort.
	current = base.Add(10 * time.Second)
	sendSignal(sigCh)

	select {
	case <-exited:
		t.Fatal("interrupt outside window should not abort")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHandler_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	sigCh := make(chan os.Signal, 2)
	h, _ := interrupt.NewHandlerWithOptions(context.Background(), interrupt.Options{
		SigCh:  sigCh,
		Stderr: io.Discard,
	})

	h.Stop()
	h.Stop() // must not panic or deadlock
}
