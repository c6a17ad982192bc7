package cli

import (
	"context"
	"syscall"
	"testing"
	"time"
)

func TestSetupSignalHandler(t *testing.T) {
	ctx := SetupSignalHandler(nil)

	select {
	case <-ctx.Done():
		t.Error("Context should not be cancelled initially")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestNotify_CancelThenExit(t *testing.T) {
	exited := make(chan int, 1)
	prev := osExit
	osExit = func(code int) { exited <- code }
	defer func() { osExit = prev }()

	ctx, sigChan := notify(context.Background(), nil, syscall.SIGUSR1)

	sigChan <- syscall.SIGUSR1
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("first signal did not cancel the context")
	}

	sigChan <- syscall.SIGUSR1
	select {
	case code := <-exited:
		if code != ExitInterrupted {
			t.Errorf("exit code = %d, want %d", code, ExitInterrupted)
		}
	case <-time.After(time.Second):
		t.Fatal("second signal did not exit")
	}
}
