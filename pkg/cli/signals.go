package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// osExit is replaced in tests.
var osExit = os.Exit

// SetupSignalHandler creates a context that is canceled on SIGINT or
// SIGTERM. The ledger and working file stay on disk for the next run. A
// second signal exits immediately with ExitInterrupted. A nil logger means
// the default logger at the time of the signal.
func SetupSignalHandler(logger *slog.Logger) context.Context {
	ctx, _ := notify(context.Background(), logger, os.Interrupt, syscall.SIGTERM)
	return ctx
}

func notify(parent context.Context, logger *slog.Logger, sigs ...os.Signal) (context.Context, chan os.Signal) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, sigs...)

	go func() {
		sig := <-sigChan
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("interrupt received, stopping after the current call", "signal", sig.String())
		cancel()

		sig = <-sigChan
		logger.Error("second interrupt received, exiting", "signal", sig.String())
		osExit(ExitInterrupted)
	}()

	return ctx, sigChan
}
