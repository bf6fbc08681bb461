package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalHandler returns a context that is canceled on the first SIGINT
// or SIGTERM. A second signal exits the process immediately with status 1,
// which stops a shutdown stuck waiting on long streams.
func SetupSignalHandler() (context.Context, context.CancelFunc) {
	return setupSignalHandler(os.Exit)
}

func setupSignalHandler(exit func(int)) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
			signal.Stop(sigChan)
			return
		}

		<-sigChan
		exit(ExitFailure)
	}()

	return ctx, func() {
		cancel()
	}
}
