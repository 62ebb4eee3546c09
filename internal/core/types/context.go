package types

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// DefaultSignalNotifySubContext returns a background context cancelled on
// SIGINT or SIGTERM. Commands run the Kaggle CLI under it, so an interrupt
// kills the child process too.
func DefaultSignalNotifySubContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
