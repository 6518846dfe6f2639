// Command nitemix blends two videos through an alpha mask, driven by the
// beat and pitch content of an audio source.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/nitevj/nitemix/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cli.ExecuteContext(ctx)
}
