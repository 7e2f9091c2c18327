// Command forge-delivery dispatches repository changes to pipelines and
// manages staged multi-account rollouts.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/input-output-hk/catalyst-forge-delivery/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
