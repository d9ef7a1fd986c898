// ./main.go
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rtlsec/phishletgen-cli/cmd"
)

// main is the entry point for the phishletgen CLI.
func main() {
	// A SIGINT or SIGTERM cancels the command context, which aborts any
	// in-flight analysis stream and drops back to the shell cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Execute(ctx)
}
