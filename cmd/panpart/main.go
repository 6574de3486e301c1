package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matzehuels/panpart/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	c := cli.New(os.Stderr, cli.LogInfo)
	err := c.RootCommand().ExecuteContext(ctx)
	if code := cli.ExitCode(err); code != cli.ExitOK {
		if code != cli.ExitInterrupted {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		cancel()
		os.Exit(code)
	}
}
