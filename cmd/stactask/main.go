package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"stactask/internal/tasks"
	"stactask/pkg/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reg, err := tasks.NewRegistry()
	if err != nil {
		fmt.Fprintf(os.Stderr, "register tasks failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.NewRootCommand(reg).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
