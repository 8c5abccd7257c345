// Package main is the entry point for the weaver CLI.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/opmodel/weaver/internal/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cmd.Execute(ctx, cmd.NewRootCmd(), os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}
