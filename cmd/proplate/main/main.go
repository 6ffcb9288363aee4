package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/yumet023/proplate/cmd/proplate"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := proplate.Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
