// Command yt-webclient is the terminal client of the video download service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ytget/yt-webclient/internal/cli"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

func main() {
	cli.Version = version

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:])
	cancel()
	os.Exit(code)
}
