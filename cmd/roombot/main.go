package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/go-go-golems/roombot/cmd/roombot/cmds"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cmds.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
