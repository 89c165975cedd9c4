package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BioHazard786/warplink/cmd"
	"github.com/BioHazard786/warplink/internal/logging"
)

func main() {
	logs, err := logging.Init()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = cmd.Execute(ctx)
	stop()
	logs.Close()
	if err != nil {
		os.Exit(1)
	}
}
