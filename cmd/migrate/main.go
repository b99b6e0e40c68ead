package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tool "github.com/sandeepkv93/account-lifecycle-service/internal/tools/migrate"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := tool.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
