package main

import (
	"context"
	"fmt"
	"os"

	"github.com/avatarctic/email-auth/configs"
	"github.com/avatarctic/email-auth/internal/bootstrap"
)

func main() {
	if err := newRootCommand(openFromEnv, os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func openFromEnv(ctx context.Context) (*bootstrap.App, error) {
	cfg, err := configs.Load()
	if err != nil {
		return nil, err
	}
	return bootstrap.Open(ctx, cfg, bootstrap.NewLogger(cfg.Log))
}
