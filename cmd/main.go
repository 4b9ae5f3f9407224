package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/ytdash/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)
	if err := shared.LoadDotEnv(); err != nil {
		logger.Fatalf("environment error: %v", err)
	}

	runner := NewRunner(RunnerOpts{Logger: logger})

	if err := runner.app().Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented", "error", err)
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}
