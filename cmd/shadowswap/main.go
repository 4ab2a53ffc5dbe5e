package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"io"
	"os"
	"os/signal"
	"shadowswap/adapter"
	"shadowswap/applog"
	"shadowswap/launcher"
	"shadowswap/util"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	defer cancel()

	if err := launcher.LoadEnvFile(".env"); err != nil {
		fmt.Printf("Failed to load .env: %v\n", err)
	}

	info, err := launcher.NewInfoFromFlags(os.Args[1:])
	if err != nil {
		os.Exit(reportConfigError(os.Stderr, err))
	}

	if info.Role == "" {
		if err = info.PromptRole(ctx, os.Stdin, os.Stdout); err != nil {
			fmt.Printf("%v\n", err)
			os.Exit(1)
		}
	}

	sessionId := uuid.NewString()
	err = applog.Initialize(info.Role, sessionId, info.LogLevel, info.LogPath)
	if err != nil {
		fmt.Printf("Failed to initialize app logger: %v\n", err)
	}

	defer applog.Shutdown()
	defer util.WrapAppContextCancelExitMessage(ctx, "Shadow Swap")

	if err = info.Validate(); err != nil {
		applog.Error("Failed to validate command line arguments", zap.Error(err))
		return
	}

	applog.LogStartupInfo(info)

	if err = adapter.New(ctx, cancel, info).Start(); err != nil {
		applog.Error("Session failed", zap.Error(err))
	}
}

// reportConfigError returns the exit code for a failed configuration. The flag set prints its
// own errors and usage, everything else is printed here.
func reportConfigError(w io.Writer, err error) int {
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if errors.Is(err, launcher.ErrInvalidEnvironment) {
		_, _ = fmt.Fprintf(w, "%v\n", err)
	}
	return 2
}
