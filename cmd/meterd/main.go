// Command meterd runs the metering core.
//
//	meterd serve                                   health, readiness and metrics endpoints
//	meterd balance -account user:42                credit balance and packs
//	meterd grant   -account user:42 -tenths 100 -actor ops [-expires-in 720h]
//	meterd deduct  -account user:42 -tenths 25 -actor ops [-non-strict] [-op id]
//	meterd charge  -account user:42 -tenths 5 -op req-1 [-plan pro]
//	meterd usage   -account user:42 [-feature credits] [-period monthly] [-plan pro]
//
// Configuration is read from the environment and an optional .env file.
// METER_CHARGE_TTL is required.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"

	"github.com/dmitrymomot/meterkit/pkg/config"
	"github.com/dmitrymomot/meterkit/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env, cfg.Service),
		logger.WithConfig(cfg.Log),
		logger.WithOutput(os.Stderr),
		logger.WithContextExtractors(logger.OperationExtractor),
	)
	logger.SetAsDefault(log)

	name := "serve"
	if len(args) > 0 {
		name, args = args[0], args[1:]
	}
	cmd, ok := commands[name]
	if !ok {
		err := fmt.Errorf("unknown command %q", name)
		log.ErrorContext(ctx, "meterd failed", logger.Error(err))
		return err
	}

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.ErrorContext(ctx, "startup failed", logger.Error(err))
		return err
	}

	runErr := cmd(ctx, a, args, os.Stdout)
	if err := a.close(context.WithoutCancel(ctx)); err != nil {
		log.ErrorContext(ctx, "shutdown failed", logger.Error(err))
	}
	if runErr != nil {
		log.ErrorContext(ctx, "meterd failed", slog.String("command", name), logger.Error(runErr))
	}
	return runErr
}
