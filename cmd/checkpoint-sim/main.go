package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/okian/checkpoint/internal/simulate"
	"github.com/okian/checkpoint/pkg/logger"
)

const (
	envBaseURL     = "CHECKPOINT_SIM_URL"
	defaultRunTime = 10 * time.Minute
)

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		os.Stderr.WriteString("Failed to load .env: " + err.Error() + "\n")
	}

	def := simulate.DefaultConfig()
	if u := os.Getenv(envBaseURL); u != "" {
		def.BaseURL = u
	}

	var (
		baseURL     = flag.String("url", def.BaseURL, "Base URL of the service")
		readings    = flag.Int("readings", def.Readings, "Number of readings to submit")
		workers     = flag.Int("workers", def.Workers, "Number of concurrent submitters")
		checkpoints = flag.Int("checkpoints", def.Checkpoints, "Number of distinct checkpoints")
		timeout     = flag.Duration("timeout", def.Timeout, "HTTP request timeout")
		retries     = flag.Int("retries", def.Retries, "Retries per request on transport errors")
		seed        = flag.Uint64("seed", 0, "Generator seed, 0 picks one from the clock")
		outputFile  = flag.String("output", "", "Write generated readings to this JSON file")
		logLevel    = flag.String("log-level", "info", "Log level")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return nil
	}

	if err := logger.Init(); err != nil {
		return err
	}
	if err := logger.SetLevelString(*logLevel); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTime)
	defer cancel()

	cfg := def
	cfg.BaseURL = *baseURL
	cfg.Readings = *readings
	cfg.Workers = *workers
	cfg.Checkpoints = *checkpoints
	cfg.Timeout = *timeout
	cfg.Retries = *retries
	cfg.Seed = *seed
	cfg.OutputFile = *outputFile

	log := logger.Named("checkpoint-sim")
	if _, err := simulate.Run(ctx, cfg, log); err != nil {
		return err
	}
	log.Info(ctx, "simulation completed")
	return nil
}
