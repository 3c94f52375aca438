package simulate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/checkpoint/pkg/logger"
)

const (
	directoryPermission = 0750
	percentage          = 100
)

// Run checks the service, submits generated readings concurrently and
// verifies the recorded event count grew by the number of successes.
func Run(ctx context.Context, cfg Config, log logger.Logger) (Stats, error) {
	if err := cfg.validate(); err != nil {
		return Stats{}, err
	}
	if log == nil {
		log = logger.Nop()
	}
	start := time.Now()
	client := NewClient(cfg.BaseURL, cfg.Timeout, cfg.Retries)

	log.Info(ctx, "starting checkpoint simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("readings", cfg.Readings),
		logger.Int("workers", cfg.Workers),
		logger.Int("checkpoints", cfg.Checkpoints))

	if err := client.Health(ctx); err != nil {
		return Stats{}, err
	}

	before, err := client.Status(ctx)
	if err != nil {
		return Stats{}, err
	}
	if !before.ModelReady {
		log.Warn(ctx, "model not ready; every reading will score zero", logger.String("modelPath", before.ModelPath))
	}

	readings := NewGenerator(cfg).Generate(cfg.Readings)
	stats := submit(ctx, client, cfg.Workers, readings, log)
	stats.Generated = len(readings)
	stats.ModelReady = before.ModelReady
	stats.EventsBefore = before.EventsCached

	after, err := client.Status(ctx)
	if err != nil {
		return stats, err
	}
	stats.EventsAfter = after.EventsCached
	stats.Duration = time.Since(start)

	if cfg.OutputFile != "" {
		if err := saveReadings(cfg.OutputFile, readings); err != nil {
			log.Warn(ctx, "failed to save readings", logger.Error(err))
		} else {
			log.Info(ctx, "readings saved", logger.String("file", cfg.OutputFile))
		}
	}

	displayStats(ctx, log, stats)

	if err := verify(stats); err != nil {
		return stats, err
	}
	if grown := stats.EventsAfter - stats.EventsBefore; grown > stats.Successful {
		log.Warn(ctx, "event count grew more than submitted; another client may be writing",
			logger.Int("grown", grown),
			logger.Int("successful", stats.Successful))
	}
	return stats, nil
}

func submit(ctx context.Context, client *Client, workers int, readings []Reading, log logger.Logger) Stats {
	var (
		submitted, successful, failed, suspicious, risk atomic.Int64
		wg                                              sync.WaitGroup
	)
	work := make(chan Reading, workers*2)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range work {
				submitted.Add(1)
				ev, err := client.Predict(ctx, r)
				if err != nil {
					failed.Add(1)
					log.Debug(ctx, "prediction failed", logger.String("vehicleID", r.VehicleID), logger.Error(err))
					continue
				}
				successful.Add(1)
				risk.Add(int64(ev.RiskScore))
				if ev.Result().Suspicious() {
					suspicious.Add(1)
				}
			}
		}()
	}

	go func() {
		defer close(work)
		for _, r := range readings {
			select {
			case <-ctx.Done():
				return
			case work <- r:
			}
		}
	}()
	wg.Wait()

	return Stats{
		Submitted:  int(submitted.Load()),
		Successful: int(successful.Load()),
		Failed:     int(failed.Load()),
		Suspicious: int(suspicious.Load()),
		RiskTotal:  int(risk.Load()),
	}
}

func verify(s Stats) error {
	if s.Successful == 0 && s.Submitted > 0 {
		return errors.Join(ErrVerification, errors.New("no reading was accepted"))
	}
	if grown := s.EventsAfter - s.EventsBefore; grown < s.Successful {
		return fmt.Errorf("%w: expected at least %d new events, got %d", ErrVerification, s.Successful, grown)
	}
	return nil
}

func saveReadings(path string, readings []Reading) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(readings); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode readings: %w", err)
	}
	return f.Close()
}

func displayStats(ctx context.Context, log logger.Logger, s Stats) {
	var successRate, perSecond float64
	if s.Submitted > 0 {
		successRate = float64(s.Successful) / float64(s.Submitted) * percentage
	}
	if s.Duration > 0 {
		perSecond = float64(s.Submitted) / s.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("generated", s.Generated),
		logger.Int("submitted", s.Submitted),
		logger.Int("successful", s.Successful),
		logger.Int("failed", s.Failed),
		logger.Int("suspicious", s.Suspicious),
		logger.Float64("averageRisk", s.AverageRisk()),
		logger.Int("eventsBefore", s.EventsBefore),
		logger.Int("eventsAfter", s.EventsAfter),
		logger.Duration("duration", s.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("readingsPerSecond", perSecond))
}
