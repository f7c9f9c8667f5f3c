package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/irgordon/insight/api/internal/core/domain"
	"github.com/irgordon/insight/api/internal/telemetry"
)

var ErrEncryptionDisabled = errors.New("encryption is not enabled")

const itemTimeout = 10 * time.Second

// EventPublisher receives each finished run for live clients.
type EventPublisher interface {
	Publish(topic string, v any) error
}

// EncryptionSweeper re-saves rows written before a key was configured so
// that they end up encrypted at rest.
type EncryptionSweeper struct {
	targets     []domain.SweepTarget
	history     domain.SweepRepository
	crypto      interface{ Enabled() bool }
	logger      *slog.Logger
	interval    time.Duration
	concurrency int // 🛡️ SLA: Limit concurrent re-encryptions
	events      EventPublisher

	running sync.Mutex
}

func NewEncryptionSweeper(
	targets []domain.SweepTarget,
	history domain.SweepRepository,
	crypto interface{ Enabled() bool },
	logger *slog.Logger,
	interval time.Duration,
	concurrency int,
) *EncryptionSweeper {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &EncryptionSweeper{
		targets:     targets,
		history:     history,
		crypto:      crypto,
		logger:      logger,
		interval:    interval,
		concurrency: concurrency,
	}
}

// WithEvents publishes every recorded run on telemetry.TopicSweeps.
func (s *EncryptionSweeper) WithEvents(events EventPublisher) *EncryptionSweeper {
	s.events = events
	return s
}

// Start sweeps once, then on every interval tick until ctx is cancelled.
// It returns immediately when encryption is disabled or the interval is zero.
func (s *EncryptionSweeper) Start(ctx context.Context) {
	if !s.crypto.Enabled() || s.interval <= 0 {
		s.logger.Info("Encryption sweeper idle", slog.Bool("encryption", s.crypto.Enabled()))
		return
	}

	s.sweepAndLog(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepAndLog(ctx)
		}
	}
}

func (s *EncryptionSweeper) sweepAndLog(ctx context.Context) {
	if _, err := s.SweepOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("Encryption sweep incomplete", slog.Any("error", err))
	}
}

// SweepOnce runs a single pass over every target. Runs are serialized.
func (s *EncryptionSweeper) SweepOnce(ctx context.Context) ([]domain.SweepRun, error) {
	if !s.crypto.Enabled() {
		return nil, ErrEncryptionDisabled
	}

	s.running.Lock()
	defer s.running.Unlock()

	var (
		runs []domain.SweepRun
		errs []error
	)
	for _, target := range s.targets {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		run, err := s.sweepTarget(ctx, target)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", target.Name(), err))
			continue
		}

		if s.history != nil {
			if err := s.history.RecordSweep(ctx, &run); err != nil {
				s.logger.Warn("Failed to record sweep", slog.String("target", run.Target), slog.Any("error", err))
			}
		}
		if s.events != nil {
			if err := s.events.Publish(telemetry.TopicSweeps, run); err != nil {
				s.logger.Debug("Sweep event not published", slog.Any("error", err))
			}
		}
		runs = append(runs, run)
	}
	return runs, errors.Join(errs...)
}

func (s *EncryptionSweeper) sweepTarget(ctx context.Context, target domain.SweepTarget) (domain.SweepRun, error) {
	run := domain.SweepRun{Target: target.Name()}

	ids, err := target.PendingPlaintext(ctx)
	if err != nil {
		return run, fmt.Errorf("failed to list plaintext rows: %w", err)
	}
	run.Pending = len(ids)
	if len(ids) == 0 {
		return run, nil
	}

	// 🛡️ SLA: Concurrency control via semaphore
	sem := make(chan struct{}, s.concurrency)
	var (
		wg        sync.WaitGroup
		converted atomic.Int64
		failed    atomic.Int64
	)

	for _, id := range ids {
		select {
		case <-ctx.Done():
			failed.Add(1)
			continue
		case sem <- struct{}{}: // Acquire
		}

		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }() // Release

			// 🛡️ Per-item Timeout: one slow row must not stall the pass
			itemCtx, cancel := context.WithTimeout(ctx, itemTimeout)
			defer cancel()

			if err := target.Reencrypt(itemCtx, id); err != nil {
				failed.Add(1)
				s.logger.Warn("Re-encryption failed",
					slog.String("target", run.Target),
					slog.String("id", id),
					slog.Any("error", err))
				return
			}
			converted.Add(1)
		}(id)
	}
	wg.Wait()

	run.Converted = int(converted.Load())
	run.Failed = int(failed.Load())

	s.logger.Info("Encryption sweep finished",
		slog.String("target", run.Target),
		slog.Int("pending", run.Pending),
		slog.Int("converted", run.Converted),
		slog.Int("failed", run.Failed))
	return run, nil
}
