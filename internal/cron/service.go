package cron

import (
	"context"
	"sync"
	"time"

	"github.com/lamnguyendev/keymart-backend/pkg/logger"
	"github.com/lamnguyendev/keymart-backend/pkg/metrics"
)

// Service drives every registered job on its own ticker until the context
// is cancelled.
type Service struct {
	registry *Registry
	locker   Locker
	metrics  *metrics.CronJobMetrics
	lockTTL  time.Duration
	log      *logger.Logger
}

func NewService(registry *Registry, locker Locker, m *metrics.CronJobMetrics, lockTTL time.Duration, log *logger.Logger) *Service {
	if locker == nil {
		locker = NopLocker{}
	}
	return &Service{
		registry: registry,
		locker:   locker,
		metrics:  m,
		lockTTL:  lockTTL,
		log:      log,
	}
}

// Run blocks until ctx is done. Each job fires once immediately and then on
// its interval.
func (s *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, job := range s.registry.Jobs() {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			s.runLoop(ctx, job)
		}(job)
	}
	wg.Wait()
}

func (s *Service) runLoop(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Interval())
	defer ticker.Stop()

	s.runOnce(ctx, job)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, job)
		}
	}
}

func (s *Service) runOnce(ctx context.Context, job Job) {
	log := s.log.WithField("job", job.Name())

	release, acquired, err := s.locker.Acquire(ctx, job.Name(), s.lockTTL)
	if err != nil {
		log.Error(err, "acquire job lock")
		return
	}
	if !acquired {
		log.Debug("job lock held elsewhere, skipping run")
		return
	}
	defer release()

	start := time.Now()
	runErr := job.Run(s.log.Attach(ctx))
	s.metrics.ObserveRun(job.Name(), time.Since(start), runErr)

	if runErr != nil {
		log.Error(runErr, "job run failed")
		return
	}
	log.WithField("duration", time.Since(start).String()).Debug("job run complete")
}
