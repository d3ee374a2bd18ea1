package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/masomo-notify/core"
	"github.com/trezcool/masomo-notify/core/notification"
)

type batchRunner interface {
	Run(ctx context.Context) (notification.BatchReport, error)
}

// scheduler runs the digest batch on a cron schedule; a batch still running when the next one is due is skipped.
type scheduler struct {
	cron  *cron.Cron
	batch batchRunner
	log   core.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func newScheduler(schedule string, batch batchRunner, logger core.Logger) (*scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		batch:  batch,
		log:    logger,
		ctx:    ctx,
		cancel: cancel,
	}
	if _, err := s.cron.AddFunc(schedule, s.runBatch); err != nil {
		cancel()
		return nil, errors.Wrapf(err, "invalid digest schedule %q", schedule)
	}
	return s, nil
}

func (s *scheduler) runBatch() {
	start := time.Now()
	report, err := s.batch.Run(s.ctx)
	if err != nil {
		s.log.Error("digest batch failed", err)
		return
	}
	s.log.Info("digest batch finished", map[string]interface{}{"duration": time.Since(start).String(), "sent": report.Sent})
}

func (s *scheduler) start() {
	s.cron.Start()
	s.log.Info("digest scheduler started", map[string]interface{}{"next": s.next().Format(time.RFC3339)})
}

func (s *scheduler) next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// stop stops scheduling and waits for the running batch, cancelling it after grace.
func (s *scheduler) stop(grace time.Duration) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-time.After(grace):
		s.log.Warn("digest batch still running: cancelling it")
		s.cancel()
		<-done
	}
	s.cancel()
}
