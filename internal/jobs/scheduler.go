package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type StreamTrimmer interface {
	Trim(ctx context.Context) (int64, error)
}

// Scheduler runs periodic maintenance. Schedules use six fields, seconds
// first.
type Scheduler struct {
	cron     *cron.Cron
	trimmer  StreamTrimmer
	schedule string
	timeout  time.Duration
	log      zerolog.Logger
}

func NewScheduler(trimmer StreamTrimmer, schedule string, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	return &Scheduler{
		cron:     c,
		trimmer:  trimmer,
		schedule: schedule,
		timeout:  30 * time.Second,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if s.trimmer == nil || s.schedule == "" {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.trimAudit); err != nil {
		return fmt.Errorf("schedule audit trim %q: %w", s.schedule, err)
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() context.CancelFunc {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	go func() {
		<-s.cron.Stop().Done()
		cancel()
	}()
	<-ctx.Done()
	return cancel
}

func (s *Scheduler) trimAudit() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	removed, err := s.trimmer.Trim(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("audit stream trim failed")
		return
	}
	if removed > 0 {
		s.log.Info().Int64("removed", removed).Msg("audit stream trimmed")
	}
}
