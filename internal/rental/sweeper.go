package rental

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper runs the expiry sweep on a cron schedule.
type Sweeper struct {
	cron      *cron.Cron
	lifecycle *Lifecycle
	log       *zap.Logger
}

func NewSweeper(lifecycle *Lifecycle, log *zap.Logger) *Sweeper {
	return &Sweeper{cron: cron.New(), lifecycle: lifecycle, log: log}
}

// Start registers the schedule and runs one sweep immediately so a restart
// never leaves expired products visible until the next tick.
func (s *Sweeper) Start(schedule string) error {
	if _, err := s.lifecycle.Sweep(context.Background()); err != nil {
		s.log.Error("startup rent sweep failed", zap.Error(err))
	}

	_, err := s.cron.AddFunc(schedule, func() {
		if _, err := s.lifecycle.Sweep(context.Background()); err != nil {
			s.log.Error("rent sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("rent sweeper started", zap.String("schedule", schedule))
	return nil
}

func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
