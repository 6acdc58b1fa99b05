package usecase

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	applogger "BrentShift/pkg/logger"
)

// Scheduler re-runs the pipeline on a cron expression, for deployments where
// the price file is refreshed in place. An empty expression disables it.
type Scheduler struct {
	c *cron.Cron
	l *applogger.Logger
}

func NewScheduler(pipe *Pipeline, spec string, l *applogger.Logger) (*Scheduler, error) {
	s := &Scheduler{l: l}
	if spec == "" {
		return s, nil
	}

	s.c = cron.New()
	_, err := s.c.AddFunc(spec, func() {
		if _, err := pipe.Run(context.Background()); err != nil {
			l.Error("scheduled run failed", applogger.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	if s.c == nil {
		return
	}
	s.c.Start()
	s.l.Info("re-analysis schedule started")
}

func (s *Scheduler) Stop() {
	if s.c == nil {
		return
	}
	<-s.c.Stop().Done()
	s.l.Info("re-analysis schedule stopped")
}
