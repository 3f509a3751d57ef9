// Package scheduler runs the dues reminder sweep on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"allotment-service/internal/models"
	"allotment-service/internal/service"
)

// Scheduler periodically sends dues reminders
type Scheduler struct {
	reminders service.ReminderService
	logger    *logrus.Logger
	cron      *cron.Cron
	now       func() time.Time
	timeout   time.Duration
}

// NewScheduler creates a Scheduler that runs the sweep on spec, a standard cron
// expression or a descriptor such as "@daily". A run still going when the next one
// is due makes the next one skip.
func NewScheduler(reminders service.ReminderService, logger *logrus.Logger, spec string) (*Scheduler, error) {
	s := &Scheduler{
		reminders: reminders,
		logger:    logger,
		now:       time.Now,
		timeout:   30 * time.Minute,
	}

	s.cron = cron.New(cron.WithChain(
		cron.Recover(cronLogger{logger}),
		cron.SkipIfStillRunning(cronLogger{logger}),
	))
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}

	return s, nil
}

// Start starts the scheduler in its own goroutine
func (s *Scheduler) Start() {
	s.logger.Infof("Starting reminder scheduler, next run at %s", s.Next().Format(time.RFC3339))
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running sweep to finish or ctx to end
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Reminder scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("reminder scheduler did not stop: %w", ctx.Err())
	}
}

// Next returns the time of the next scheduled sweep
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	if !entries[0].Next.IsZero() {
		return entries[0].Next
	}
	return entries[0].Schedule.Next(s.now())
}

// RunOnce performs one sweep as of today's date
func (s *Scheduler) RunOnce(ctx context.Context) (service.ReminderResult, error) {
	return s.reminders.SendDueReminders(ctx, models.CalendarDate(s.now()))
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Warnf("Reminder sweep failed: %v", err)
	}
}

// cronLogger adapts logrus to the cron.Logger interface
type cronLogger struct {
	logger *logrus.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}
