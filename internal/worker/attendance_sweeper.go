package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bookclub/internal/domain"

	"github.com/go-co-op/gocron/v2"
)

// AttendanceSweeper periodically marks approved applications of past events that were never
// checked in as not attended.
type AttendanceSweeper struct {
	service  domain.AttendanceService
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewAttendanceSweeper(service domain.AttendanceService, interval time.Duration, logger *slog.Logger) *AttendanceSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &AttendanceSweeper{
		service:  service,
		interval: interval,
		logger:   logger.With("component", "attendance_sweeper"),
		now:      time.Now,
	}
}

// SweepOnce runs a single sweep and logs the outcome.
func (s *AttendanceSweeper) SweepOnce(ctx context.Context) {
	n, err := s.service.SweepUnattended(ctx, s.now())
	if err != nil {
		s.logger.ErrorContext(ctx, "attendance sweep failed", "err", err)
		return
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "attendance sweep marked applications as not attended", "count", n)
	}
}

// Run schedules the sweep every interval, starting immediately, until ctx is done.
// Overlapping runs are skipped.
func (s *AttendanceSweeper) Run(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() { s.SweepOnce(ctx) }),
		gocron.WithName("attendance-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return fmt.Errorf("schedule attendance sweep: %w", err)
	}

	s.logger.InfoContext(ctx, "attendance sweeper started", "interval", s.interval.String())
	scheduler.Start()
	<-ctx.Done()
	if err := scheduler.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	s.logger.Info("attendance sweeper stopped")
	return nil
}
