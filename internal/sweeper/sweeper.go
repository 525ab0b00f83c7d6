// Package sweeper removes classes whose end instant has passed.
package sweeper

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"schedule-service/internal/metrics"
	"schedule-service/internal/schedule"
)

// sweepTimeout bounds a single pass so a stuck database cannot make the
// scheduler skip runs forever.
const sweepTimeout = 2 * time.Minute

// Sweeper periodically deletes classes whose date and end time lie in the
// past. Passes never overlap: if one is still going when the next tick
// fires, the tick is skipped. Each row is deleted independently, so a pass
// that dies halfway leaves the remaining expired rows for the next one.
type Sweeper struct {
	repo      schedule.Repository
	publisher schedule.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	cron      *cron.Cron
	interval  time.Duration
}

func New(repo schedule.Repository, publisher schedule.Publisher, interval time.Duration, m *metrics.Metrics, logger *slog.Logger) (*Sweeper, error) {
	s := &Sweeper{
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		interval:  interval,
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger})))
	_, err := c.AddFunc("@every "+interval.String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if _, err := s.SweepOnce(ctx); err != nil {
			s.logger.Error("expiry sweep failed", "error", err)
		}
	})
	if err != nil {
		return nil, err
	}
	s.cron = c

	return s, nil
}

// Start begins the periodic schedule. The first pass fires one interval
// after startup.
func (s *Sweeper) Start() {
	s.cron.Start()
	s.logger.Info("expiry sweeper started", "interval", s.interval.String())
}

// Stop cancels the schedule and waits for an in-flight pass to finish,
// giving up when ctx expires.
func (s *Sweeper) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SweepOnce runs a single expiry pass and returns how many classes it
// removed. Rows whose date or end time do not parse are skipped and logged,
// never deleted.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	now := time.Now()

	candidates, err := s.repo.GetExpiryCandidates(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, class := range candidates {
		endsAt, err := schedule.EndsAt(class.Date, class.EndTime)
		if err != nil {
			s.logger.Warn("skipping class with malformed end instant",
				"class_id", class.ID, "date", class.Date, "end_time", class.EndTime, "error", err)
			continue
		}
		if !endsAt.Before(now) {
			continue
		}

		removed, err := s.repo.DeleteByID(ctx, class.ID)
		if err != nil {
			s.logger.Error("failed to delete expired class", "class_id", class.ID, "error", err)
			continue
		}
		if !removed {
			// Cancelled between the listing and the delete.
			continue
		}

		deleted++
		s.publishExpired(ctx, class)
	}

	s.metrics.Business.RecordClassesExpired(ctx, int64(deleted))
	if deleted > 0 {
		s.logger.Info("expiry sweep removed classes", "count", deleted)
	} else {
		s.logger.Debug("expiry sweep found nothing to remove")
	}
	return deleted, nil
}

func (s *Sweeper) publishExpired(ctx context.Context, class schedule.Class) {
	if s.publisher == nil {
		return
	}
	evt := schedule.ClassEvent{
		Event:      schedule.EventClassExpired,
		ClassID:    class.ID,
		TeacherID:  class.TeacherID,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, strconv.FormatInt(class.ID, 10), evt); err != nil {
		s.logger.Warn("failed to publish class event",
			"event", schedule.EventClassExpired, "class_id", class.ID, "error", err)
	}
}

// cronLogger adapts slog to the scheduler's logger so skipped runs show up
// in the service logs.
type cronLogger struct {
	logger *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.Info(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.logger.Error(msg, append(keysAndValues, "error", err)...)
}
