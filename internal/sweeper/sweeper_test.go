package sweeper_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"schedule-service/internal/metrics"
	"schedule-service/internal/schedule"
	"schedule-service/internal/sweeper"
	"schedule-service/internal/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturePublisher records every event the sweeper hands it.
type capturePublisher struct {
	mu     sync.Mutex
	events []schedule.ClassEvent
}

func (p *capturePublisher) Publish(_ context.Context, _ string, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if evt, ok := value.(schedule.ClassEvent); ok {
		p.events = append(p.events, evt)
	}
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) captured() []schedule.ClassEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]schedule.ClassEvent(nil), p.events...)
}

func TestSweeper(t *testing.T) {
	database := testdb.Setup(t)
	testdb.RunMigrations(t, database, (*schedule.Class)(nil))

	mockMetrics := metrics.NewMock()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	repo := schedule.NewRepository(database, mockMetrics)
	ctx := context.Background()

	insertClass := func(t *testing.T, date, endTime string) int64 {
		t.Helper()
		class := &schedule.Class{
			TeacherID:   1,
			TeacherName: "Rahim",
			Department:  "CS",
			Batch:       "B21",
			Course:      "Algorithms",
			Room:        "101",
			StartTime:   "09:00",
			Date:        date,
			EndTime:     endTime,
		}
		_, err := database.NewInsert().Model(class).Exec(ctx)
		require.NoError(t, err)
		return class.ID
	}

	// insertEndingAt derives the stored date and end time from an instant,
	// so rows stay on the right side of "now" even across midnight.
	insertEndingAt := func(t *testing.T, at time.Time) int64 {
		t.Helper()
		return insertClass(t, at.Format(schedule.DateLayout), at.Format(schedule.TimeLayout))
	}

	t.Run("RemovesExpiredKeepsFuture", func(t *testing.T) {
		testdb.CleanupTables(t, database, "schedule")

		expiredYesterday := insertEndingAt(t, time.Now().AddDate(0, 0, -1))
		expiredRecently := insertEndingAt(t, time.Now().Add(-5*time.Minute))
		endsShortly := insertEndingAt(t, time.Now().Add(5*time.Minute))
		endsTomorrow := insertEndingAt(t, time.Now().AddDate(0, 0, 1))

		publisher := &capturePublisher{}
		s, err := sweeper.New(repo, publisher, 5*time.Minute, mockMetrics, logger)
		require.NoError(t, err)

		deleted, err := s.SweepOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, deleted)

		remaining, err := repo.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, remaining, 2)
		assert.Equal(t, endsShortly, remaining[0].ID)
		assert.Equal(t, endsTomorrow, remaining[1].ID)

		events := publisher.captured()
		require.Len(t, events, 2)
		for _, evt := range events {
			assert.Equal(t, schedule.EventClassExpired, evt.Event)
			assert.Equal(t, int64(1), evt.TeacherID)
		}
		assert.Equal(t, expiredYesterday, events[0].ClassID)
		assert.Equal(t, expiredRecently, events[1].ClassID)

		// A second pass has nothing left to do.
		deleted, err = s.SweepOnce(ctx)
		require.NoError(t, err)
		assert.Zero(t, deleted)
	})

	t.Run("SkipsMalformedRows", func(t *testing.T) {
		testdb.CleanupTables(t, database, "schedule")

		yesterday := time.Now().AddDate(0, 0, -1).Format(schedule.DateLayout)

		badDate := insertClass(t, "not-a-date", "10:00")
		badTime := insertClass(t, yesterday, "whenever")
		expired := insertEndingAt(t, time.Now().Add(-time.Hour))

		s, err := sweeper.New(repo, nil, 5*time.Minute, mockMetrics, logger)
		require.NoError(t, err)

		deleted, err := s.SweepOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, deleted, "only the well formed expired row goes")

		remaining, err := repo.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, remaining, 2)
		assert.Equal(t, badDate, remaining[0].ID)
		assert.Equal(t, badTime, remaining[1].ID)
		for _, class := range remaining {
			assert.NotEqual(t, expired, class.ID)
		}
	})

	t.Run("StartStop", func(t *testing.T) {
		testdb.CleanupTables(t, database, "schedule")

		s, err := sweeper.New(repo, nil, time.Hour, mockMetrics, logger)
		require.NoError(t, err)

		s.Start()

		stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		require.NoError(t, s.Stop(stopCtx))
	})
}
