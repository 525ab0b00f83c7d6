package schedule

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"schedule-service/internal/metrics"
	"schedule-service/internal/policy"

	"github.com/uptrace/bun"
)

type Repository interface {
	Create(ctx context.Context, class *Class) (*Class, error)
	GetByID(ctx context.Context, id int64) (*Class, error)
	GetAll(ctx context.Context) ([]Class, error)
	GetByOwner(ctx context.Context, teacherID int64) ([]Class, error)
	GetForAudience(ctx context.Context, batch, department string) ([]Class, error)
	UpdateOwned(ctx context.Context, requesterID, id int64, req UpdateClassRequest) (*Class, error)
	DeleteOwned(ctx context.Context, requesterID, id int64) error
	GetExpiryCandidates(ctx context.Context) ([]Class, error)
	DeleteByID(ctx context.Context, id int64) (bool, error)
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(db *bun.DB, m *metrics.Metrics) Repository {
	return &repository{
		db:      db,
		metrics: m,
	}
}

func (r *repository) Create(ctx context.Context, class *Class) (*Class, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(class).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "schedule", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	return class, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Class, error) {
	start := time.Now()
	class := new(Class)
	err := r.db.NewSelect().Model(class).Where("id = ?", id).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "schedule", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClassNotFound
		}
		return nil, err
	}
	return class, nil
}

func (r *repository) GetAll(ctx context.Context) ([]Class, error) {
	start := time.Now()
	var classes []Class
	err := r.db.NewSelect().Model(&classes).Order("id ASC").Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "schedule", time.Since(start), err)

	return classes, err
}

func (r *repository) GetByOwner(ctx context.Context, teacherID int64) ([]Class, error) {
	start := time.Now()
	var classes []Class
	err := r.db.NewSelect().
		Model(&classes).
		Where("teacher_id = ?", teacherID).
		Order("id ASC").
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "schedule", time.Since(start), err)

	return classes, err
}

// GetForAudience lists the classes a (batch, department) cohort sees,
// chronologically. The fixed zero-padded text formats make the text sort
// equal to the temporal sort.
func (r *repository) GetForAudience(ctx context.Context, batch, department string) ([]Class, error) {
	start := time.Now()
	var classes []Class
	err := r.db.NewSelect().
		Model(&classes).
		Where("batch = ?", batch).
		Where("department = ?", department).
		Order("class_date ASC", "time ASC").
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "schedule", time.Since(start), err)

	return classes, err
}

// UpdateOwned applies a partial update to a class owned by requesterID.
// The existence check, ownership check and conditional write share one
// transaction, so an unrelated teacher can never slip a write between the
// check and the mutation.
func (r *repository) UpdateOwned(ctx context.Context, requesterID, id int64, req UpdateClassRequest) (*Class, error) {
	start := time.Now()
	var updated Class
	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		current := new(Class)
		if err := tx.NewSelect().Model(current).Where("id = ?", id).Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrClassNotFound
			}
			return err
		}
		if !policy.CanMutate(requesterID, current.TeacherID) {
			return ErrNotOwner
		}

		merged, columns := mergeUpdate(*current, req)
		if req.TouchesTemporal() {
			if err := ValidateSpan(merged.Date, merged.StartTime, merged.EndTime); err != nil {
				return err
			}
		}

		res, err := tx.NewUpdate().
			Model(&merged).
			Column(columns...).
			Where("id = ?", id).
			Where("teacher_id = ?", requesterID).
			Exec(ctx)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			// The row existed above, so a concurrent delete won the race.
			return ErrClassNotFound
		}
		updated = merged
		return nil
	})

	r.metrics.Database.RecordQuery(ctx, "update", "schedule", time.Since(start), err)

	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteOwned cancels a class owned by requesterID, with the same
// transactional check-then-delete shape as UpdateOwned.
func (r *repository) DeleteOwned(ctx context.Context, requesterID, id int64) error {
	start := time.Now()
	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		current := new(Class)
		err := tx.NewSelect().
			Model(current).
			Column("id", "teacher_id").
			Where("id = ?", id).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrClassNotFound
			}
			return err
		}
		if !policy.CanMutate(requesterID, current.TeacherID) {
			return ErrNotOwner
		}

		res, err := tx.NewDelete().
			Model((*Class)(nil)).
			Where("id = ?", id).
			Where("teacher_id = ?", requesterID).
			Exec(ctx)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrClassNotFound
		}
		return nil
	})

	r.metrics.Database.RecordQuery(ctx, "delete", "schedule", time.Since(start), err)

	return err
}

// GetExpiryCandidates returns every class with just the fields the sweeper
// needs to decide and report expiry.
func (r *repository) GetExpiryCandidates(ctx context.Context) ([]Class, error) {
	start := time.Now()
	var classes []Class
	err := r.db.NewSelect().
		Model(&classes).
		Column("id", "teacher_id", "class_date", "class_end_time").
		Order("id ASC").
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "schedule", time.Since(start), err)

	return classes, err
}

// DeleteByID removes a single row unconditionally and reports whether it
// was still there. The sweeper deletes row by row so that a crash part way
// through a sweep just leaves the rest for the next one.
func (r *repository) DeleteByID(ctx context.Context, id int64) (bool, error) {
	start := time.Now()
	res, err := r.db.NewDelete().Model((*Class)(nil)).Where("id = ?", id).Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "delete", "schedule", time.Since(start), err)

	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// mergeUpdate lays the supplied fields over the current row and returns the
// column names to write. Structured fields instead of string-built SQL keep
// the update a single parameterized statement.
func mergeUpdate(current Class, req UpdateClassRequest) (Class, []string) {
	columns := make([]string, 0, 7)
	if req.Department != nil {
		current.Department = *req.Department
		columns = append(columns, "department")
	}
	if req.Batch != nil {
		current.Batch = *req.Batch
		columns = append(columns, "batch")
	}
	if req.Course != nil {
		current.Course = *req.Course
		columns = append(columns, "course")
	}
	if req.Room != nil {
		current.Room = *req.Room
		columns = append(columns, "room")
	}
	if req.StartTime != nil {
		current.StartTime = *req.StartTime
		columns = append(columns, "time")
	}
	if req.Date != nil {
		current.Date = *req.Date
		columns = append(columns, "class_date")
	}
	if req.EndTime != nil {
		current.EndTime = *req.EndTime
		columns = append(columns, "class_end_time")
	}
	return current, columns
}
