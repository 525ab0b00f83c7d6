package account

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"schedule-service/internal/metrics"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

type Repository interface {
	CreateTeacher(ctx context.Context, teacher *Teacher) (*Teacher, error)
	GetTeacherByEmail(ctx context.Context, email string) (*Teacher, error)
	GetTeacherByID(ctx context.Context, id int64) (*Teacher, error)
	CreateStudent(ctx context.Context, student *Student) (*Student, error)
	GetStudentByEmail(ctx context.Context, email string) (*Student, error)
	GetStudentByID(ctx context.Context, id int64) (*Student, error)
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

func (r *repository) CreateTeacher(ctx context.Context, teacher *Teacher) (*Teacher, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(teacher).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "teachers", time.Since(start), err)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return teacher, nil
}

func (r *repository) GetTeacherByEmail(ctx context.Context, email string) (*Teacher, error) {
	start := time.Now()
	teacher := new(Teacher)
	err := r.db.NewSelect().Model(teacher).Where("email = ?", email).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "teachers", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return teacher, nil
}

func (r *repository) GetTeacherByID(ctx context.Context, id int64) (*Teacher, error) {
	start := time.Now()
	teacher := new(Teacher)
	err := r.db.NewSelect().Model(teacher).Where("id = ?", id).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "teachers", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return teacher, nil
}

func (r *repository) CreateStudent(ctx context.Context, student *Student) (*Student, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(student).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "students", time.Since(start), err)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return student, nil
}

func (r *repository) GetStudentByEmail(ctx context.Context, email string) (*Student, error) {
	start := time.Now()
	student := new(Student)
	err := r.db.NewSelect().Model(student).Where("email = ?", email).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "students", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return student, nil
}

func (r *repository) GetStudentByID(ctx context.Context, id int64) (*Student, error) {
	start := time.Now()
	student := new(Student)
	err := r.db.NewSelect().Model(student).Where("id = ?", id).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "students", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return student, nil
}

// isUniqueViolation matches duplicate-key failures from either driver. The
// email columns are the only unique constraints in the schema.
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505" // unique_violation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
