package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"schedule-service/internal/metrics"

	"github.com/go-playground/validator/v10"
)

var (
	ErrClassNotFound = errors.New("class not found")
	ErrNotOwner      = errors.New("you can only modify your own classes")
	ErrInvalidInput  = errors.New("invalid input")
)

type Service struct {
	repo      Repository
	publisher Publisher
	metrics   *metrics.Metrics
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewService wires the class operations. publisher may be nil, which turns
// lifecycle events off.
func NewService(repo Repository, publisher Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Create assigns a new class owned by the calling teacher. All fields are
// required and the time window has to be well formed.
func (s *Service) Create(ctx context.Context, ownerID int64, ownerName string, req CreateClassRequest) (*Class, error) {
	if ownerID <= 0 {
		return nil, fmt.Errorf("%w: invalid teacher id", ErrInvalidInput)
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := ValidateSpan(req.Date, req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, &Class{
		TeacherID:   ownerID,
		TeacherName: ownerName,
		Department:  req.Department,
		Batch:       req.Batch,
		Course:      req.Course,
		Room:        req.Room,
		StartTime:   req.StartTime,
		Date:        req.Date,
		EndTime:     req.EndTime,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Business.RecordClassCreated(ctx)
	s.publishEvent(ctx, EventClassCreated, created.ID, created.TeacherID)
	return created, nil
}

// Update applies a partial update to a class the requester owns. Unsupplied
// fields keep their value; at least one field has to be supplied.
func (s *Service) Update(ctx context.Context, requesterID, id int64, req UpdateClassRequest) (*Class, error) {
	if req.IsEmpty() {
		return nil, fmt.Errorf("%w: at least one field must be supplied", ErrInvalidInput)
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	updated, err := s.repo.UpdateOwned(ctx, requesterID, id, req)
	if err != nil {
		return nil, err
	}

	s.metrics.Business.RecordClassUpdated(ctx)
	s.publishEvent(ctx, EventClassUpdated, updated.ID, updated.TeacherID)
	return updated, nil
}

// Cancel deletes a class the requester owns. Repeating a cancel fails with
// ErrClassNotFound.
func (s *Service) Cancel(ctx context.Context, requesterID, id int64) error {
	if err := s.repo.DeleteOwned(ctx, requesterID, id); err != nil {
		return err
	}

	s.metrics.Business.RecordClassCancelled(ctx)
	s.publishEvent(ctx, EventClassCancelled, id, requesterID)
	return nil
}

// Get loads one class by id.
func (s *Service) Get(ctx context.Context, id int64) (*Class, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid class id", ErrInvalidInput)
	}
	return s.repo.GetByID(ctx, id)
}

// ListAll returns every class in creation order.
func (s *Service) ListAll(ctx context.Context) ([]Class, error) {
	return s.repo.GetAll(ctx)
}

// ListByOwner returns the classes a teacher created, in creation order.
func (s *Service) ListByOwner(ctx context.Context, teacherID int64) ([]Class, error) {
	if teacherID <= 0 {
		return nil, fmt.Errorf("%w: invalid teacher id", ErrInvalidInput)
	}
	return s.repo.GetByOwner(ctx, teacherID)
}

// ListForAudience returns the classes visible to a (batch, department)
// cohort, ordered by date then start time. Students care about when a class
// happens, not when it was entered.
func (s *Service) ListForAudience(ctx context.Context, batch, department string) ([]Class, error) {
	return s.repo.GetForAudience(ctx, batch, department)
}

func (s *Service) publishEvent(ctx context.Context, event string, classID, teacherID int64) {
	if s.publisher == nil {
		return
	}

	evt := ClassEvent{
		Event:      event,
		ClassID:    classID,
		TeacherID:  teacherID,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, strconv.FormatInt(classID, 10), evt); err != nil {
		s.logger.WarnContext(ctx, "failed to publish class event",
			"event", event, "class_id", classID, "error", err)
	}
}
