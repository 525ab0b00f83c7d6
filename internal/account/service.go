package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"schedule-service/internal/metrics"
	"schedule-service/internal/policy"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already in use")
	ErrBadSecretAnswer    = errors.New("incorrect security answer")
	ErrInvalidInput       = errors.New("invalid input")
)

type Service struct {
	repo        Repository
	gate        *policy.Gate
	metrics     *metrics.Metrics
	validate    *validator.Validate
	emailSuffix string
}

func NewService(repo Repository, gate *policy.Gate, m *metrics.Metrics, teacherEmailSuffix string) *Service {
	return &Service{
		repo:        repo,
		gate:        gate,
		metrics:     m,
		validate:    validator.New(),
		emailSuffix: teacherEmailSuffix,
	}
}

// RegisterTeacher creates an instructor account. The email has to belong to
// the institutional domain and the secret answer has to match the shared
// registration secret.
func (s *Service) RegisterTeacher(ctx context.Context, req RegisterTeacherRequest) (int64, error) {
	if err := s.validate.Struct(req); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !strings.HasSuffix(req.Email, s.emailSuffix) {
		return 0, fmt.Errorf("%w: teacher email must end with %s", ErrInvalidInput, s.emailSuffix)
	}
	if !s.gate.Allow(req.SecretAnswer) {
		return 0, ErrBadSecretAnswer
	}

	// Check if email exists; the unique constraint still backstops races.
	existing, _ := s.repo.GetTeacherByEmail(ctx, req.Email)
	if existing != nil {
		return 0, ErrEmailTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}

	created, err := s.repo.CreateTeacher(ctx, &Teacher{
		Name:     req.Name,
		Surname:  req.Surname,
		Email:    req.Email,
		Password: string(hashed),
	})
	if err != nil {
		return 0, err
	}

	s.metrics.Business.RecordTeacherRegistered(ctx)
	return created.ID, nil
}

// RegisterStudent creates a student account.
func (s *Service) RegisterStudent(ctx context.Context, req RegisterStudentRequest) (int64, error) {
	if err := s.validate.Struct(req); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	existing, _ := s.repo.GetStudentByEmail(ctx, req.Email)
	if existing != nil {
		return 0, ErrEmailTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}

	created, err := s.repo.CreateStudent(ctx, &Student{
		Name:       req.Name,
		Surname:    req.Surname,
		Email:      req.Email,
		Password:   string(hashed),
		Batch:      req.Batch,
		Department: req.Department,
	})
	if err != nil {
		return 0, err
	}

	s.metrics.Business.RecordStudentRegistered(ctx)
	return created.ID, nil
}

// AuthenticateTeacher verifies teacher credentials. An unknown email fails
// with ErrAccountNotFound, a digest mismatch with ErrInvalidCredentials;
// callers decide how much of that distinction to expose.
func (s *Service) AuthenticateTeacher(ctx context.Context, email, password string) (*Teacher, error) {
	teacher, err := s.repo.GetTeacherByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			s.metrics.Business.RecordLoginRejected(ctx)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(teacher.Password), []byte(password)); err != nil {
		s.metrics.Business.RecordLoginRejected(ctx)
		return nil, ErrInvalidCredentials
	}

	s.metrics.Business.RecordLoginSucceeded(ctx)
	return teacher, nil
}

// AuthenticateStudent verifies student credentials.
func (s *Service) AuthenticateStudent(ctx context.Context, email, password string) (*Student, error) {
	student, err := s.repo.GetStudentByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			s.metrics.Business.RecordLoginRejected(ctx)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(student.Password), []byte(password)); err != nil {
		s.metrics.Business.RecordLoginRejected(ctx)
		return nil, ErrInvalidCredentials
	}

	s.metrics.Business.RecordLoginSucceeded(ctx)
	return student, nil
}

// GetStudent loads a student account by id.
func (s *Service) GetStudent(ctx context.Context, id int64) (*Student, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid student id", ErrInvalidInput)
	}
	return s.repo.GetStudentByID(ctx, id)
}
