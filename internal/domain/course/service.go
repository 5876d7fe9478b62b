package course

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/database"
	"github.com/google/uuid"
)

var (
	// ErrCourseNotFound is returned when no course has the given ID
	ErrCourseNotFound = errors.New("course_not_found")
)

// Service exposes course operations
type Service interface {
	GetOrCreate(ctx context.Context, teacherID uuid.UUID, req CreateRequest) (*Course, bool, error)
	Get(ctx context.Context, id string) (*Course, error)
	ListForTeacher(ctx context.Context, teacherID string) ([]Course, error)
	ListAll(ctx context.Context) ([]Course, error)
}

type service struct {
	repo Repository
}

// NewService creates a new course service
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// GetOrCreate returns the teacher's course with req.Code, creating it when missing.
// The bool reports whether a new course was created.
func (s *service) GetOrCreate(ctx context.Context, teacherID uuid.UUID, req CreateRequest) (*Course, bool, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))

	existing, err := s.repo.FindByTeacherAndCode(ctx, teacherID.String(), code)
	if err == nil {
		return existing, false, nil
	}
	if !database.IsNotFound(err) {
		return nil, false, fmt.Errorf("failed to look up course: %w", err)
	}

	c := &Course{
		Name:        strings.TrimSpace(req.Name),
		Code:        code,
		Description: strings.TrimSpace(req.Description),
		TeacherID:   teacherID,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		if database.IsUniqueViolation(err) {
			existing, findErr := s.repo.FindByTeacherAndCode(ctx, teacherID.String(), code)
			if findErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("failed to create course: %w", err)
	}

	return c, true, nil
}

// Get returns one course
func (s *service) Get(ctx context.Context, id string) (*Course, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *service) ListForTeacher(ctx context.Context, teacherID string) ([]Course, error) {
	return s.repo.ListByTeacher(ctx, teacherID)
}

func (s *service) ListAll(ctx context.Context) ([]Course, error) {
	return s.repo.ListAll(ctx)
}
