package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/database"
)

var (
	// ErrEmailExists is returned when trying to register with an email that already exists
	ErrEmailExists = errors.New("email_exists")
	// ErrStudentIDExists is returned when the student ID is already registered
	ErrStudentIDExists = errors.New("student_id_exists")
	// ErrStudentIDRequired is returned when a student registers without a student ID
	ErrStudentIDRequired = errors.New("student_id_required")
	// ErrInvalidRole is returned for roles other than student, teacher or admin
	ErrInvalidRole = errors.New("invalid_role")
	// ErrInvalidCredentials is returned when email or password do not match
	ErrInvalidCredentials = errors.New("invalid_credentials")
	// ErrUserInactive is returned when a deactivated account tries to log in
	ErrUserInactive = errors.New("user_inactive")
	// ErrUserNotFound is returned when no user has the given ID
	ErrUserNotFound = errors.New("user_not_found")
)

// RegisterRequest represents the input for user registration
type RegisterRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=6"`
	Name       string `json:"name" validate:"required,min=2"`
	Role       Role   `json:"role" validate:"required,oneof=student teacher admin"`
	StudentID  string `json:"studentId" validate:"omitempty,min=3,max=64"`
	Department string `json:"department" validate:"omitempty,max=100"`
}

// LoginRequest represents the input for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Service interface for user operations
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}

// service struct for user operations
type service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new user service
func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register registers a new user
func (s *service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if !req.Role.IsValid() {
		return nil, ErrInvalidRole
	}

	studentID := strings.TrimSpace(req.StudentID)
	if req.Role == RoleStudent && studentID == "" {
		return nil, ErrStudentIDRequired
	}

	email := normalizeEmail(req.Email)
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	}

	if studentID != "" {
		if _, err := s.repo.GetByStudentID(ctx, studentID); err == nil {
			return nil, ErrStudentIDExists
		}
	}

	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		Email:      email,
		Name:       strings.TrimSpace(req.Name),
		Password:   hashedPassword,
		Role:       req.Role,
		Department: strings.TrimSpace(req.Department),
		IsActive:   true,
	}
	if studentID != "" {
		user.StudentID = &studentID
	}

	if err := s.repo.Create(ctx, user); err != nil {
		// lost a race with a concurrent registration
		if database.IsUniqueViolation(err) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate checks credentials and records the login time
func (s *service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !VerifyPassword(password, u.Password) {
		return nil, ErrInvalidCredentials
	}

	if !u.IsActive {
		return nil, ErrUserInactive
	}

	now := s.now()
	if err := s.repo.TouchLastLogin(ctx, u.ID.String(), now); err != nil {
		slog.Warn("Failed to record last login", "user_id", u.ID, "error", err)
	} else {
		u.LastLoginAt = &now
	}

	return u, nil
}

// GetByID returns the user with the given id
func (s *service) GetByID(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}
