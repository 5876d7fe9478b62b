package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/database"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/auth"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/claim"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/course"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/metrics"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/utils"
	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound is returned when no session has the given ID
	ErrSessionNotFound = errors.New("session-not-found")
	// ErrSessionInactive is returned when the session has been closed
	ErrSessionInactive = errors.New("session-inactive")
	// ErrSessionTimeExpired is returned when the session is active but past its deadline
	ErrSessionTimeExpired = errors.New("session-time-expired")
)

const (
	TriggerManual = "manual"
	TriggerReaper = "reaper"
)

// Cache is a read-through cache in front of Repository.FindByID.
// Get returns gorm.ErrRecordNotFound (possibly wrapped) for unknown IDs.
type Cache interface {
	Get(ctx context.Context, id string) (*Session, error)
	Invalidate(ctx context.Context, id string) error
}

// CourseFinder resolves the course a session is created for
type CourseFinder interface {
	Get(ctx context.Context, id string) (*course.Course, error)
}

// Service interface for session operations
type Service interface {
	Create(ctx context.Context, teacherID uuid.UUID, req CreateRequest) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Session, error)
	Close(ctx context.Context, id, trigger string) (*Session, error)
	RotateSecret(ctx context.Context, id string) (*Session, error)
	IssueClaim(ctx context.Context, id string) (claim.Claim, error)
	ListMine(ctx context.Context, teacherID string, status StatusFilter, page, limit int) ([]Session, int64, error)
	ListActive(ctx context.Context) ([]Session, error)
	ReapExpired(ctx context.Context, grace time.Duration) (int, error)
	IsOwnerOrAdmin(identity *auth.Identity, sess *Session) bool
	Now() time.Time
}

// Option configures a session service
type Option func(*service)

// WithCache puts c in front of the repository for reads
func WithCache(c Cache) Option {
	return func(s *service) { s.cache = c }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

type service struct {
	repo    Repository
	courses CourseFinder
	issuer  *claim.Issuer
	cache   Cache
	now     func() time.Time
}

// NewService creates a session service. The issuer decides the claim window.
func NewService(repo Repository, courses CourseFinder, issuer *claim.Issuer, opts ...Option) Service {
	s := &service{repo: repo, courses: courses, issuer: issuer, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Now() time.Time {
	return s.now()
}

// Create opens a new session for teacherID with a fresh secret
func (s *service) Create(ctx context.Context, teacherID uuid.UUID, req CreateRequest) (*Session, error) {
	c, err := s.courses.Get(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}

	secret, err := claim.GenerateSecret()
	if err != nil {
		return nil, err
	}

	duration := req.Duration
	if duration == 0 {
		duration = DefaultDuration
	}

	sess := &Session{
		TeacherID:   teacherID,
		CourseID:    c.ID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Duration:    duration,
		Active:      true,
		Secret:      secret,
	}
	// the deadline is anchored to the service clock, not the database's
	sess.CreatedAt = s.now()

	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	metrics.SessionsCreatedTotal.Inc()
	slog.Info("Session created", "session_id", sess.ID, "teacher_id", teacherID, "course_id", c.ID, "duration", duration)
	return sess, nil
}

// Get loads a session through the cache when one is configured
func (s *service) Get(ctx context.Context, id string) (*Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrSessionNotFound
	}

	var (
		sess *Session
		err  error
	)
	if s.cache != nil {
		sess, err = s.cache.Get(ctx, id)
	} else {
		sess, err = s.repo.FindByID(ctx, id)
	}
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return sess, nil
}

// reload bypasses the cache after a write
func (s *service) reload(ctx context.Context, id string) (*Session, error) {
	s.invalidate(ctx, id)
	sess, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to reload session: %w", err)
	}
	return sess, nil
}

func (s *service) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		slog.Warn("Failed to invalidate cached session", "session_id", id, "error", err)
	}
}

// Update changes title and description. Closed sessions are immutable.
func (s *service) Update(ctx context.Context, id string, req UpdateRequest) (*Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sess.Active {
		return nil, ErrSessionInactive
	}

	fields := map[string]any{}
	if req.Title != nil {
		fields["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		fields["description"] = strings.TrimSpace(*req.Description)
	}
	if len(fields) == 0 {
		return sess, nil
	}

	if err := s.repo.UpdateDetails(ctx, id, fields); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	return s.reload(ctx, id)
}

// Close moves an open or expired session to closed. Closing a closed
// session is a no-op that keeps the original end time.
func (s *service) Close(ctx context.Context, id, trigger string) (*Session, error) {
	sess, _, err := s.close(ctx, id, trigger)
	return sess, err
}

// close reports whether this call performed the transition
func (s *service) close(ctx context.Context, id, trigger string) (*Session, bool, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if !sess.Active {
		return sess, false, nil
	}

	closed, err := s.repo.Close(ctx, id, s.now())
	if err != nil {
		return nil, false, fmt.Errorf("failed to close session: %w", err)
	}
	if closed {
		metrics.SessionsClosedTotal.WithLabelValues(trigger).Inc()
		slog.Info("Session closed", "session_id", id, "trigger", trigger)
	}

	sess, err = s.reload(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return sess, closed, nil
}

// RotateSecret replaces the session secret; claims minted before it stop verifying
func (s *service) RotateSecret(ctx context.Context, id string) (*Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sess.Active {
		return nil, ErrSessionInactive
	}

	secret, err := claim.GenerateSecret()
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateSecret(ctx, id, secret); err != nil {
		return nil, fmt.Errorf("failed to rotate secret: %w", err)
	}

	slog.Info("Session secret rotated", "session_id", id)
	return s.reload(ctx, id)
}

// IssueClaim mints a claim for a live session and records its expiry for display
func (s *service) IssueClaim(ctx context.Context, id string) (claim.Claim, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return claim.Claim{}, err
	}
	if err := sess.CheckLive(s.now()); err != nil {
		return claim.Claim{}, err
	}

	c := s.issuer.Issue(sess.ID.String(), sess.Secret)
	if err := s.repo.SetSecretExpiry(ctx, id, c.Expiry()); err != nil {
		return claim.Claim{}, fmt.Errorf("failed to record claim expiry: %w", err)
	}

	metrics.QRIssuedTotal.Inc()
	return c, nil
}

func (s *service) ListMine(ctx context.Context, teacherID string, status StatusFilter, page, limit int) ([]Session, int64, error) {
	return s.repo.ListByTeacher(ctx, teacherID, status, utils.Offset(page, limit), limit)
}

// ListActive returns the sessions currently accepting claims
func (s *service) ListActive(ctx context.Context) ([]Session, error) {
	all, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	live := make([]Session, 0, len(all))
	for _, sess := range all {
		if sess.IsLive(now) {
			live = append(live, sess)
		}
	}
	return live, nil
}

// ReapExpired closes active sessions whose deadline passed more than grace ago.
// It returns how many sessions it closed; sessions closed by someone else meanwhile are not counted.
func (s *service) ReapExpired(ctx context.Context, grace time.Duration) (int, error) {
	all, err := s.repo.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active sessions: %w", err)
	}

	cutoff := s.now().Add(-grace)
	closed := 0
	for _, sess := range all {
		if sess.Deadline().After(cutoff) {
			continue
		}
		_, done, err := s.close(ctx, sess.ID.String(), TriggerReaper)
		if err != nil {
			slog.Error("Failed to reap session", "session_id", sess.ID, "error", err)
			continue
		}
		if done {
			closed++
		}
	}
	return closed, nil
}

// IsOwnerOrAdmin reports whether identity may manage sess
func (s *service) IsOwnerOrAdmin(identity *auth.Identity, sess *Session) bool {
	if identity == nil || sess == nil {
		return false
	}
	if identity.IsAdmin() {
		return true
	}
	return identity.UserID == sess.TeacherID.String()
}
