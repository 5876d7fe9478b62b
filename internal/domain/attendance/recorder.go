package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/database"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/claim"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/session"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/metrics"
)

var (
	// ErrDuplicateClaim is returned when the student already has a record for the session
	ErrDuplicateClaim = errors.New("duplicate-claim")
	// ErrSessionMismatch is returned when the body's sessionId differs from the claim's
	ErrSessionMismatch = errors.New("session-mismatch")
)

// outcomeRecorded labels successful claims in metrics
const outcomeRecorded = "recorded"

// reasonCodes are the rejections reported to the client as-is
var reasonCodes = []error{
	session.ErrSessionNotFound,
	session.ErrSessionInactive,
	session.ErrSessionTimeExpired,
	claim.ErrTokenExpired,
	claim.ErrSecretMismatch,
	ErrDuplicateClaim,
	ErrSessionMismatch,
}

// ReasonCode returns the client-facing code of err, or "" for infrastructure errors
func ReasonCode(err error) string {
	for _, code := range reasonCodes {
		if errors.Is(err, code) {
			return code.Error()
		}
	}
	return ""
}

// SessionSource resolves the session a claim targets
type SessionSource interface {
	Get(ctx context.Context, id string) (*session.Session, error)
}

// ClaimMarker remembers (session, student) pairs that already claimed so
// repeats are rejected without a database round trip.
type ClaimMarker interface {
	IsClaimed(ctx context.Context, sessionID, studentID string) (bool, error)
	MarkClaimed(ctx context.Context, sessionID, studentID string, ttl time.Duration) error
	Clear(ctx context.Context, sessionID, studentID string) error
}

// RecordInput is one claim submission
type RecordInput struct {
	StudentID  uuid.UUID
	SessionID  string
	Claim      claim.Claim
	DeviceInfo string
	IPAddress  string
}

// RecorderOption configures a Recorder
type RecorderOption func(*Recorder)

// WithMarkers enables the claimed-marker fast path
func WithMarkers(m ClaimMarker) RecorderOption {
	return func(r *Recorder) { r.markers = m }
}

// WithRecorderClock replaces time.Now
func WithRecorderClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

// Recorder turns verified claims into attendance records
type Recorder struct {
	repo     Repository
	sessions SessionSource
	verifier *claim.Verifier
	markers  ClaimMarker
	now      func() time.Time
}

func NewRecorder(repo Repository, sessions SessionSource, verifier *claim.Verifier, opts ...RecorderOption) *Recorder {
	r := &Recorder{repo: repo, sessions: sessions, verifier: verifier, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record checks the session, verifies the claim and inserts the record,
// stopping at the first failure. Concurrent identical submissions yield
// exactly one record; the rest get ErrDuplicateClaim.
func (r *Recorder) Record(ctx context.Context, in RecordInput) (*Record, error) {
	rec, err := r.record(ctx, in)

	outcome := outcomeRecorded
	if err != nil {
		outcome = ReasonCode(err)
		if outcome == "" {
			outcome = "error"
		}
	}
	metrics.ClaimsTotal.WithLabelValues(outcome).Inc()

	return rec, err
}

func (r *Recorder) record(ctx context.Context, in RecordInput) (*Record, error) {
	if in.Claim.SessionID != in.SessionID {
		return nil, ErrSessionMismatch
	}

	sess, err := r.sessions.Get(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	now := r.now()
	if err := sess.CheckLive(now); err != nil {
		return nil, err
	}

	if err := r.verifier.Verify(in.Claim, sess.Secret); err != nil {
		return nil, err
	}

	sessionID := sess.ID.String()
	studentID := in.StudentID.String()

	if r.markers != nil {
		claimed, err := r.markers.IsClaimed(ctx, sessionID, studentID)
		if err != nil {
			slog.Warn("Claim marker lookup failed", "session_id", sessionID, "student_id", studentID, "error", err)
		} else if claimed {
			return nil, ErrDuplicateClaim
		}
	}

	exists, err := r.repo.Exists(ctx, studentID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing attendance: %w", err)
	}
	if exists {
		return nil, ErrDuplicateClaim
	}

	rec := &Record{
		StudentID:  in.StudentID,
		SessionID:  sess.ID,
		MarkedAt:   now,
		Status:     StatusPresent,
		DeviceInfo: in.DeviceInfo,
		IPAddress:  in.IPAddress,
	}
	if err := r.repo.Create(ctx, rec, sess.Secret); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicateClaim
		}
		if ReasonCode(err) != "" {
			// the session was closed or rotated after it was read
			return nil, err
		}
		return nil, fmt.Errorf("failed to record attendance: %w", err)
	}

	if r.markers != nil {
		// the marker only needs to outlive the window in which claims can verify
		ttl := sess.Deadline().Sub(now) + r.verifier.MaxAge()
		if err := r.markers.MarkClaimed(ctx, sessionID, studentID, ttl); err != nil {
			slog.Warn("Failed to set claim marker", "session_id", sessionID, "student_id", studentID, "error", err)
		}
	}

	slog.Info("Attendance recorded", "session_id", sessionID, "student_id", studentID, "record_id", rec.ID)
	return rec, nil
}
