package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/database"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/utils"
)

var (
	// ErrRecordNotFound is returned when no attendance record has the given ID
	ErrRecordNotFound = errors.New("record_not_found")
)

// Service exposes attendance reads and admin corrections
type Service interface {
	History(ctx context.Context, studentID, courseID string, page, limit int) ([]HistoryEntry, int64, error)
	SessionAttendance(ctx context.Context, sessionID string) ([]SessionEntry, error)
	Delete(ctx context.Context, recordID string) error
}

type service struct {
	repo    Repository
	markers ClaimMarker
}

// NewService creates an attendance service. markers may be nil.
func NewService(repo Repository, markers ClaimMarker) Service {
	return &service{repo: repo, markers: markers}
}

// History lists a student's records newest first, optionally for one course
func (s *service) History(ctx context.Context, studentID, courseID string, page, limit int) ([]HistoryEntry, int64, error) {
	return s.repo.ListByStudent(ctx, studentID, courseID, utils.Offset(page, limit), limit)
}

// SessionAttendance lists a session's records in attendance order
func (s *service) SessionAttendance(ctx context.Context, sessionID string) ([]SessionEntry, error) {
	return s.repo.ListBySession(ctx, sessionID)
}

// Delete removes a record so the student can claim the session again
func (s *service) Delete(ctx context.Context, recordID string) error {
	if _, err := uuid.Parse(recordID); err != nil {
		return ErrRecordNotFound
	}

	rec, err := s.repo.FindByID(ctx, recordID)
	if err != nil {
		if database.IsNotFound(err) {
			return ErrRecordNotFound
		}
		return fmt.Errorf("failed to load attendance record: %w", err)
	}

	if err := s.repo.Delete(ctx, rec); err != nil {
		if database.IsNotFound(err) {
			return ErrRecordNotFound
		}
		return fmt.Errorf("failed to delete attendance record: %w", err)
	}

	if s.markers != nil {
		if err := s.markers.Clear(ctx, rec.SessionID.String(), rec.StudentID.String()); err != nil {
			slog.Warn("Failed to clear claim marker", "session_id", rec.SessionID, "student_id", rec.StudentID, "error", err)
		}
	}

	slog.Info("Attendance record deleted", "record_id", rec.ID, "session_id", rec.SessionID, "student_id", rec.StudentID)
	return nil
}
