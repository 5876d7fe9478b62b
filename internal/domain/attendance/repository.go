package attendance

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/claim"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/session"
)

// Repository interface for attendance persistence
type Repository interface {
	Create(ctx context.Context, rec *Record, secret string) error
	Exists(ctx context.Context, studentID, sessionID string) (bool, error)
	FindByID(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, rec *Record) error
	ListByStudent(ctx context.Context, studentID, courseID string, offset, limit int) ([]HistoryEntry, int64, error)
	ListBySession(ctx context.Context, sessionID string) ([]SessionEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new attendance repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Create inserts rec and bumps the session's attendance_count in one transaction.
// The bump only matches a session that is still active and still carries
// secret, so a close or rotation that landed after the caller's read wins.
// A duplicate (student, session) pair fails on the unique index and rolls
// the bump back.
func (r *repository) Create(ctx context.Context, rec *Record, secret string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&session.Session{}).
			Where("id = ? AND active = ? AND secret = ?", rec.SessionID, true, secret).
			UpdateColumn("attendance_count", gorm.Expr("attendance_count + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return sessionChanged(tx, rec)
		}
		return tx.Create(rec).Error
	})
}

// sessionChanged explains why the guarded bump in Create matched nothing
func sessionChanged(tx *gorm.DB, rec *Record) error {
	var current session.Session
	err := tx.Select("id", "active").Where("id = ?", rec.SessionID).First(&current).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return session.ErrSessionNotFound
	case err != nil:
		return err
	case !current.Active:
		return session.ErrSessionInactive
	default:
		return claim.ErrSecretMismatch
	}
}

func (r *repository) Exists(ctx context.Context, studentID, sessionID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Record{}).
		Where("student_id = ? AND session_id = ?", studentID, sessionID).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) FindByID(ctx context.Context, id string) (*Record, error) {
	var rec Record
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// Delete removes rec for good, freeing the (student, session) pair, and
// decrements the session's attendance_count.
func (r *repository) Delete(ctx context.Context, rec *Record) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Unscoped().Delete(&Record{}, "id = ?", rec.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Model(&session.Session{}).
			Where("id = ? AND attendance_count > 0", rec.SessionID).
			UpdateColumn("attendance_count", gorm.Expr("attendance_count - ?", 1)).Error
	})
}

func (r *repository) ListByStudent(ctx context.Context, studentID, courseID string, offset, limit int) ([]HistoryEntry, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Table("attendance_records AS a").
			Joins("JOIN sessions s ON s.id = a.session_id AND s.deleted_at IS NULL").
			Where("a.student_id = ? AND a.deleted_at IS NULL", studentID)
		if courseID != "" {
			db = db.Where("s.course_id = ?", courseID)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []HistoryEntry
	err := r.db.WithContext(ctx).Scopes(scope).
		Select("a.id, a.session_id, s.title AS session_title, s.course_id, a.marked_at, a.status").
		Order("a.marked_at DESC, a.id DESC").
		Offset(offset).
		Limit(limit).
		Scan(&out).Error
	return out, total, err
}

// ListBySession returns the session's records in attendance order: (marked_at, id)
func (r *repository) ListBySession(ctx context.Context, sessionID string) ([]SessionEntry, error) {
	var out []SessionEntry
	err := r.db.WithContext(ctx).
		Table("attendance_records AS a").
		Select("a.id, a.student_id, COALESCE(u.name, '') AS student_name, COALESCE(u.student_id, '') AS student_number, a.marked_at, a.status").
		Joins("LEFT JOIN users u ON u.id = a.student_id").
		Where("a.session_id = ? AND a.deleted_at IS NULL", sessionID).
		Order("a.marked_at ASC, a.id ASC").
		Scan(&out).Error
	return out, err
}
