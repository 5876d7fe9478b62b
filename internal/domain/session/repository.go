package session

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Repository interface for session persistence
type Repository interface {
	Create(ctx context.Context, sess *Session) error
	FindByID(ctx context.Context, id string) (*Session, error)
	UpdateDetails(ctx context.Context, id string, fields map[string]any) error
	Close(ctx context.Context, id string, at time.Time) (bool, error)
	UpdateSecret(ctx context.Context, id, secret string) error
	SetSecretExpiry(ctx context.Context, id string, at time.Time) error
	ListByTeacher(ctx context.Context, teacherID string, status StatusFilter, offset, limit int) ([]Session, int64, error)
	ListActive(ctx context.Context) ([]Session, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new session repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, sess *Session) error {
	return r.db.WithContext(ctx).Create(sess).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*Session, error) {
	var sess Session
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&sess).Error; err != nil {
		return nil, err
	}
	return &sess, nil
}

func (r *repository) UpdateDetails(ctx context.Context, id string, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&Session{}).
		Where("id = ? AND active = ?", id, true).
		Updates(fields).Error
}

// Close flips an active session to inactive. It reports false when the
// session was already closed, leaving end_time untouched.
func (r *repository) Close(ctx context.Context, id string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Session{}).
		Where("id = ? AND active = ?", id, true).
		Updates(map[string]any{
			"active":   false,
			"end_time": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) UpdateSecret(ctx context.Context, id, secret string) error {
	return r.db.WithContext(ctx).Model(&Session{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"secret":            secret,
			"secret_expires_at": nil,
		}).Error
}

func (r *repository) SetSecretExpiry(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&Session{}).
		Where("id = ?", id).
		UpdateColumn("secret_expires_at", at).Error
}

func (r *repository) ListByTeacher(ctx context.Context, teacherID string, status StatusFilter, offset, limit int) ([]Session, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		db = db.Where("teacher_id = ?", teacherID)
		switch status {
		case StatusActive:
			return db.Where("active = ?", true)
		case StatusClosed:
			return db.Where("active = ?", false)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&Session{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []Session
	err := r.db.WithContext(ctx).Scopes(scope).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, total, err
}

// ListActive returns every session not yet closed, including ones past their deadline
func (r *repository) ListActive(ctx context.Context) ([]Session, error) {
	var out []Session
	err := r.db.WithContext(ctx).Where("active = ?", true).Order("created_at DESC").Find(&out).Error
	return out, err
}
