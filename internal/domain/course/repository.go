package course

import (
	"context"

	"gorm.io/gorm"
)

// Repository interface for course persistence
type Repository interface {
	Create(ctx context.Context, c *Course) error
	FindByID(ctx context.Context, id string) (*Course, error)
	FindByTeacherAndCode(ctx context.Context, teacherID, code string) (*Course, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]Course, error)
	ListAll(ctx context.Context) ([]Course, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new course repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, c *Course) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*Course, error) {
	var c Course
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) FindByTeacherAndCode(ctx context.Context, teacherID, code string) (*Course, error) {
	var c Course
	if err := r.db.WithContext(ctx).Where("teacher_id = ? AND code = ?", teacherID, code).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) ListByTeacher(ctx context.Context, teacherID string) ([]Course, error) {
	var out []Course
	err := r.db.WithContext(ctx).Where("teacher_id = ?", teacherID).Order("created_at DESC").Find(&out).Error
	return out, err
}

func (r *repository) ListAll(ctx context.Context) ([]Course, error) {
	var out []Course
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&out).Error
	return out, err
}
