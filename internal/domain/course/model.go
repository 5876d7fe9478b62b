package course

import (
	"github.com/dushyantisbest/SIH-Student-attendence/internal/database"
	"github.com/google/uuid"
)

type Course struct {
	database.BaseModel
	Name        string    `gorm:"column:name;not null" json:"name"`
	Code        string    `gorm:"column:code;not null;uniqueIndex:idx_courses_teacher_code" json:"code"`
	Description string    `gorm:"column:description" json:"description,omitempty"`
	TeacherID   uuid.UUID `gorm:"column:teacher_id;type:uuid;not null;uniqueIndex:idx_courses_teacher_code" json:"teacherId"`
}

func (Course) TableName() string {
	return "courses"
}

// CreateRequest is the body of POST /courses
type CreateRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=120"`
	Code        string `json:"code" validate:"required,min=2,max=32"`
	Description string `json:"description" validate:"omitempty,max=500"`
}
