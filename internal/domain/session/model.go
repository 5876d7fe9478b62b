package session

import (
	"time"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/database"
	"github.com/google/uuid"
)

// State is the lifecycle state of a session at a given instant
type State string

const (
	StateOpen    State = "open"
	StateExpired State = "expired"
	StateClosed  State = "closed"
)

const (
	// DefaultDuration is used when a create request leaves duration unset
	DefaultDuration = 60
	MinDuration     = 5
	MaxDuration     = 180
)

type Session struct {
	database.BaseModel

	TeacherID   uuid.UUID `gorm:"column:teacher_id;type:uuid;not null;index"`
	CourseID    uuid.UUID `gorm:"column:course_id;type:uuid;not null;index"`
	Title       string    `gorm:"column:title;not null"`
	Description string    `gorm:"column:description;type:text"`
	Duration    int       `gorm:"column:duration;not null"` // minutes

	Active  bool       `gorm:"column:active;not null;default:true;index"`
	EndTime *time.Time `gorm:"column:end_time"`

	Secret          string     `gorm:"column:secret;not null" json:"-"`
	SecretExpiresAt *time.Time `gorm:"column:secret_expires_at"`

	AttendanceCount int `gorm:"column:attendance_count;not null;default:0"`
}

func (Session) TableName() string {
	return "sessions"
}

// Deadline is created_at + duration; it never moves
func (s *Session) Deadline() time.Time {
	return s.CreatedAt.Add(time.Duration(s.Duration) * time.Minute)
}

// State reports the lifecycle state at now
func (s *Session) State(now time.Time) State {
	switch {
	case !s.Active:
		return StateClosed
	case now.Before(s.Deadline()):
		return StateOpen
	default:
		return StateExpired
	}
}

// IsLive reports whether the session accepts claims at now
func (s *Session) IsLive(now time.Time) bool {
	return s.State(now) == StateOpen
}

// CheckLive returns ErrSessionInactive for a closed session and
// ErrSessionTimeExpired once the deadline has passed.
func (s *Session) CheckLive(now time.Time) error {
	switch s.State(now) {
	case StateClosed:
		return ErrSessionInactive
	case StateExpired:
		return ErrSessionTimeExpired
	}
	return nil
}

// Response is the public view of a session; it never carries the secret
type Response struct {
	ID              uuid.UUID  `json:"id"`
	TeacherID       uuid.UUID  `json:"teacherId"`
	CourseID        uuid.UUID  `json:"courseId"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Duration        int        `json:"duration"`
	Active          bool       `json:"isActive"`
	State           State      `json:"state"`
	CreatedAt       time.Time  `json:"createdAt"`
	ExpiresAt       time.Time  `json:"expiresAt"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	SecretExpiresAt *time.Time `json:"qrExpiresAt,omitempty"`
	AttendanceCount int        `json:"attendanceCount"`
}

// ToResponse builds the public view as seen at now
func (s *Session) ToResponse(now time.Time) *Response {
	return &Response{
		ID:              s.ID,
		TeacherID:       s.TeacherID,
		CourseID:        s.CourseID,
		Title:           s.Title,
		Description:     s.Description,
		Duration:        s.Duration,
		Active:          s.Active,
		State:           s.State(now),
		CreatedAt:       s.CreatedAt,
		ExpiresAt:       s.Deadline(),
		EndTime:         s.EndTime,
		SecretExpiresAt: s.SecretExpiresAt,
		AttendanceCount: s.AttendanceCount,
	}
}

// CreateRequest is the body of POST /sessions
type CreateRequest struct {
	CourseID    string `json:"courseId" validate:"required,uuid"`
	Title       string `json:"title" validate:"required,min=3,max=200"`
	Description string `json:"description" validate:"omitempty,max=500"`
	Duration    int    `json:"duration" validate:"omitempty,min=5,max=180"`
}

// UpdateRequest is the body of PUT /sessions/:id. Nil fields are left as they are.
type UpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=3,max=200"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// StatusFilter narrows a listing of a teacher's sessions
type StatusFilter string

const (
	StatusAll    StatusFilter = "all"
	StatusActive StatusFilter = "active"
	StatusClosed StatusFilter = "closed"
)

// ParseStatusFilter maps the ?status query value; empty means all
func ParseStatusFilter(v string) (StatusFilter, bool) {
	switch StatusFilter(v) {
	case "", StatusAll:
		return StatusAll, true
	case StatusActive, StatusClosed:
		return StatusFilter(v), true
	default:
		return "", false
	}
}
