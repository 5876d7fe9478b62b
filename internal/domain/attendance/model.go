package attendance

import (
	"time"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/database"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/claim"
	"github.com/google/uuid"
)

// Status of an attendance record. Claims always produce StatusPresent.
type Status string

const (
	StatusPresent Status = "present"
	StatusLate    Status = "late"
	StatusAbsent  Status = "absent"
)

// Record is one student's attendance in one session.
// The (student_id, session_id) unique index is what makes claims exactly-once.
type Record struct {
	database.BaseModel

	StudentID uuid.UUID `gorm:"column:student_id;type:uuid;not null;uniqueIndex:idx_attendance_student_session,priority:1"`
	SessionID uuid.UUID `gorm:"column:session_id;type:uuid;not null;uniqueIndex:idx_attendance_student_session,priority:2;index"`
	MarkedAt  time.Time `gorm:"column:marked_at;not null;index"`
	Status    Status    `gorm:"column:status;type:varchar(16);not null;default:present"`

	DeviceInfo string `gorm:"column:device_info;type:text"`
	IPAddress  string `gorm:"column:ip_address;type:varchar(64)"`
}

func (Record) TableName() string {
	return "attendance_records"
}

// RecordResponse is the public view of a record
type RecordResponse struct {
	ID        uuid.UUID `json:"id"`
	StudentID uuid.UUID `json:"studentId"`
	SessionID uuid.UUID `json:"sessionId"`
	MarkedAt  time.Time `json:"markedAt"`
	Status    Status    `json:"status"`
}

func (r *Record) ToResponse() *RecordResponse {
	return &RecordResponse{
		ID:        r.ID,
		StudentID: r.StudentID,
		SessionID: r.SessionID,
		MarkedAt:  r.MarkedAt,
		Status:    r.Status,
	}
}

// HistoryEntry is a row of a student's attendance history
type HistoryEntry struct {
	ID           uuid.UUID `json:"id"`
	SessionID    uuid.UUID `json:"sessionId"`
	SessionTitle string    `json:"sessionTitle"`
	CourseID     uuid.UUID `json:"courseId"`
	MarkedAt     time.Time `json:"markedAt"`
	Status       Status    `json:"status"`
}

// SessionEntry is a row of a session's attendance list
type SessionEntry struct {
	ID            uuid.UUID `json:"id"`
	StudentID     uuid.UUID `json:"studentId"`
	StudentName   string    `json:"studentName"`
	StudentNumber string    `json:"studentNumber,omitempty"`
	MarkedAt      time.Time `json:"markedAt"`
	Status        Status    `json:"status"`
}

// ClaimRequest is the body of POST /attendance/claim
type ClaimRequest struct {
	SessionID  string      `json:"sessionId" validate:"required"`
	QRData     claim.Claim `json:"qrData" validate:"required"`
	DeviceInfo string      `json:"deviceInfo" validate:"omitempty,max=256"`
}
