package user

import (
	"time"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/database"
	"github.com/google/uuid"
)

// Role is the coarse permission level of an account
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	default:
		return false
	}
}

type User struct {
	database.BaseModel
	Email       string     `gorm:"column:email;uniqueIndex;not null"`
	Name        string     `gorm:"column:name;not null"`
	Password    string     `gorm:"column:password;not null"`
	Role        Role       `gorm:"column:role;type:varchar(16);not null;index"`
	StudentID   *string    `gorm:"column:student_id;uniqueIndex"`
	Department  string     `gorm:"column:department"`
	IsActive    bool       `gorm:"column:is_active;default:true"`
	LastLoginAt *time.Time `gorm:"column:last_login_at"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse is the public view of a user
type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        Role       `json:"role"`
	StudentID   string     `json:"studentId,omitempty"`
	Department  string     `json:"department,omitempty"`
	IsActive    bool       `json:"isActive"`
	LastLoginAt *time.Time `json:"lastLogin,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// ToResponse strips the password hash
func (u *User) ToResponse() *UserResponse {
	res := &UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		Department:  u.Department,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
	if u.StudentID != nil {
		res.StudentID = *u.StudentID
	}
	return res
}
