package models

import "time"

// UserRole represents the available staff roles for the RBAC system.
type UserRole string

const (
	RoleDirector       UserRole = "director"
	RoleSupervisor     UserRole = "supervisor"
	RoleTeacher        UserRole = "teacher"
	RoleStudentAffairs UserRole = "student_affairs"
)

// Valid returns true when the role is a supported value.
func (r UserRole) Valid() bool {
	switch r {
	case RoleDirector, RoleSupervisor, RoleTeacher, RoleStudentAffairs:
		return true
	default:
		return false
	}
}

// User represents a staff account stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         UserRole   `db:"role" json:"role"`
	Phone        *string    `db:"phone" json:"phone,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Pagination describes paged list metadata.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
