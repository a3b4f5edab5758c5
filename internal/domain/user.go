package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleStudent   Role = "student"
	RoleProfessor Role = "professor"
	RoleHOD       Role = "HOD"
	RoleAdmin     Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleProfessor, RoleHOD, RoleAdmin:
		return true
	default:
		return false
	}
}

// CanReview reports whether the role may be assigned as a reviewer.
func (r Role) CanReview() bool {
	return r == RoleProfessor || r == RoleHOD
}

type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Phone        *string
	Role         Role
	DepartmentID *uuid.UUID
	CreatedAt    time.Time
	EditedAt     time.Time
}

// IsDepartmentHead reports whether the user holds HOD override authority
// over records of the given department.
func (u *User) IsDepartmentHead(departmentID uuid.UUID) bool {
	return u.Role == RoleHOD && u.DepartmentID != nil && *u.DepartmentID == departmentID
}

type Department struct {
	ID          uuid.UUID
	Name        string
	ProgramType string
	ShortCode   *string
	CreatedAt   time.Time
}
