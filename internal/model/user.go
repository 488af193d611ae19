package model

import (
	"time"
)

// Role classifies an authenticated principal. Patients and doctors carry a
// domain profile row; admin and staff do not.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
	RoleStaff   Role = "staff"
)

// Unrestricted reports whether the role has blanket conversation access
// without a domain profile.
func (r Role) Unrestricted() bool {
	return r == RoleAdmin || r == RoleStaff
}

// Valid reports whether the role is one of the known clinic roles.
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin, RoleStaff:
		return true
	}
	return false
}

// User represents an authentication principal in the clinic directory.
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null;size:255"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"`
	FirstName    string    `json:"first_name" gorm:"size:100"`
	LastName     string    `json:"last_name" gorm:"size:100"`
	Role         Role      `json:"role" gorm:"type:varchar(20);not null;default:'patient';index"`
	IsActive     bool      `json:"is_active" gorm:"default:true"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FullName returns the display name used when hydrating conversations and messages.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Patient is the domain profile for role=patient. Its primary key is the
// "domain id" referenced by conversations, distinct from the user id.
type Patient struct {
	ID          int64      `json:"id" gorm:"primaryKey"`
	UserID      int64      `json:"user_id" gorm:"uniqueIndex;not null"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Phone       string     `json:"phone" gorm:"size:30"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}

// Doctor is the domain profile for role=doctor.
type Doctor struct {
	ID            int64     `json:"id" gorm:"primaryKey"`
	UserID        int64     `json:"user_id" gorm:"uniqueIndex;not null"`
	Specialty     string    `json:"specialty" gorm:"size:100"`
	LicenseNumber string    `json:"license_number" gorm:"size:50"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}

// UserResponse is the safe version of User for API responses.
type UserResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      Role   `json:"role"`
	IsActive  bool   `json:"is_active"`
}

// ToResponse converts User to safe UserResponse.
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		IsActive:  u.IsActive,
	}
}
