package models

import "time"

type UserRole string

const (
	RoleAdmin       UserRole = "admin"
	RoleInstructor  UserRole = "instructor"
	RoleParticipant UserRole = "participant"
)

// User is an academy member. Credits is the participant's balance on the
// internal ledger; enrollment charges and reward payouts adjust it
// inside the same transaction as the records they belong to.
type User struct {
	ID           int         `json:"id" db:"id"`
	FirstName    string      `json:"first_name" db:"first_name"`
	LastName     string      `json:"last_name" db:"last_name"`
	Email        string      `json:"email" db:"email"`
	PasswordHash string      `json:"-" db:"password_hash"`
	Role         UserRole    `json:"role" db:"role"`
	AgeCategory  AgeCategory `json:"age_category" db:"age_category"`
	LicenseID    *string     `json:"license_id,omitempty" db:"license_id"`
	Credits      int         `json:"credits" db:"credits"`
	XP           int         `json:"xp" db:"xp"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
