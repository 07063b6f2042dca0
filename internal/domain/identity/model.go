package identity

import (
	"time"

	"github.com/google/uuid"
)

// DefaultDateOfBirth is the sentinel stored when intake omits a birth date.
var DefaultDateOfBirth = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// Patient maps to the patient table.
type Patient struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	UserID      uuid.UUID  `db:"user_id" json:"user_id"`
	FirstName   string     `db:"first_name" json:"first_name"`
	LastName    string     `db:"last_name" json:"last_name"`
	DateOfBirth time.Time  `db:"date_of_birth" json:"date_of_birth"`
	Gender      *string    `db:"gender" json:"gender,omitempty"`
	Phone       *string    `db:"phone" json:"phone,omitempty"`
	Address     *string    `db:"address" json:"address,omitempty"`
	DoctorID    *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Doctor maps to the doctor table.
type Doctor struct {
	ID             uuid.UUID `db:"id" json:"id"`
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	FirstName      string    `db:"first_name" json:"first_name"`
	LastName       string    `db:"last_name" json:"last_name"`
	Specialization *string   `db:"specialization" json:"specialization,omitempty"`
	Phone          *string   `db:"phone" json:"phone,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// PatientIntake is the request body for creating a patient together with
// their login account.
type PatientIntake struct {
	Email       string     `json:"email"`
	Password    string     `json:"password"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	DateOfBirth string     `json:"date_of_birth"` // YYYY-MM-DD, optional
	Gender      *string    `json:"gender"`
	Phone       *string    `json:"phone"`
	Address     *string    `json:"address"`
	DoctorID    *uuid.UUID `json:"doctor_id"`
}

// DoctorIntake is the request body for creating a doctor together with their
// login account.
type DoctorIntake struct {
	Email          string  `json:"email"`
	Password       string  `json:"password"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Specialization *string `json:"specialization"`
	Phone          *string `json:"phone"`
}
