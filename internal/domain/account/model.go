package account

import (
	"time"

	"github.com/google/uuid"
)

// User maps to the users table. Every doctor and patient has a linked user
// row that carries their login identity.
type User struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Password  string    `db:"password" json:"-"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Valid user roles.
var validRoles = map[string]bool{
	"admin":   true,
	"doctor":  true,
	"patient": true,
}
