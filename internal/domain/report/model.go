package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/mediscribe/mediscribe/internal/platform/extract"
)

// Report maps to the report table. The list fields are stored as jsonb.
// Each session has at most one report.
type Report struct {
	ID           uuid.UUID            `db:"id" json:"id"`
	SessionID    uuid.UUID            `db:"session_id" json:"session_id"`
	Summary      string               `db:"summary" json:"summary"`
	Symptoms     []string             `db:"symptoms" json:"symptoms"`
	Medications  []extract.Medication `db:"medications" json:"medications"`
	Followups    []string             `db:"followups" json:"followups"`
	Restrictions string               `db:"restrictions" json:"restrictions"`
	CreatedAt    time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time            `db:"updated_at" json:"updated_at"`
}
