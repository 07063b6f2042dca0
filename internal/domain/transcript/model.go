package transcript

import (
	"time"

	"github.com/google/uuid"
)

// Transcript maps to the transcript table. Each session has at most one
// transcript; re-uploading a recording replaces it.
type Transcript struct {
	ID          uuid.UUID `db:"id" json:"id"`
	SessionID   uuid.UUID `db:"session_id" json:"session_id"`
	AudioBlobID string    `db:"audio_blob_id" json:"audio_blob_id"`
	FileName    string    `db:"file_name" json:"file_name"`
	RawText     string    `db:"raw_text" json:"raw_text"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
