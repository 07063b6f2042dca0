package transcript

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediscribe/mediscribe/internal/platform/apperr"
	"github.com/mediscribe/mediscribe/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const transcriptCols = `id, session_id, audio_blob_id, file_name, raw_text, created_at, updated_at`

func (r *repoPG) Upsert(ctx context.Context, t *Transcript) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	// UNIQUE(session_id) makes the replace-on-reupload atomic.
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO transcript (id, session_id, audio_blob_id, file_name, raw_text)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (session_id) DO UPDATE SET
			audio_blob_id = EXCLUDED.audio_blob_id,
			file_name     = EXCLUDED.file_name,
			raw_text      = EXCLUDED.raw_text,
			updated_at    = NOW()
		RETURNING id, created_at, updated_at`,
		t.ID, t.SessionID, t.AudioBlobID, t.FileName, t.RawText,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (r *repoPG) GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*Transcript, error) {
	var t Transcript
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+transcriptCols+` FROM transcript WHERE session_id = $1`, sessionID,
	).Scan(&t.ID, &t.SessionID, &t.AudioBlobID, &t.FileName, &t.RawText, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("no transcript for session")
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM transcript WHERE id = $1`, id)
	return err
}
