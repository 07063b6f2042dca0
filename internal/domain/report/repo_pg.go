package report

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

const reportCols = `id, session_id, summary, symptoms, medications, followups, restrictions, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, rep *Report) error {
	rep.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO report (id, session_id, summary, symptoms, medications, followups, restrictions)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		rep.ID, rep.SessionID, rep.Summary, rep.Symptoms, rep.Medications, rep.Followups, rep.Restrictions,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return apperr.Conflict("session already has a report")
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Report, error) {
	return scanReport(r.conn(ctx).QueryRow(ctx, `SELECT `+reportCols+` FROM report WHERE id = $1`, id))
}

func (r *repoPG) GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*Report, error) {
	return scanReport(r.conn(ctx).QueryRow(ctx, `SELECT `+reportCols+` FROM report WHERE session_id = $1`, sessionID))
}

func (r *repoPG) Update(ctx context.Context, rep *Report) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE report SET
			summary=$2, symptoms=$3, medications=$4, followups=$5, restrictions=$6, updated_at=NOW()
		WHERE id = $1`,
		rep.ID, rep.Summary, rep.Symptoms, rep.Medications, rep.Followups, rep.Restrictions,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM report WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Report, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM report`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+reportCols+` FROM report ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var reports []*Report
	for rows.Next() {
		var rep Report
		if err := rows.Scan(&rep.ID, &rep.SessionID, &rep.Summary, &rep.Symptoms,
			&rep.Medications, &rep.Followups, &rep.Restrictions, &rep.CreatedAt, &rep.UpdatedAt); err != nil {
			return nil, 0, err
		}
		reports = append(reports, &rep)
	}
	return reports, total, nil
}

func scanReport(row pgx.Row) (*Report, error) {
	var rep Report
	err := row.Scan(&rep.ID, &rep.SessionID, &rep.Summary, &rep.Symptoms,
		&rep.Medications, &rep.Followups, &rep.Restrictions, &rep.CreatedAt, &rep.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("report not found")
	}
	if err != nil {
		return nil, err
	}
	return &rep, nil
}
