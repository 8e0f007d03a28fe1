package sheet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type rowExec interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresAppender stores rows in the submissions table.
type PostgresAppender struct {
	pool rowExec
}

// NewPostgresAppender initializes an appender backed by pgxpool.
func NewPostgresAppender(pool *pgxpool.Pool) *PostgresAppender {
	if pool == nil {
		panic("sheet: pgx pool required")
	}
	return &PostgresAppender{pool: pool}
}

func newPostgresAppenderWithExec(exec rowExec) *PostgresAppender {
	if exec == nil {
		panic("sheet: exec required")
	}
	return &PostgresAppender{pool: exec}
}

// Append inserts a new row.
func (p *PostgresAppender) Append(ctx context.Context, row Row) error {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		id = uuid.New()
	}
	query := `
		INSERT INTO submissions (id, received_at, submitted_at, answer_ids, answer_values)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := p.pool.Exec(ctx, query, id, row.ReceivedAt, row.SubmittedAt, row.Columns, row.Values); err != nil {
		return fmt.Errorf("sheet: insert submission: %w", err)
	}
	return nil
}

// List returns rows newest first.
func (p *PostgresAppender) List(ctx context.Context, limit, offset int) ([]Row, error) {
	query := `
		SELECT id, received_at, submitted_at, answer_ids, answer_values
		FROM submissions
		ORDER BY received_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := p.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("sheet: list submissions: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			id         uuid.UUID
			receivedAt time.Time
			row        Row
		)
		if err := rows.Scan(&id, &receivedAt, &row.SubmittedAt, &row.Columns, &row.Values); err != nil {
			return nil, fmt.Errorf("sheet: scan submission: %w", err)
		}
		row.ID = id.String()
		row.ReceivedAt = receivedAt.UTC()
		out = append(out, row)
	}
	return out, rows.Err()
}
