package ledger

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaSQL is embedded so the backend can self-bootstrap its table.
//
//go:embed schema.sql
var schemaSQL string

// PostgresStore is the self-hosted ledger backend for deployments that run
// without the spreadsheet. Same append-only contract, same column order.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and fails fast if the database
// is unreachable.
func NewPostgresStore(dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema() error {
	_, err := p.pool.Exec(context.Background(), schemaSQL)
	return err
}

// Ping validates database connectivity for the readiness endpoint.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// ReadAll returns every enrollment row in insertion order.
func (p *PostgresStore) ReadAll(ctx context.Context) ([]Row, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT recorded_at, student_name, birth_date, address, guardian_name,
		       phone, email, program_id, grade_label, message
		FROM enrollments
		ORDER BY id
	`)
	if err != nil {
		return nil, classifyPgErr("ledger read", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(
			&r.Timestamp, &r.StudentName, &r.BirthDate, &r.Address,
			&r.GuardianName, &r.Phone, &r.Email, &r.ProgramID,
			&r.GradeLabel, &r.Message,
		); err != nil {
			return nil, fmt.Errorf("ledger read: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger read: %w", err)
	}
	return out, nil
}

// Append inserts one enrollment row.
func (p *PostgresStore) Append(ctx context.Context, r Row) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO enrollments(
			recorded_at, student_name, birth_date, address, guardian_name,
			phone, email, program_id, grade_label, message
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		r.Timestamp, r.StudentName, r.BirthDate, r.Address, r.GuardianName,
		r.Phone, r.Email, r.ProgramID, r.GradeLabel, r.Message,
	)
	if err != nil {
		return classifyPgErr("ledger append", err)
	}
	return nil
}

// classifyPgErr maps undefined-table/undefined-column errors onto
// ErrSchemaMismatch so callers treat them as misconfiguration rather than a
// generic write failure.
func classifyPgErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrUndefinedTable, pgerrUndefinedColumn:
			return fmt.Errorf("%s: %s: %w", op, pgErr.Message, ErrSchemaMismatch)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

const (
	pgerrUndefinedTable  = "42P01"
	pgerrUndefinedColumn = "42703"
)
