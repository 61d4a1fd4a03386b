package audit

import (
	"context"
	"database/sql"
	"fmt"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS invocation_audit (
	id             UUID PRIMARY KEY,
	request_name   TEXT NOT NULL,
	outcome        TEXT NOT NULL,
	contact_id     TEXT NOT NULL DEFAULT '',
	aws_request_id TEXT NOT NULL DEFAULT '',
	ip_address     TEXT NOT NULL DEFAULT '',
	lambda_result  BOOLEAN NOT NULL,
	failure_reason TEXT NOT NULL DEFAULT '',
	status_code    INTEGER NOT NULL DEFAULT 0,
	duration_ms    BIGINT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL
)`

const insertEventSQL = `INSERT INTO invocation_audit
	(id, request_name, outcome, contact_id, aws_request_id, ip_address, lambda_result, failure_reason, status_code, duration_ms, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// PostgresRepo appends events to the invocation_audit table.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

// EnsureSchema creates the table when it does not exist yet.
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("audit: create table: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx, insertEventSQL,
		e.ID, e.RequestName, string(e.Outcome), e.ContactID, e.AWSRequestID, e.IPAddress,
		e.LambdaResult, e.FailureReason, e.StatusCode, e.DurationMS, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: insert event: %w", err)
	}
	return nil
}
