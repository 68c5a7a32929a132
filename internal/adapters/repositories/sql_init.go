package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Initialize the packages and call_logs tables for the given dialect.
func InitSchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	statements, err := schemaStatements(dialect)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

func schemaStatements(dialect Dialect) ([]string, error) {
	createCallLogIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_call_logs_tracking_id
	ON call_logs(tracking_id);
	`

	switch dialect {
	case DialectSQLite:
		return []string{
			`
			CREATE TABLE IF NOT EXISTS packages (
				id            INTEGER PRIMARY KEY,
				tracking_id   TEXT NOT NULL UNIQUE,
				customer_name TEXT,
				phone         TEXT,
				address       TEXT,
				postal_code   TEXT,
				email         TEXT,
				scheduled_at  TEXT,
				status        TEXT
			);
			`,
			`
			CREATE TABLE IF NOT EXISTS call_logs (
				id          INTEGER PRIMARY KEY,
				tracking_id TEXT,
				transcript  TEXT,
				completed   INTEGER NOT NULL DEFAULT 0,
				escalated   INTEGER NOT NULL DEFAULT 0,
				created_at  TEXT DEFAULT (strftime('%Y-%m-%dT%H:%M:%S', 'now', 'localtime'))
			);
			`,
			createCallLogIndexQuery,
		}, nil
	case DialectPostgres:
		return []string{
			`
			CREATE TABLE IF NOT EXISTS packages (
				id            BIGSERIAL PRIMARY KEY,
				tracking_id   TEXT NOT NULL UNIQUE,
				customer_name TEXT,
				phone         TEXT,
				address       TEXT,
				postal_code   TEXT,
				email         TEXT,
				scheduled_at  TEXT,
				status        TEXT
			);
			`,
			`
			CREATE TABLE IF NOT EXISTS call_logs (
				id          BIGINT PRIMARY KEY,
				tracking_id TEXT,
				transcript  TEXT,
				completed   INTEGER NOT NULL DEFAULT 0,
				escalated   INTEGER NOT NULL DEFAULT 0,
				created_at  TEXT DEFAULT to_char(now(), 'YYYY-MM-DD"T"HH24:MI:SS')
			);
			`,
			createCallLogIndexQuery,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
}

// Populate packages and call_logs from a seed file in the state document format.
// Packages are upserted by tracking_id, call logs by id.
func SeedFromJSON(ctx context.Context, db *sql.DB, dialect Dialect, jsonPath string) error {
	if db == nil {
		return errors.New("seed: DB is nil")
	}

	doc, err := readSeedFile(jsonPath)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	pkgStmt, err := tx.PrepareContext(ctx, rebind(dialect, `
	INSERT INTO packages (
		tracking_id,
		customer_name,
		phone,
		address,
		postal_code,
		email,
		scheduled_at,
		status
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (tracking_id) DO UPDATE
	SET customer_name = excluded.customer_name,
		phone = excluded.phone,
		address = excluded.address,
		postal_code = excluded.postal_code,
		email = excluded.email,
		scheduled_at = excluded.scheduled_at,
		status = excluded.status;
	`))
	if err != nil {
		return fmt.Errorf("seed: prepare package insert: %w", err)
	}
	defer pkgStmt.Close()

	for _, p := range doc.Packages {
		_, err := pkgStmt.ExecContext(ctx,
			p.TrackingID, p.CustomerName, p.Phone, p.Address,
			p.PostalCode, p.Email, p.ScheduledAt, p.Status,
		)
		if err != nil {
			return fmt.Errorf("seed: insert package tracking_id=%q: %w", p.TrackingID, err)
		}
	}

	logStmt, err := tx.PrepareContext(ctx, rebind(dialect, `
	INSERT INTO call_logs (
		id,
		tracking_id,
		transcript,
		completed,
		escalated,
		created_at
	)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE
	SET tracking_id = excluded.tracking_id,
		transcript = excluded.transcript,
		completed = excluded.completed,
		escalated = excluded.escalated,
		created_at = excluded.created_at;
	`))
	if err != nil {
		return fmt.Errorf("seed: prepare call log insert: %w", err)
	}
	defer logStmt.Close()

	for _, l := range doc.CallLogs {
		createdAt := l.CreatedAt
		if createdAt == "" {
			createdAt = formatCreatedAt(time.Now())
		}
		_, err := logStmt.ExecContext(ctx,
			l.ID, l.TrackingID, l.Transcript,
			boolToInt(bool(l.Completed)), boolToInt(bool(l.Escalated)), createdAt,
		)
		if err != nil {
			return fmt.Errorf("seed: insert call log id=%d: %w", l.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}

	return nil
}
