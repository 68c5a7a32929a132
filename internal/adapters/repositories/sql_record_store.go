package repositories

import (
	"context"
	"database/sql"
	"delivery-reschedule-service/internal/domain"
	"delivery-reschedule-service/internal/platform/obs"
	"delivery-reschedule-service/internal/ports"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects placeholder style and DDL for a SQL backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// SQL-backed implementation of the RecordStore port.
// The same queries run on SQLite and Postgres; only placeholders differ.
type SQLRecordStore struct {
	DB      *sql.DB
	Dialect Dialect
}

func NewSQLRecordStore(db *sql.DB, dialect Dialect) *SQLRecordStore {
	return &SQLRecordStore{DB: db, Dialect: dialect}
}

// Return the package with the given tracking id.
func (s *SQLRecordStore) FindPackage(ctx context.Context, trackingID string) (_ *domain.Package, err error) {
	defer obs.Time(ctx, "store.FindPackage")(&err)

	if s.DB == nil {
		return nil, errors.New("sql record store: DB is nil")
	}

	q := `
	SELECT
		id,
		tracking_id,
		COALESCE(customer_name, ''),
		COALESCE(phone, ''),
		COALESCE(address, ''),
		COALESCE(postal_code, ''),
		COALESCE(email, ''),
		COALESCE(scheduled_at, ''),
		COALESCE(status, '')
	FROM packages
	WHERE tracking_id = ?;
	`

	var p domain.Package
	err = s.DB.QueryRowContext(ctx, s.rebind(q), trackingID).Scan(
		&p.ID,
		&p.TrackingID,
		&p.CustomerName,
		&p.Phone,
		&p.Address,
		&p.PostalCode,
		&p.Email,
		&p.ScheduledAt,
		&p.Status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrPackageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find package: query packages table: %w", err)
	}

	return &p, nil
}

// Set scheduled_at for the matching package.
func (s *SQLRecordStore) UpdatePackageSchedule(ctx context.Context, trackingID string, newDate string) (err error) {
	defer obs.Time(ctx, "store.UpdatePackageSchedule")(&err)

	if s.DB == nil {
		return errors.New("sql record store: DB is nil")
	}

	q := `UPDATE packages SET scheduled_at = ? WHERE tracking_id = ?;`

	res, err := s.DB.ExecContext(ctx, s.rebind(q), newDate, trackingID)
	if err != nil {
		return fmt.Errorf("update package schedule: exec: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update package schedule: rows affected: %w", err)
	}
	if n == 0 {
		return ports.ErrPackageNotFound
	}

	return nil
}

// Append a call log. The id is computed in the same statement as max(id) + 1.
func (s *SQLRecordStore) AppendCallLog(ctx context.Context, log domain.CallLog) (_ int64, err error) {
	defer obs.Time(ctx, "store.AppendCallLog")(&err)

	if s.DB == nil {
		return 0, errors.New("sql record store: DB is nil")
	}

	q := `
	INSERT INTO call_logs (
		id,
		tracking_id,
		transcript,
		completed,
		escalated,
		created_at
	)
	SELECT
		COALESCE(MAX(id), 0) + 1,
		CAST(? AS TEXT),
		CAST(? AS TEXT),
		CAST(? AS INTEGER),
		CAST(? AS INTEGER),
		CAST(? AS TEXT)
	FROM call_logs
	RETURNING id;
	`

	var id int64
	err = s.DB.QueryRowContext(ctx, s.rebind(q),
		log.TrackingID,
		log.Transcript,
		boolToInt(log.Completed),
		boolToInt(log.Escalated),
		formatCreatedAt(log.CreatedAt),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("append call log: insert tracking_id=%q: %w", log.TrackingID, err)
	}

	return id, nil
}

func (s *SQLRecordStore) MarkIncompleteLogsCompleted(ctx context.Context, trackingID string) (err error) {
	defer obs.Time(ctx, "store.MarkIncompleteLogsCompleted")(&err)

	if s.DB == nil {
		return errors.New("sql record store: DB is nil")
	}

	q := `UPDATE call_logs SET completed = 1 WHERE tracking_id = ? AND completed = 0;`
	if _, err := s.DB.ExecContext(ctx, s.rebind(q), trackingID); err != nil {
		return fmt.Errorf("mark logs completed: exec: %w", err)
	}

	return nil
}

// Return the call logs for the tracking id ordered by id.
func (s *SQLRecordStore) ListCallLogs(ctx context.Context, trackingID string) ([]domain.CallLog, error) {
	if s.DB == nil {
		return nil, errors.New("sql record store: DB is nil")
	}

	q := `
	SELECT
		id,
		tracking_id,
		COALESCE(transcript, ''),
		COALESCE(completed, 0),
		COALESCE(escalated, 0),
		COALESCE(created_at, '')
	FROM call_logs
	WHERE tracking_id = ?
	ORDER BY id;
	`
	rows, err := s.DB.QueryContext(ctx, s.rebind(q), trackingID)
	if err != nil {
		return nil, fmt.Errorf("list call logs: query call_logs table: %w", err)
	}
	defer rows.Close()

	logs := make([]domain.CallLog, 0, 4)
	for rows.Next() {
		var l domain.CallLog
		var completed, escalated int
		var createdAt string
		if err := rows.Scan(&l.ID, &l.TrackingID, &l.Transcript, &completed, &escalated, &createdAt); err != nil {
			return nil, fmt.Errorf("list call logs: scan row: %w", err)
		}
		l.Completed = completed != 0
		l.Escalated = escalated != 0
		l.CreatedAt = parseCreatedAt(createdAt)
		logs = append(logs, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list call logs: row iteration: %w", err)
	}

	return logs, nil
}

// rebind rewrites '?' placeholders to '$n' for Postgres.
// Queries in this package never contain a literal '?'.
func (s *SQLRecordStore) rebind(q string) string {
	return rebind(s.Dialect, q)
}

func rebind(dialect Dialect, q string) string {
	if dialect != DialectPostgres {
		return q
	}

	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
