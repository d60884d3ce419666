package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite" // driver: sqlite
	"quizsphere/internal/domain"
)

// DefaultDSN is used when no archive DSN is configured.
const DefaultDSN = "file:quizsphere.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"

// ReportArchive stores finished reports in a local sqlite file, for
// terminal runs without a Postgres server.
type ReportArchive struct {
	db *sql.DB
}

// Open opens the database and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*ReportArchive, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single writer also keeps ":memory:" databases on one connection
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	a := &ReportArchive{db: db}
	if err := a.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return a, nil
}

func (a *ReportArchive) Close() error {
	return a.db.Close()
}

func (a *ReportArchive) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS reports (
			session_id TEXT PRIMARY KEY,
			participant TEXT NOT NULL,
			percentage INTEGER NOT NULL,
			performance TEXT NOT NULL,
			submit_trigger TEXT NOT NULL,
			completed_at_unix INTEGER NOT NULL,
			data TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_reports_participant ON reports(participant, completed_at_unix DESC);`,
	}
	for _, stmt := range statements {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Save inserts report. Saving the same session twice keeps the first row.
func (a *ReportArchive) Save(ctx context.Context, report domain.Report) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = a.db.ExecContext(ctx, `
		INSERT INTO reports (session_id, participant, percentage, performance, submit_trigger, completed_at_unix, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO NOTHING`,
		report.SessionID, report.Participant, report.Percentage, report.Performance,
		string(report.Trigger), report.CompletedAt.UnixMilli(), string(raw),
	)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

// ListByParticipant returns the participant's reports, newest first.
func (a *ReportArchive) ListByParticipant(ctx context.Context, participant string) ([]domain.Report, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT data FROM reports
		WHERE participant = ?
		ORDER BY completed_at_unix DESC, rowid DESC`, participant)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.Report
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		var report domain.Report
		if err := json.Unmarshal([]byte(raw), &report); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}
