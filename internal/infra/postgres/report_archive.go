package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"quizsphere/internal/domain"
)

// ReportArchive stores finished reports as JSONB rows in the reports table.
type ReportArchive struct {
	pool *pgxpool.Pool
}

func NewReportArchive(pool *pgxpool.Pool) *ReportArchive {
	return &ReportArchive{pool: pool}
}

// Save inserts report. Saving the same session twice keeps the first row.
func (a *ReportArchive) Save(ctx context.Context, report domain.Report) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = a.pool.Exec(ctx, `
		INSERT INTO reports (session_id, participant, percentage, performance, submit_trigger, completed_at, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id) DO NOTHING`,
		report.SessionID, report.Participant, report.Percentage, report.Performance,
		string(report.Trigger), report.CompletedAt, raw,
	)
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

// ListByParticipant returns the participant's reports, newest first.
func (a *ReportArchive) ListByParticipant(ctx context.Context, participant string) ([]domain.Report, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT data FROM reports
		WHERE participant = $1
		ORDER BY completed_at DESC, id DESC`, participant)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.Report
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		var report domain.Report
		if err := json.Unmarshal(raw, &report); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}
