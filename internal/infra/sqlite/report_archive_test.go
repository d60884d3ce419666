package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"quizsphere/internal/domain"
)

func TestReportArchiveSaveAndList(t *testing.T) {
	ctx := context.Background()
	archive, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer archive.Close()

	base := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	reports := []domain.Report{
		{SessionID: "s-1", Participant: "ada@example.com", Score: "1/3 (33%)", Percentage: 33, CompletedAt: base},
		{SessionID: "s-2", Participant: "ada@example.com", Score: "3/3 (100%)", Percentage: 100, CompletedAt: base.Add(time.Hour)},
		{SessionID: "s-3", Participant: "bob@example.com", Percentage: 50, CompletedAt: base},
	}
	for _, r := range reports {
		if err := archive.Save(ctx, r); err != nil {
			t.Fatalf("save %s: %v", r.SessionID, err)
		}
	}
	// duplicate save keeps the original row
	if err := archive.Save(ctx, domain.Report{SessionID: "s-1", Participant: "ada@example.com", Percentage: 0, CompletedAt: base}); err != nil {
		t.Fatalf("duplicate save: %v", err)
	}

	got, err := archive.ListByParticipant(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(got))
	}
	if got[0].SessionID != "s-2" || got[1].SessionID != "s-1" {
		t.Fatalf("expected newest first, got %s, %s", got[0].SessionID, got[1].SessionID)
	}
	if got[1].Percentage != 33 || got[1].Score != "1/3 (33%)" {
		t.Fatalf("expected first save kept, got %+v", got[1])
	}

	none, err := archive.ListByParticipant(ctx, "nobody")
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no reports, got %v, %v", none, err)
	}
}

func TestReportArchivePersistsToFile(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "reports.db")

	archive, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := archive.Save(ctx, domain.Report{SessionID: "s-1", Participant: "ada@example.com", CompletedAt: time.Now()}); err != nil {
		t.Fatalf("save: %v", err)
	}
	_ = archive.Close()

	reopened, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.ListByParticipant(ctx, "ada@example.com")
	if err != nil || len(got) != 1 {
		t.Fatalf("expected persisted report, got %v, %v", got, err)
	}
}
