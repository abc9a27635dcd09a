package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ngmaloney/forecast-terminal/internal/models"
)

func TestEnsureSchema_Persistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("First Open failed: %v", err)
	}
	run := models.NewRunID(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 18)
	if err := NewHistory(db).RecordRun(context.Background(), run, 1024, false, time.Now()); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	db.Close()

	// Opening again must not drop the table.
	db, err = Open(dbPath)
	if err != nil {
		t.Fatalf("Second Open failed: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM forecast_runs"); err != nil {
		t.Fatalf("Failed to query records: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 record, got %d. Data was likely lost due to table drop.", count)
	}
}

func TestHistoryRecent(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	h := NewHistory(db)
	ctx := context.Background()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	acquired := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)

	for i, hour := range []int{0, 6, 12} {
		run := models.NewRunID(day, hour)
		if err := h.RecordRun(ctx, run, int64(hour), i == 0, acquired.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("RecordRun(%s) failed: %v", run, err)
		}
	}

	recs, err := h.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(recs))
	}
	if recs[0].Run != "2024-03-01T12Z" || recs[0].RunHour != 12 || recs[0].RunDate != "20240301" {
		t.Errorf("Unexpected newest record: %+v", recs[0])
	}
	if recs[1].Run != "2024-03-01T06Z" || recs[1].Fallback {
		t.Errorf("Unexpected second record: %+v", recs[1])
	}
}
