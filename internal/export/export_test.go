package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fileforge/fileforge/internal/store"
)

func TestWorkbookLayout(t *testing.T) {
	records := []store.ConversionRecord{
		{
			JobID:      "job-1",
			FileName:   "photo.png",
			Category:   "image",
			SourceExt:  "png",
			TargetExt:  "jpg",
			Status:     "completed",
			OutputLen:  2048,
			DurationMs: 87,
			CreatedAt:  time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		},
		{
			JobID:     "job-2",
			FileName:  "clip.avi",
			Category:  "video",
			SourceExt: "avi",
			TargetExt: "mp4",
			Status:    "error",
			Error:     "cannot decode avi container",
		},
	}

	data, err := Workbook(records)
	if err != nil {
		t.Fatalf("Workbook failed: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Output is not a valid workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("Read sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Date" || rows[0][1] != "File" {
		t.Errorf("Unexpected header row: %v", rows[0])
	}
	if rows[1][1] != "photo.png" || rows[1][5] != "completed" {
		t.Errorf("Unexpected first record row: %v", rows[1])
	}
	if rows[2][1] != "clip.avi" || rows[2][8] != "cannot decode avi container" {
		t.Errorf("Unexpected second record row: %v", rows[2])
	}
}

func TestWorkbookEmpty(t *testing.T) {
	data, err := Workbook(nil)
	if err != nil {
		t.Fatalf("Workbook failed: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Output is not a valid workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("Read sheet: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("Expected header only, got %d rows", len(rows))
	}
}
