package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/fileforge/fileforge/internal/store"
)

const sheet = "Conversions"

// Workbook renders conversion history records into an XLSX workbook.
func Workbook(records []store.ConversionRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headers := []string{"Date", "File", "Category", "From", "To", "Status", "Output Bytes", "Duration (ms)", "Error"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for row, rec := range records {
		values := []interface{}{
			rec.CreatedAt.Format("2006-01-02 15:04:05"),
			rec.FileName,
			rec.Category,
			rec.SourceExt,
			rec.TargetExt,
			rec.Status,
			rec.OutputLen,
			rec.DurationMs,
			rec.Error,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("write row %d: %w", row+2, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
