package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// XLSXSink writes each export to a new workbook under dir.
type XLSXSink struct {
	dir    string
	now    func() time.Time
	logger *zerolog.Logger
}

func NewXLSXSink(dir string, logger *zerolog.Logger) *XLSXSink {
	return &XLSXSink{dir: dir, now: time.Now, logger: logger}
}

func (s *XLSXSink) ExportRows(ctx context.Context, table Table, filenameHint string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := SafeName(filenameHint)
	index, err := f.NewSheet(sheet)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for rowIdx, values := range table.Values() {
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx+1)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return "", fmt.Errorf("error writing row %d: %w", rowIdx+1, err)
		}
	}

	if n := len(table.Columns); n > 0 {
		last, _ := excelize.ColumnNumberToName(n)
		_ = f.SetCellStyle(sheet, "A1", last+"1", headerStyle)
		_ = f.SetColWidth(sheet, "A", last, 20)
		_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	}

	if sheet != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}

	fileName := fmt.Sprintf("%s_%s.xlsx", sheet, s.now().Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(s.dir, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	s.logger.Info().Str("file_path", filePath).Int("rows", len(table.Rows)).Msg("Excel file created")
	return filePath, nil
}
