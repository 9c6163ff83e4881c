package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"healthops/internal/export"
)

var ErrSheetNotFound = errors.New("sheet not found")

// SheetsSink writes each export to its own tab of one spreadsheet, replacing
// the tab's previous contents.
type SheetsSink struct {
	service       *sheets.Service
	spreadsheetID string
	logger        *zerolog.Logger
}

func NewSheetsSink(ctx context.Context, credentialsFile, spreadsheetID string, logger *zerolog.Logger) (*SheetsSink, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}
	return NewSheetsSinkWithService(srv, spreadsheetID, logger), nil
}

func NewSheetsSinkWithService(srv *sheets.Service, spreadsheetID string, logger *zerolog.Logger) *SheetsSink {
	l := logger.With().Str("component", "sheets").Logger()
	return &SheetsSink{service: srv, spreadsheetID: spreadsheetID, logger: &l}
}

// TestConnection reads the spreadsheet metadata.
func (s *SheetsSink) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Get(s.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// ServiceAccountEmail returns the account the spreadsheet must be shared with.
func ServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}
	var creds struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}
	return creds.ClientEmail, nil
}

// ExportRows writes table to the tab named after filenameHint, creating the
// tab when missing, and returns the written range.
func (s *SheetsSink) ExportRows(ctx context.Context, table export.Table, filenameHint string) (string, error) {
	title := export.SafeName(filenameHint)

	sheetID, err := s.SheetIDByName(ctx, title)
	if errors.Is(err, ErrSheetNotFound) {
		sheetID, err = s.addSheet(ctx, title)
	}
	if err != nil {
		return "", err
	}

	if _, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, title, &sheets.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("failed to clear sheet %s: %w", title, err)
	}

	values := table.Values()
	writeRange := fmt.Sprintf("%s!A1", title)
	resp, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, writeRange, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to update sheet %s: %w", title, err)
	}

	if err := s.formatHeader(ctx, sheetID, len(table.Columns)); err != nil {
		// the data is written; formatting is cosmetic
		s.logger.Warn().Err(err).Str("sheet", title).Msg("Header formatting failed")
	}

	written := writeRange
	if resp != nil && resp.UpdatedRange != "" {
		written = resp.UpdatedRange
	}
	s.logger.Info().Str("range", written).Int("rows", len(table.Rows)).Msg("Sheet exported")
	return written, nil
}

// SheetIDByName returns the numeric id of the tab titled name.
func (s *SheetsSink) SheetIDByName(ctx context.Context, name string) (int64, error) {
	spreadsheet, err := s.service.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("unable to get spreadsheet: %w", err)
	}
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == name {
			return sheet.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrSheetNotFound, name)
}

func (s *SheetsSink) addSheet(ctx context.Context, title string) (int64, error) {
	resp, err := s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: title}},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("unable to add sheet %s: %w", title, err)
	}
	for _, r := range resp.Replies {
		if r.AddSheet != nil && r.AddSheet.Properties != nil {
			return r.AddSheet.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("unable to add sheet %s: empty reply", title)
}

// formatHeader bolds and freezes the first row and sets column widths.
func (s *SheetsSink) formatHeader(ctx context.Context, sheetID int64, columns int) error {
	if columns <= 0 {
		return nil
	}
	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{SheetId: sheetID, StartRowIndex: 0, EndRowIndex: 1},
				Cell: &sheets.CellData{UserEnteredFormat: &sheets.CellFormat{
					TextFormat:      &sheets.TextFormat{Bold: true},
					BackgroundColor: &sheets.Color{Red: 0.867, Green: 0.922, Blue: 0.969},
				}},
				Fields: "userEnteredFormat(textFormat,backgroundColor)",
			},
		},
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId:        sheetID,
					GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
		{
			UpdateDimensionProperties: &sheets.UpdateDimensionPropertiesRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   int64(columns),
				},
				Properties: &sheets.DimensionProperties{PixelSize: 150},
				Fields:     "pixelSize",
			},
		},
	}
	_, err := s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to format header: %w", err)
	}
	return nil
}
