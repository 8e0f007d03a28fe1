package sheet

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

// SheetsAppender appends rows to a Google Sheets range, matching the
// spreadsheet the original Apps Script wrote to.
type SheetsAppender struct {
	values        *sheets.SpreadsheetsValuesService
	spreadsheetID string
	writeRange    string
}

// NewSheetsAppender builds an appender for spreadsheetID. writeRange defaults
// to "Sheet1".
func NewSheetsAppender(ctx context.Context, spreadsheetID, writeRange string, opts ...option.ClientOption) (*SheetsAppender, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("sheet: spreadsheet id required")
	}
	if writeRange == "" {
		writeRange = "Sheet1"
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheet: sheets client: %w", err)
	}
	return &SheetsAppender{
		values:        sheets.NewSpreadsheetsValuesService(svc),
		spreadsheetID: spreadsheetID,
		writeRange:    writeRange,
	}, nil
}

func (s *SheetsAppender) Append(ctx context.Context, row Row) error {
	cells := row.Cells()
	vals := make([]interface{}, len(cells))
	for i, c := range cells {
		vals[i] = c
	}
	_, err := s.values.Append(s.spreadsheetID, s.writeRange, &sheets.ValueRange{
		Values: [][]interface{}{vals},
	}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheet: append to spreadsheet: %w", err)
	}
	return nil
}
