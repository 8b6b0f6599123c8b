package sheets

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/sheets/v4"
)

const (
	// NotAvailable replaces a missing category score.
	NotAvailable = "N/A"
	// InProgress replaces an empty audit column.
	InProgress = "in progress"

	TimestampLayout = "2006-01-02 15:04:05"
)

var (
	mobileTint  = &sheets.Color{Red: 0.87, Green: 0.92, Blue: 0.98}
	desktopTint = &sheets.Color{Red: 0.88, Green: 0.95, Blue: 0.87}
)

// Row is one persisted measurement.
type Row struct {
	Timestamp     time.Time
	Website       string
	Device        string
	Performance   *int
	Accessibility *int
	BestPractices *int
	SEO           *int
	Insights      string
	Diagnostics   string
	General       string
}

// Values renders the row in column order, applying the N/A and in-progress
// fallbacks.
func (r Row) Values() []interface{} {
	return []interface{}{
		r.Timestamp.Format(TimestampLayout),
		r.Website,
		r.Device,
		scoreCell(r.Performance),
		scoreCell(r.Accessibility),
		scoreCell(r.BestPractices),
		scoreCell(r.SEO),
		textCell(r.Insights),
		textCell(r.Diagnostics),
		textCell(r.General),
	}
}

func scoreCell(v *int) interface{} {
	if v == nil {
		return NotAvailable
	}
	return *v
}

func textCell(s string) interface{} {
	if s == "" {
		return InProgress
	}
	return s
}

// ParseRow is the inverse of Row.Values.
func ParseRow(values []interface{}, loc *time.Location) (Row, error) {
	if len(values) < len(Headers) {
		padded := make([]interface{}, len(Headers))
		copy(padded, values)
		values = padded
	}

	ts, err := time.ParseInLocation(TimestampLayout, cellString(values[0]), loc)
	if err != nil {
		return Row{}, fmt.Errorf("bad timestamp %q: %w", cellString(values[0]), err)
	}

	row := Row{
		Timestamp:   ts,
		Website:     cellString(values[1]),
		Device:      cellString(values[2]),
		Insights:    parseText(values[7]),
		Diagnostics: parseText(values[8]),
		General:     parseText(values[9]),
	}
	scores := []**int{&row.Performance, &row.Accessibility, &row.BestPractices, &row.SEO}
	for i, dst := range scores {
		v, err := parseScore(values[3+i])
		if err != nil {
			return Row{}, fmt.Errorf("column %s: %w", Headers[3+i], err)
		}
		*dst = v
	}
	return row, nil
}

func cellString(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func parseScore(v interface{}) (*int, error) {
	switch n := v.(type) {
	case nil:
		return nil, nil
	case float64:
		i := int(n)
		return &i, nil
	case int:
		return &n, nil
	}

	s := strings.TrimSpace(cellString(v))
	if s == "" || s == NotAvailable {
		return nil, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("bad score %q: %w", s, err)
	}
	return &i, nil
}

func parseText(v interface{}) string {
	s := cellString(v)
	if s == InProgress {
		return ""
	}
	return s
}

// AppendRow writes one row below the existing data of sheet name and tints
// it by device. The tint is best effort.
func (w *Writer) AppendRow(ctx context.Context, name string, row Row) error {
	updated, err := w.client.AppendRows(ctx, w.spreadsheetID, a1(name, "A1"), [][]interface{}{row.Values()})
	if err != nil {
		return fmt.Errorf("failed to append row to %q: %w", name, err)
	}

	log.Info().
		Str("sheet", name).
		Str("url", row.Website).
		Str("device", row.Device).
		Str("range", updated).
		Msg("Data saved")

	w.tint(ctx, name, updated, row.Device)
	return nil
}

// ReadRows returns every data row below the header block.
func (w *Writer) ReadRows(ctx context.Context, name string) ([]Row, error) {
	values, err := w.client.ReadSheet(ctx, w.spreadsheetID, a1(name, fmt.Sprintf("A%d:%s", headerRows+1, lastColumn)))
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(values))
	for i, v := range values {
		row, err := ParseRow(v, w.loc)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", headerRows+1+i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

var updatedRowPattern = regexp.MustCompile(`![A-Z]+(\d+)`)

// rowIndex extracts the zero-based row of an A1 range such as 'Data'!A7:J7.
func rowIndex(updatedRange string) (int64, bool) {
	m := updatedRowPattern.FindStringSubmatch(updatedRange)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || n < 1 {
		return 0, false
	}
	return n - 1, true
}

func (w *Writer) tint(ctx context.Context, name, updatedRange, device string) {
	color := desktopTint
	if device == "mobile" {
		color = mobileTint
	}

	id, ok := w.cachedID(name)
	if !ok {
		return
	}
	idx, ok := rowIndex(updatedRange)
	if !ok {
		return
	}

	_, err := w.client.BatchUpdate(ctx, w.spreadsheetID, []*sheets.Request{
		{RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{SheetId: id, StartRowIndex: idx, EndRowIndex: idx + 1, StartColumnIndex: 0, EndColumnIndex: int64(len(Headers))},
			Cell: &sheets.CellData{UserEnteredFormat: &sheets.CellFormat{
				BackgroundColor: color,
			}},
			Fields: "userEnteredFormat.backgroundColor",
		}},
	})
	if err != nil {
		log.Warn().Err(err).Str("sheet", name).Str("range", updatedRange).Msg("Failed to tint row")
	}
}
