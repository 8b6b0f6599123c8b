package sheets

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/sheets/v4"
)

// BannerLabel is the merged title cell above the column headers.
const BannerLabel = "information"

// Headers are the fixed data columns, in order.
var Headers = []string{
	"Timestamp",
	"Website",
	"Device",
	"Performance",
	"Accessibility",
	"Best Practices",
	"SEO",
	"Insights",
	"Diagnostics",
	"General",
}

const (
	headerRows = 2
	lastColumn = "J"
)

// Writer persists report rows into one spreadsheet. It caches sheet IDs so
// that an existing sheet is looked up once per process.
type Writer struct {
	client        *Client
	spreadsheetID string
	loc           *time.Location

	mu       sync.Mutex
	sheetIDs map[string]int64
}

func NewWriter(client *Client, spreadsheetID string, loc *time.Location) *Writer {
	if loc == nil {
		loc = time.Local
	}
	return &Writer{
		client:        client,
		spreadsheetID: spreadsheetID,
		loc:           loc,
		sheetIDs:      make(map[string]int64),
	}
}

// SpreadsheetURL is the browser link to the spreadsheet.
func (w *Writer) SpreadsheetURL() string {
	return SpreadsheetURL(w.spreadsheetID)
}

func SpreadsheetURL(spreadsheetID string) string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/edit", spreadsheetID)
}

// EnsureSheet returns once a sheet called name exists. A new sheet gets the
// banner and header rows in the same batch that creates it, so a failed
// bootstrap leaves no sheet behind. An existing sheet is left untouched.
func (w *Writer) EnsureSheet(ctx context.Context, name string) error {
	if name == "" {
		return errors.New("sheet name must not be empty")
	}
	if _, ok := w.cachedID(name); ok {
		return nil
	}

	ids, err := w.client.SheetIDs(ctx, w.spreadsheetID)
	if err != nil {
		return err
	}
	if id, exists := ids[name]; exists {
		log.Debug().Str("sheet", name).Int64("sheet_id", id).Msg("Using existing sheet")
		w.storeID(name, id)
		return nil
	}

	id := newSheetID(name, ids)
	log.Info().Str("sheet", name).Int64("sheet_id", id).Msg("Creating sheet")
	if _, err := w.client.BatchUpdate(ctx, w.spreadsheetID, bootstrapRequests(name, id)); err != nil {
		return fmt.Errorf("failed to create sheet %q: %w", name, err)
	}

	w.storeID(name, id)
	return nil
}

// newSheetID derives a positive 31-bit sheet ID from name that no sheet in
// taken uses.
func newSheetID(name string, taken map[string]int64) int64 {
	used := make(map[int64]bool, len(taken))
	for _, id := range taken {
		used[id] = true
	}

	h := fnv.New32a()
	h.Write([]byte(name))
	id := int64(h.Sum32() & math.MaxInt32)
	for id == 0 || used[id] {
		id = (id + 1) & math.MaxInt32
	}
	return id
}

func bootstrapRequests(name string, sheetID int64) []*sheets.Request {
	header := make([]*sheets.CellData, len(Headers))
	for i, h := range Headers {
		header[i] = stringCell(h)
	}

	requests := []*sheets.Request{
		{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{
			SheetId:        sheetID,
			Title:          name,
			GridProperties: &sheets.GridProperties{FrozenRowCount: headerRows},
		}}},
		{UpdateCells: &sheets.UpdateCellsRequest{
			Start: &sheets.GridCoordinate{SheetId: sheetID, RowIndex: 0, ColumnIndex: 0},
			Rows: []*sheets.RowData{
				{Values: []*sheets.CellData{stringCell(BannerLabel)}},
				{Values: header},
			},
			Fields: "userEnteredValue",
		}},
	}
	return append(requests, headerFormatRequests(sheetID)...)
}

func stringCell(s string) *sheets.CellData {
	return &sheets.CellData{UserEnteredValue: &sheets.ExtendedValue{StringValue: &s}}
}

func headerFormatRequests(sheetID int64) []*sheets.Request {
	cols := int64(len(Headers))
	return []*sheets.Request{
		{MergeCells: &sheets.MergeCellsRequest{
			Range:     &sheets.GridRange{SheetId: sheetID, StartRowIndex: 0, EndRowIndex: 1, StartColumnIndex: 0, EndColumnIndex: cols},
			MergeType: "MERGE_ALL",
		}},
		{RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{SheetId: sheetID, StartRowIndex: 0, EndRowIndex: 1, StartColumnIndex: 0, EndColumnIndex: 1},
			Cell: &sheets.CellData{UserEnteredFormat: &sheets.CellFormat{
				HorizontalAlignment: "CENTER",
				TextFormat:          &sheets.TextFormat{Bold: true, FontSize: 14},
			}},
			Fields: "userEnteredFormat(textFormat,horizontalAlignment)",
		}},
		{RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{SheetId: sheetID, StartRowIndex: 1, EndRowIndex: 2, StartColumnIndex: 0, EndColumnIndex: cols},
			Cell: &sheets.CellData{UserEnteredFormat: &sheets.CellFormat{
				TextFormat: &sheets.TextFormat{Bold: true},
			}},
			Fields: "userEnteredFormat.textFormat.bold",
		}},
	}
}

func (w *Writer) cachedID(name string) (int64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id, ok := w.sheetIDs[name]
	return id, ok
}

func (w *Writer) storeID(name string, id int64) {
	w.mu.Lock()
	w.sheetIDs[name] = id
	w.mu.Unlock()
}

// a1 builds a quoted A1 reference such as 'PageSpeed Data'!A1:J2.
func a1(sheet, cells string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!" + cells
}
