package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// fakeSheet is the in-memory state of one tab.
type fakeSheet struct {
	id     int64
	values [][]interface{}
}

// fakeSheetsAPI implements the handful of Sheets v4 endpoints the writer uses.
type fakeSheetsAPI struct {
	mu           sync.Mutex
	nextID       int64
	sheets       map[string]*fakeSheet
	batchUpdates int
	requests     []*sheets.Request
	failAppend   bool
	failBatches  int
}

func newFakeSheetsAPI() *fakeSheetsAPI {
	return &fakeSheetsAPI{nextID: 100, sheets: make(map[string]*fakeSheet)}
}

var rangeSheet = regexp.MustCompile(`^'?(.*?)'?!([A-Z]+)(\d+)`)

func splitRange(r string) (string, int) {
	r = strings.ReplaceAll(r, "''", "'")
	m := rangeSheet.FindStringSubmatch(r)
	if m == nil {
		return r, 1
	}
	row, _ := strconv.Atoi(m[3])
	return m[1], row
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")

	switch {
	case strings.HasSuffix(path, ":batchUpdate"):
		f.handleBatchUpdate(w, r)
	case strings.Contains(path, "/values/") && strings.HasSuffix(path, ":append"):
		f.handleAppend(w, r)
	case strings.Contains(path, "/values/") && r.Method == http.MethodGet:
		f.handleGetValues(w, r)
	case r.Method == http.MethodGet:
		f.handleGetSpreadsheet(w)
	default:
		http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
	}
}

func valuesRange(path string) string {
	i := strings.Index(path, "/values/")
	rng := path[i+len("/values/"):]
	return strings.TrimSuffix(rng, ":append")
}

func (f *fakeSheetsAPI) handleGetSpreadsheet(w http.ResponseWriter) {
	ss := &sheets.Spreadsheet{}
	for title, sh := range f.sheets {
		ss.Sheets = append(ss.Sheets, &sheets.Sheet{Properties: &sheets.SheetProperties{Title: title, SheetId: sh.id}})
	}
	json.NewEncoder(w).Encode(ss)
}

// handleBatchUpdate applies all requests or none of them.
func (f *fakeSheetsAPI) handleBatchUpdate(w http.ResponseWriter, r *http.Request) {
	var req sheets.BatchUpdateSpreadsheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if f.failBatches > 0 {
		f.failBatches--
		http.Error(w, `{"error":{"code":400,"message":"Invalid requests"}}`, http.StatusBadRequest)
		return
	}
	for _, rq := range req.Requests {
		if rq.AddSheet != nil {
			if _, exists := f.sheets[rq.AddSheet.Properties.Title]; exists {
				http.Error(w, `{"error":{"code":400,"message":"Sheet already exists"}}`, http.StatusBadRequest)
				return
			}
		}
	}

	f.batchUpdates++
	f.requests = append(f.requests, req.Requests...)

	resp := &sheets.BatchUpdateSpreadsheetResponse{}
	for _, rq := range req.Requests {
		reply := &sheets.Response{}
		switch {
		case rq.AddSheet != nil:
			props := *rq.AddSheet.Properties
			if props.SheetId == 0 {
				f.nextID++
				props.SheetId = f.nextID
			}
			f.sheets[props.Title] = &fakeSheet{id: props.SheetId}
			reply.AddSheet = &sheets.AddSheetResponse{Properties: &props}
		case rq.UpdateCells != nil:
			f.updateCells(rq.UpdateCells)
		}
		resp.Replies = append(resp.Replies, reply)
	}
	json.NewEncoder(w).Encode(resp)
}

func (f *fakeSheetsAPI) updateCells(rq *sheets.UpdateCellsRequest) {
	var sh *fakeSheet
	for _, candidate := range f.sheets {
		if candidate.id == rq.Start.SheetId {
			sh = candidate
		}
	}
	if sh == nil {
		return
	}
	start := int(rq.Start.RowIndex)
	for len(sh.values) < start+len(rq.Rows) {
		sh.values = append(sh.values, nil)
	}
	for i, row := range rq.Rows {
		values := make([]interface{}, len(row.Values))
		for j, cell := range row.Values {
			if cell.UserEnteredValue != nil && cell.UserEnteredValue.StringValue != nil {
				values[j] = *cell.UserEnteredValue.StringValue
			}
		}
		sh.values[start+i] = values
	}
}

func (f *fakeSheetsAPI) handleAppend(w http.ResponseWriter, r *http.Request) {
	if f.failAppend {
		http.Error(w, `{"error":{"code":400,"message":"Invalid values"}}`, http.StatusBadRequest)
		return
	}
	var vr sheets.ValueRange
	if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	name, _ := splitRange(valuesRange(r.URL.Path))
	sh, ok := f.sheets[name]
	if !ok {
		http.Error(w, `{"error":{"code":400,"message":"Unable to parse range"}}`, http.StatusBadRequest)
		return
	}
	first := len(sh.values) + 1
	sh.values = append(sh.values, vr.Values...)
	last := len(sh.values)

	json.NewEncoder(w).Encode(&sheets.AppendValuesResponse{
		Updates: &sheets.UpdateValuesResponse{
			UpdatedRange: fmt.Sprintf("'%s'!A%d:J%d", name, first, last),
		},
	})
}

func (f *fakeSheetsAPI) handleGetValues(w http.ResponseWriter, r *http.Request) {
	name, start := splitRange(valuesRange(r.URL.Path))
	sh, ok := f.sheets[name]
	if !ok {
		http.Error(w, `{"error":{"code":400,"message":"Unable to parse range"}}`, http.StatusBadRequest)
		return
	}
	vr := &sheets.ValueRange{}
	if start-1 < len(sh.values) {
		vr.Values = sh.values[start-1:]
	}
	json.NewEncoder(w).Encode(vr)
}

// addExisting seeds a sheet as if a previous run had created it.
func (f *fakeSheetsAPI) addExisting(title string, rows ...[]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sheets[title] = &fakeSheet{id: f.nextID, values: rows}
}

func (f *fakeSheetsAPI) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batchUpdates
}

func newTestClient(t *testing.T) (*Client, *fakeSheetsAPI) {
	t.Helper()
	fake := newFakeSheetsAPI()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := NewClientWithOptions(context.Background(),
		option.WithEndpoint(server.URL+"/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return client, fake
}
