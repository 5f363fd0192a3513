package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/Veraticus/spendmail/internal/common"
	"github.com/Veraticus/spendmail/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// fakeAPI serves a single spreadsheet with canned value ranges and records
// every write it receives.
type fakeAPI struct {
	values   map[string][][]any
	appended []*sheets.ValueRange
	updated  map[string]*sheets.ValueRange
	batches  []*sheets.BatchUpdateSpreadsheetRequest
	cleared  []string
	inputs   []string
	// stored holds appended rows as Sheets keeps them after parsing.
	stored [][]any
	mu     sync.Mutex
}

// parseEntered mimics USER_ENTERED parsing: an apostrophe forces text and
// anything numeric becomes a number.
func parseEntered(option string, cell any) any {
	s, ok := cell.(string)
	if !ok || option != InputUserEntered {
		return cell
	}
	if strings.HasPrefix(s, "'") {
		return strings.TrimPrefix(s, "'")
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	return s
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		values:  make(map[string][][]any),
		updated: make(map[string]*sheets.ValueRange),
	}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/")
	book, rest, _ := strings.Cut(path, "/")
	if book != "book1" && !strings.HasPrefix(book, "book1:") {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Requested entity was not found."}}`))
		return
	}

	switch {
	case book == "book1:batchUpdate":
		var req sheets.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.batches = append(f.batches, &req)
		resp := sheets.BatchUpdateSpreadsheetResponse{SpreadsheetId: "book1"}
		for _, q := range req.Requests {
			reply := &sheets.Response{}
			if q.AddSheet != nil {
				reply.AddSheet = &sheets.AddSheetResponse{
					Properties: &sheets.SheetProperties{SheetId: 42, Title: q.AddSheet.Properties.Title},
				}
			}
			resp.Replies = append(resp.Replies, reply)
		}
		_ = json.NewEncoder(w).Encode(resp)

	case rest == "":
		_ = json.NewEncoder(w).Encode(sheets.Spreadsheet{
			SpreadsheetId: "book1",
			Sheets: []*sheets.Sheet{
				{Properties: &sheets.SheetProperties{SheetId: 7, Title: "Sheet1"}},
			},
		})

	case strings.HasSuffix(rest, ":append"):
		var vr sheets.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		option := r.URL.Query().Get("valueInputOption")
		f.appended = append(f.appended, &vr)
		f.inputs = append(f.inputs, option)
		for _, row := range vr.Values {
			kept := make([]any, len(row))
			for i, cell := range row {
				kept[i] = parseEntered(option, cell)
			}
			f.stored = append(f.stored, kept)
		}
		_, _ = w.Write([]byte(`{}`))

	case strings.HasSuffix(rest, ":clear"):
		f.cleared = append(f.cleared, strings.TrimSuffix(strings.TrimPrefix(rest, "values/"), ":clear"))
		_, _ = w.Write([]byte(`{}`))

	case r.Method == http.MethodPut:
		var vr sheets.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.updated[strings.TrimPrefix(rest, "values/")] = &vr
		_, _ = w.Write([]byte(`{}`))

	default:
		ref := strings.TrimPrefix(rest, "values/")
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Range: ref, Values: f.values[ref]})
	}
}

func newTestBackend(t *testing.T) (*Backend, *fakeAPI) {
	t.Helper()
	api := newFakeAPI()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.RetryAttempts = 1
	b, err := NewBackend(context.Background(), cfg, common.DiscardLogger(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return b, api
}

func TestBackend_OpenBook(t *testing.T) {
	b, _ := newTestBackend(t)
	ctx := context.Background()

	book, err := b.OpenBook(ctx, "book1")
	require.NoError(t, err)
	assert.Equal(t, "book1", book.ID())

	sheet, err := book.Sheet(ctx, "Sheet1")
	require.NoError(t, err)
	assert.Equal(t, "Sheet1", sheet.Name())

	_, err = book.Sheet(ctx, "Missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = b.OpenBook(ctx, "other")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestBackend_CreateSheet(t *testing.T) {
	b, api := newTestBackend(t)
	ctx := context.Background()

	book, err := b.OpenBook(ctx, "book1")
	require.NoError(t, err)

	sheet, err := book.CreateSheet(ctx, "Master")
	require.NoError(t, err)
	assert.Equal(t, int64(42), sheet.(*Sheet).sheetID)

	again, err := book.Sheet(ctx, "Master")
	require.NoError(t, err)
	assert.Equal(t, "Master", again.Name())

	require.Len(t, api.batches, 1)
	assert.Equal(t, "Master", api.batches[0].Requests[0].AddSheet.Properties.Title)
}

func TestSheet_ReadRangePadsAndConverts(t *testing.T) {
	b, api := newTestBackend(t)
	ctx := context.Background()
	api.values["'Sheet1'!A2:C4"] = [][]any{
		{"HDFC", 46312.0, 300.5},
		{"SBI"},
	}

	book, err := b.OpenBook(ctx, "book1")
	require.NoError(t, err)
	sheet, err := book.Sheet(ctx, "Sheet1")
	require.NoError(t, err)

	rows, err := sheet.ReadRange(ctx, 2, 1, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, []model.Row{
		{"HDFC", "46312", "300.5"},
		{"SBI", "", ""},
		{"", "", ""},
	}, rows)

	rows, err = sheet.ReadRange(ctx, 2, 1, 0, 3)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSheet_LastRowAndColumn(t *testing.T) {
	b, api := newTestBackend(t)
	ctx := context.Background()
	api.values["'Sheet1'"] = [][]any{
		{"Bank", "Date"},
		{"HDFC", 46312.0, "", "x"},
		{"", ""},
	}

	book, err := b.OpenBook(ctx, "book1")
	require.NoError(t, err)
	sheet, err := book.Sheet(ctx, "Sheet1")
	require.NoError(t, err)

	last, err := sheet.LastRow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, last)

	lastCol, err := sheet.LastColumn(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, lastCol)
}

func TestSheet_Writes(t *testing.T) {
	b, api := newTestBackend(t)
	ctx := context.Background()

	book, err := b.OpenBook(ctx, "book1")
	require.NoError(t, err)
	sheet, err := book.Sheet(ctx, "Sheet1")
	require.NoError(t, err)

	require.NoError(t, sheet.AppendRows(ctx, []model.Row{{"HDFC", "2026-10-17 10:00:00", "300.00"}}))
	require.NoError(t, sheet.AppendRows(ctx, nil))
	require.NoError(t, sheet.WriteRange(ctx, 5, 2, []model.Row{{"a", "b"}}))
	require.NoError(t, sheet.Clear(ctx))
	require.NoError(t, sheet.DeleteRow(ctx, 3))
	require.NoError(t, sheet.SetColumnDateFormat(ctx, 2, "MM/dd/yyyy"))

	require.Len(t, api.appended, 1)
	assert.Equal(t, []any{"HDFC", "2026-10-17 10:00:00", "300.00"}, api.appended[0].Values[0])
	assert.Equal(t, []string{InputUserEntered}, api.inputs)

	require.Contains(t, api.updated, "'Sheet1'!B5")
	assert.Equal(t, []any{"a", "b"}, api.updated["'Sheet1'!B5"].Values[0])

	assert.Equal(t, []string{"'Sheet1'"}, api.cleared)

	require.Len(t, api.batches, 2)
	del := api.batches[0].Requests[0].DeleteDimension
	require.NotNil(t, del)
	assert.Equal(t, int64(7), del.Range.SheetId)
	assert.Equal(t, int64(2), del.Range.StartIndex)
	assert.Equal(t, int64(3), del.Range.EndIndex)

	format := api.batches[1].Requests[0].RepeatCell
	require.NotNil(t, format)
	assert.Equal(t, int64(1), format.Range.StartColumnIndex)
	assert.Equal(t, "DATE", format.Cell.UserEnteredFormat.NumberFormat.Type)
	assert.Equal(t, "MM/dd/yyyy", format.Cell.UserEnteredFormat.NumberFormat.Pattern)

	assert.Error(t, sheet.DeleteRow(ctx, 0))
	assert.Error(t, sheet.SetColumnDateFormat(ctx, 0, "MM/dd/yyyy"))
}

func TestSheet_TextColumnsSurviveUserEnteredParsing(t *testing.T) {
	b, api := newTestBackend(t)
	ctx := context.Background()

	book, err := b.OpenBook(ctx, "book1")
	require.NoError(t, err)
	sheet, err := book.Sheet(ctx, "Sheet1")
	require.NoError(t, err)

	row := model.Row{"HDFC", "2026-10-17 10:00:00", "300.00", "1234", "Debit", "Others", "0456", "October", "2026"}
	require.NoError(t, sheet.AppendRows(ctx, []model.Row{row}))

	require.Len(t, api.appended, 1)
	sent := api.appended[0].Values[0]
	assert.Equal(t, "'1234", sent[model.ColDescription])
	assert.Equal(t, "'0456", sent[model.ColCardLast4])
	assert.Equal(t, "300.00", sent[model.ColAmount])

	api.values["'Sheet1'!A1:I1"] = api.stored
	got, err := sheet.ReadRange(ctx, 1, 1, 1, model.LedgerColumns)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "0456", got[0][model.ColCardLast4])
	assert.Equal(t, "1234", got[0][model.ColDescription])
	assert.Equal(t, "300", got[0][model.ColAmount])

	require.NoError(t, sheet.WriteRange(ctx, 2, 7, []model.Row{{"0789", "October"}}))
	assert.Equal(t, []any{"'0789", "October"}, api.updated["'Sheet1'!G2"].Values[0])
}

func TestSheet_RawInputSendsTextUnchanged(t *testing.T) {
	api := newFakeAPI()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.RetryAttempts = 1
	cfg.ValueInputOption = InputRaw
	b, err := NewBackend(context.Background(), cfg, common.DiscardLogger(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	ctx := context.Background()
	book, err := b.OpenBook(ctx, "book1")
	require.NoError(t, err)
	sheet, err := book.Sheet(ctx, "Sheet1")
	require.NoError(t, err)

	row := model.Row{"HDFC", "2026-10-17 10:00:00", "300.00", "ZOMATO", "Debit", "Food", "0456", "October", "2026"}
	require.NoError(t, sheet.AppendRows(ctx, []model.Row{row}))
	require.Len(t, api.stored, 1)
	assert.Equal(t, "0456", api.stored[0][model.ColCardLast4])
	assert.Equal(t, []string{InputRaw}, api.inputs)
}

func TestClassifyError(t *testing.T) {
	plain := errors.New("boom")

	tests := []struct {
		err       error
		name      string
		retryable bool
		rateLimit bool
	}{
		{name: "plain error", err: plain},
		{name: "rate limited", err: &googleapi.Error{Code: http.StatusTooManyRequests}, rateLimit: true},
		{name: "server error", err: &googleapi.Error{Code: http.StatusBadGateway}, retryable: true},
		{name: "bad request", err: &googleapi.Error{Code: http.StatusBadRequest}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyError(tt.err)
			assert.Equal(t, tt.retryable, common.IsRetryable(got) && !tt.rateLimit)
			assert.Equal(t, tt.rateLimit, errors.Is(got, common.ErrRateLimit))
		})
	}

	assert.NoError(t, classifyError(nil))
	assert.ErrorIs(t, classifyError(&googleapi.Error{Code: http.StatusNotFound}), common.ErrNotFound)
}
