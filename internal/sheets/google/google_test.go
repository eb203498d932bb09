package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"cardtrend/internal/core"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	return NewWithService(svc, "sheet-id", "")
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{})
	if err == nil || err.Error() != "missing spreadsheet id" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(context.Background(), Options{SpreadsheetID: "x"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestListRecordsReadsSheet(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/spreadsheets/sheet-id/values/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("valueRenderOption"); got != "UNFORMATTED_VALUE" {
			t.Errorf("valueRenderOption = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"range": "records!A1:G4",
			"values": [][]any{
				{"period", "category", "amount"},
				{202201, "delivery", 100},
				{202301, "travel", 250.5},
				{202313, "broken", 1},
			},
		})
	})

	got, err := c.ListRecords(context.Background(), core.PeriodFilter{Years: []int{2023}})
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(got) != 1 || got[0].Category != "travel" || got[0].Amount != 250.5 {
		t.Fatalf("unexpected records: %+v", got)
	}

	years, err := c.Years(context.Background())
	if err != nil {
		t.Fatalf("Years: %v", err)
	}
	if len(years) != 2 || years[0] != 2022 || years[1] != 2023 {
		t.Fatalf("unexpected years: %v", years)
	}
}

func TestListRecordsAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"denied"}}`, http.StatusForbidden)
	})
	if _, err := c.ListRecords(context.Background(), core.PeriodFilter{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestAppendRecords(t *testing.T) {
	var body struct {
		Values [][]string `json:"values"`
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, ":append") {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("valueInputOption"); got != "RAW" {
			t.Errorf("valueInputOption = %q", got)
		}
		b, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(b, &body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"updates":{"updatedRows":2}}`)
	})

	n, err := c.AppendRecords(context.Background(), []core.Record{
		{Period: core.NewPeriod(2023, 1), Category: "a", Amount: 1},
		{Period: core.NewPeriod(2023, 2), Category: "b", Amount: 2},
	})
	if err != nil || n != 2 {
		t.Fatalf("AppendRecords: n=%d err=%v", n, err)
	}
	if len(body.Values) != 2 || body.Values[1][0] != "202302" {
		t.Fatalf("unexpected body: %+v", body.Values)
	}
}

func TestAppendRecordsValidates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	_, err := c.AppendRecords(context.Background(), []core.Record{{Period: core.NewPeriod(2023, 1)}})
	if err == nil {
		t.Fatal("expected validation error")
	}
}
