package google

import (
	"testing"

	"cardtrend/internal/core"
)

func TestCellsToStrings(t *testing.T) {
	values := [][]interface{}{
		{"period", "category", "amount"},
		{202301.0, "delivery", 15000.0},
		{"2023-02", nil, 12.5, true},
	}
	got := cellsToStrings(values)
	want := [][]string{
		{"period", "category", "amount"},
		{"202301", "delivery", "15000"},
		{"2023-02", "", "12.5", "true"},
	}
	if len(got) != len(want) {
		t.Fatalf("rows: got %d want %d", len(got), len(want))
	}
	for i := range want {
		for j := range want[i] {
			if got[i][j] != want[i][j] {
				t.Fatalf("cell %d,%d: got %q want %q", i, j, got[i][j], want[i][j])
			}
		}
	}
}

func TestToCells(t *testing.T) {
	r := core.Record{Period: core.NewPeriod(2022, 3), Category: "books", TransactionCount: 2, Amount: 7.25}
	cells := toCells(r)
	if len(cells) != 7 {
		t.Fatalf("expected 7 cells, got %d", len(cells))
	}
	if cells[0] != "202203" || cells[1] != "books" || cells[6] != "7.25" {
		t.Fatalf("unexpected cells: %v", cells)
	}
}

func TestQuoteSheet(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"records", "records"},
		{"card data", "'card data'"},
		{"Bob's", "'Bob''s'"},
	}
	for _, tt := range tests {
		if got := quoteSheet(tt.name); got != tt.want {
			t.Errorf("quoteSheet(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
