package sheets

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"cardtrend/internal/core"
)

// Canonical column names, in the order FormatRow writes them.
var Header = []string{"period", "category", "region", "age_group", "gender", "transaction_count", "amount"}

// header aliases, including the column names of the public card consumption export
var columnAliases = map[string][]string{
	"period":            {"period", "month", "기준월"},
	"category":          {"category", "online_category", "온라인업종"},
	"region":            {"region", "district", "고객행정동코드"},
	"age_group":         {"age_group", "age", "연령대"},
	"gender":            {"gender", "sex", "성별"},
	"transaction_count": {"transaction_count", "transactions", "카드이용건수"},
	"amount":            {"amount", "카드이용금액계"},
}

var requiredColumns = []string{"period", "category", "amount"}

var ErrMissingColumns = errors.New("missing required columns")

// RowError describes a data row that could not be turned into a record.
// Row is 1-based and counts the header.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Row, e.Err) }

func (e RowError) Unwrap() error { return e.Err }

// ParseRows converts a header row plus data rows into records. Blank rows are
// skipped, invalid rows are returned in bad and left out of records. err is
// set only when the header itself is unusable.
func ParseRows(values [][]string) (records []core.Record, bad []RowError, err error) {
	if len(values) == 0 {
		return nil, nil, nil
	}
	cols, err := mapHeader(values[0])
	if err != nil {
		return nil, nil, err
	}

	records = make([]core.Record, 0, len(values)-1)
	for i, row := range values[1:] {
		if blank(row) {
			continue
		}
		r, err := parseRow(row, cols)
		if err != nil {
			bad = append(bad, RowError{Row: i + 2, Err: err})
			continue
		}
		records = append(records, r)
	}
	return records, bad, nil
}

func mapHeader(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(columnAliases))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for name, aliases := range columnAliases {
			if _, taken := cols[name]; taken {
				continue
			}
			if slices.Contains(aliases, h) {
				cols[name] = i
			}
		}
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s; got headers=%v", ErrMissingColumns, strings.Join(missing, ","), header)
	}
	return cols, nil
}

func parseRow(row []string, cols map[string]int) (core.Record, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	period, err := core.ParsePeriod(get("period"))
	if err != nil {
		return core.Record{}, err
	}
	amount, err := core.ParseAmount(get("amount"))
	if err != nil {
		return core.Record{}, err
	}
	count := 0
	if s := get("transaction_count"); s != "" {
		v, err := core.ParseAmount(s)
		if err != nil {
			return core.Record{}, fmt.Errorf("transaction count: %w", err)
		}
		count = int(v)
	}

	r := core.Record{
		Period:           period,
		Category:         get("category"),
		Region:           get("region"),
		AgeGroup:         get("age_group"),
		Gender:           get("gender"),
		TransactionCount: count,
		Amount:           amount,
	}
	if err := r.Validate(); err != nil {
		return core.Record{}, err
	}
	return r, nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// FormatRow renders r in Header order.
func FormatRow(r core.Record) []string {
	return []string{
		r.Period.String(),
		r.Category,
		r.Region,
		r.AgeGroup,
		r.Gender,
		strconv.Itoa(r.TransactionCount),
		strconv.FormatFloat(r.Amount, 'f', -1, 64),
	}
}

// Filter keeps the records whose period passes filter.
func Filter(records []core.Record, filter core.PeriodFilter) []core.Record {
	if filter.IsEmpty() {
		return slices.Clone(records)
	}
	out := make([]core.Record, 0, len(records))
	for _, r := range records {
		if filter.Match(r.Period) {
			out = append(out, r)
		}
	}
	return out
}

// DistinctYears returns the sorted set of years in records.
func DistinctYears(records []core.Record) []int {
	seen := make(map[int]struct{})
	for _, r := range records {
		seen[r.Period.Year] = struct{}{}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	slices.Sort(years)
	return years
}
