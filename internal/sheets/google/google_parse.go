package google

import (
	"fmt"
	"strconv"
	"strings"

	"cardtrend/internal/core"
	ports "cardtrend/internal/sheets"
)

// cellsToStrings flattens Sheets values into the string grid ParseRows expects.
// Numbers come back as float64 when rendered UNFORMATTED_VALUE.
func cellsToStrings(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j] = cellString(v)
		}
	}
	return out
}

func cellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func toCells(r core.Record) []interface{} {
	row := ports.FormatRow(r)
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}

// quoteSheet wraps names with spaces or punctuation for A1 notation.
func quoteSheet(name string) string {
	if strings.ContainsAny(name, " '!-") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}
