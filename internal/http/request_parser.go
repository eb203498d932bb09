// Package http provides the JSON API over the analysis service.
//
// This file turns query strings and request bodies into service requests,
// collecting every malformed field instead of stopping at the first one.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"cardtrend/internal/core"
	"cardtrend/internal/services"
	"cardtrend/internal/sheets"
	"cardtrend/internal/sheets/memory"
)

// maxBodyBytes bounds JSON and CSV request bodies.
const maxBodyBytes = 8 << 20

var ErrUnsupportedMediaType = errors.New("unsupported media type")

// FieldErrors maps a request field to what is wrong with it.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " " + e[k]
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

// ParseAnalysisQuery reads an analysis request from query parameters:
//
//	years=2022,2023  (or repeated years=2022&years=2023)
//	k=4              (alias cluster_count)
//	top_n=10         (alias top)
//	seed=42
//	restarts=10
//
// Omitted parameters stay unset so the service applies its defaults.
func ParseAnalysisQuery(q url.Values) (services.Request, error) {
	var req services.Request
	errs := FieldErrors{}

	for _, raw := range q["years"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			y, err := strconv.Atoi(part)
			if err != nil {
				errs["years"] = fmt.Sprintf("must be a list of years, got %q", part)
				continue
			}
			req.Years = append(req.Years, y)
		}
	}

	// intParam returns nil when none of the names is present, so a given
	// zero stays distinguishable from an omitted value.
	intParam := func(names ...string) *int {
		for _, name := range names {
			v := strings.TrimSpace(q.Get(name))
			if v == "" {
				continue
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				errs[names[0]] = fmt.Sprintf("must be an integer, got %q", v)
				return nil
			}
			return &n
		}
		return nil
	}
	req.ClusterCount = intParam("cluster_count", "k")
	req.TopN = intParam("top_n", "top")
	if n := intParam("restarts"); n != nil {
		req.Restarts = *n
	}

	if v := strings.TrimSpace(q.Get("seed")); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs["seed"] = fmt.Sprintf("must be an integer, got %q", v)
		} else {
			req.Seed = &seed
		}
	}

	if len(errs) > 0 {
		return services.Request{}, errs
	}
	return req, nil
}

// BatchRequest is the body of POST /api/analysis/batch.
type BatchRequest struct {
	Requests []services.Request `json:"requests"`
}

// DecodeJSON decodes a bounded JSON body into v, rejecting unknown fields.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// recordPayload is the JSON form of an imported record.
type recordPayload struct {
	Period           core.Period `json:"period"`
	Category         string      `json:"category"`
	Region           string      `json:"region"`
	AgeGroup         string      `json:"age_group"`
	Gender           string      `json:"gender"`
	TransactionCount int         `json:"transaction_count"`
	Amount           float64     `json:"amount"`
}

// ParseRecords reads records from a JSON array or a CSV document, chosen
// by Content-Type. Invalid rows are returned separately with their index.
func ParseRecords(w http.ResponseWriter, r *http.Request) ([]core.Record, []sheets.RowError, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = "application/json"
	}

	switch mediaType {
	case "text/csv":
		return memory.ReadCSV(io.LimitReader(r.Body, maxBodyBytes))
	case "application/json":
		var payload []recordPayload
		if err := DecodeJSON(w, r, &payload); err != nil {
			return nil, nil, err
		}
		var (
			records []core.Record
			bad     []sheets.RowError
		)
		for i, p := range payload {
			rec := core.Record{
				Period:           p.Period,
				Category:         strings.TrimSpace(p.Category),
				Region:           strings.TrimSpace(p.Region),
				AgeGroup:         strings.TrimSpace(p.AgeGroup),
				Gender:           strings.TrimSpace(p.Gender),
				TransactionCount: p.TransactionCount,
				Amount:           p.Amount,
			}
			if err := rec.Validate(); err != nil {
				bad = append(bad, sheets.RowError{Row: i + 1, Err: err})
				continue
			}
			records = append(records, rec)
		}
		return records, bad, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, mediaType)
	}
}
