package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"cardtrend/internal/core"
	ports "cardtrend/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client reads and appends card records on one sheet of a spreadsheet.
// The first row of the sheet is the header.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
}

var _ ports.RecordStore = (*Client)(nil)

// Options configures a Client.
type Options struct {
	SpreadsheetID string
	Sheet         string
	// Service account credentials, inline JSON wins over the file.
	CredentialsJSON string
	CredentialsFile string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, opts.CredentialsJSON, opts.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, opts.SpreadsheetID, opts.Sheet), nil
}

// NewWithService wraps an existing service. An empty sheet name means "records".
func NewWithService(svc *gsheet.Service, spreadsheetID, sheet string) *Client {
	if sheet == "" {
		sheet = "records"
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, credentialsJSON, credentialsFile string) (*gsheet.Service, error) {
	credentialsJSON = strings.TrimSpace(credentialsJSON)
	credentialsFile = strings.TrimSpace(credentialsFile)

	var creds []byte
	switch {
	case credentialsJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		creds = []byte(credentialsJSON)
	case credentialsFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", credentialsFile)
		b, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		creds = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "scope", gsheet.SpreadsheetsScope)
	return service, nil
}

// newHTTPClientWithPooling creates an HTTP client with connection pooling
// and timeouts suited to the Sheets API.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

func (c *Client) dataRange() string {
	return fmt.Sprintf("%s!A:G", quoteSheet(c.sheet))
}

// readAll fetches the whole sheet and parses it.
func (c *Client) readAll(ctx context.Context) ([]core.Record, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.dataRange()).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", c.sheet, err)
	}

	records, bad, err := ports.ParseRows(cellsToStrings(resp.Values))
	if err != nil {
		return nil, fmt.Errorf("parse sheet %q: %w", c.sheet, err)
	}
	for _, b := range bad {
		slog.WarnContext(ctx, "Skipping invalid sheet row", "sheet", c.sheet, "row", b.Row, "error", b.Err)
	}
	return records, nil
}

// ListRecords implements sheets.RecordReader.
func (c *Client) ListRecords(ctx context.Context, filter core.PeriodFilter) ([]core.Record, error) {
	records, err := c.readAll(ctx)
	if err != nil {
		return nil, err
	}
	return ports.Filter(records, filter), nil
}

// Years implements sheets.YearLister.
func (c *Client) Years(ctx context.Context) ([]int, error) {
	records, err := c.readAll(ctx)
	if err != nil {
		return nil, err
	}
	return ports.DistinctYears(records), nil
}

// AppendRecords implements sheets.RecordWriter by appending rows after the
// last non-empty row of the sheet.
func (c *Client) AppendRecords(ctx context.Context, records []core.Record) (int, error) {
	if c.svc == nil {
		return 0, errors.New("sheets service not initialized")
	}
	if len(records) == 0 {
		return 0, nil
	}

	rows := make([][]interface{}, len(records))
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
		rows[i] = toCells(r)
	}

	vr := &gsheet.ValueRange{Values: rows}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.dataRange(), vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("append rows: %w", err)
	}

	n := len(records)
	if resp.Updates != nil && resp.Updates.UpdatedRows > 0 {
		n = int(resp.Updates.UpdatedRows)
	}
	slog.InfoContext(ctx, "Card records appended to sheet", "sheet", c.sheet, "rows", n)
	return n, nil
}
