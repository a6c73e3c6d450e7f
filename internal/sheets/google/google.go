package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"presupuesto/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const DefaultSheetName = "Presupuesto"

var _ sheets.BudgetExporter = (*Client)(nil)

// Config selects the spreadsheet and the service account used to reach it.
// CredentialsJSON wins over CredentialsFile; with neither set,
// GOOGLE_APPLICATION_CREDENTIALS is read.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// valuesAPI is the subset of the Sheets values service the client uses.
type valuesAPI interface {
	Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
	Update(ctx context.Context, spreadsheetID, rng string, values [][]any) error
}

// Client exports month rows to a yearly sheet named "<year> <SheetName>".
type Client struct {
	values        valuesAPI
	spreadsheetID string
	sheetBase     string
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(serviceValues{svc: svc}, cfg), nil
}

func newClient(values valuesAPI, cfg Config) *Client {
	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = DefaultSheetName
	}
	return &Client{values: values, spreadsheetID: cfg.SpreadsheetID, sheetBase: base}
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsJSON := []byte(strings.TrimSpace(cfg.CredentialsJSON))
	file := strings.TrimSpace(cfg.CredentialsFile)
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case len(credentialsJSON) > 0:
		slog.InfoContext(ctx, "Using inline service account credentials")
	case file != "":
		var err error
		credentialsJSON, err = os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Read service account credentials", "path", file)
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ExportMonth replaces the row whose column A holds the month token, or
// appends one after the last used row. An empty sheet gets the header first.
func (c *Client) ExportMonth(ctx context.Context, row sheets.MonthRow) (string, error) {
	if c.values == nil {
		return "", errors.New("sheets service not initialized")
	}
	sheet := yearPrefixedName(c.sheetBase, row.YearMonth.Year)

	colA, err := c.values.Get(ctx, c.spreadsheetID, fmt.Sprintf("%s!A:A", sheet))
	if err != nil {
		return "", fmt.Errorf("read %s column A: %w", sheet, err)
	}

	if len(colA) == 0 {
		header := make([]any, len(sheets.Header))
		for i, h := range sheets.Header {
			header[i] = h
		}
		if err := c.values.Update(ctx, c.spreadsheetID, rowRange(sheet, 1), [][]any{header}); err != nil {
			return "", fmt.Errorf("write header to %s: %w", sheet, err)
		}
		colA = [][]any{header[:1]}
	}

	target := findRow(colA, row.YearMonth.String())
	if target == 0 {
		target = len(colA) + 1
	}

	ref := rowRange(sheet, target)
	if err := c.values.Update(ctx, c.spreadsheetID, ref, [][]any{row.Values()}); err != nil {
		return "", fmt.Errorf("write %s: %w", ref, err)
	}

	slog.InfoContext(ctx, "Exported month to Google Sheets",
		"year_month", row.YearMonth.String(),
		"range", ref)
	return ref, nil
}

// findRow returns the 1-based row whose first cell equals token, or 0.
func findRow(colA [][]any, token string) int {
	for i, r := range colA {
		if len(r) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(r[0])) == token {
			return i + 1
		}
	}
	return 0
}

func rowRange(sheet string, row int) string {
	last := rune('A' + len(sheets.Header) - 1)
	return fmt.Sprintf("%s!A%d:%c%d", sheet, row, last, row)
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

type serviceValues struct {
	svc *gsheet.Service
}

func (s serviceValues) Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (s serviceValues) Update(ctx context.Context, spreadsheetID, rng string, values [][]any) error {
	vr := &gsheet.ValueRange{Values: values}
	_, err := s.svc.Spreadsheets.Values.Update(spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}
