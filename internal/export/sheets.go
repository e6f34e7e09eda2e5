package export

import (
	"context"
	"fmt"
	"os"
	"time"

	"tennisluv/internal/catalog"
	"tennisluv/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsPublisher replaces the content of one sheet with the entry table.
type SheetsPublisher struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	catalog       *catalog.Catalog
}

// NewSheetsPublisher authenticates with a service account credentials file.
func NewSheetsPublisher(ctx context.Context, credentialsFile, spreadsheetID, sheetName string, cat *catalog.Catalog) (*SheetsPublisher, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}
	return NewSheetsPublisherWithService(srv, spreadsheetID, sheetName, cat), nil
}

func NewSheetsPublisherWithService(srv *sheets.Service, spreadsheetID, sheetName string, cat *catalog.Catalog) *SheetsPublisher {
	if sheetName == "" {
		sheetName = defaultSheet
	}
	if cat == nil {
		cat = catalog.Default()
	}
	return &SheetsPublisher{service: srv, spreadsheetID: spreadsheetID, sheetName: sheetName, catalog: cat}
}

// TestConnection reads the first cell of the target sheet.
func (p *SheetsPublisher) TestConnection(ctx context.Context) error {
	_, err := p.service.Spreadsheets.Values.Get(p.spreadsheetID, p.sheetName+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// Publish clears the sheet and writes the table of entries within [from, to].
func (p *SheetsPublisher) Publish(ctx context.Context, entries []models.Entry, courts []models.Court, from, to time.Time) error {
	t := BuildTable(p.catalog, entries, courts, from, to)

	values := make([][]interface{}, 0, len(t.Rows)+2)
	values = append(values, []interface{}{t.Title})
	values = append(values, toRow(t.Header))
	for _, r := range t.Rows {
		values = append(values, toRow(r))
	}

	if _, err := p.service.Spreadsheets.Values.Clear(p.spreadsheetID, p.sheetName, &sheets.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}

	rangeData := fmt.Sprintf("%s!A1", p.sheetName)
	_, err := p.service.Spreadsheets.Values.Update(p.spreadsheetID, rangeData, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update sheet: %w", err)
	}
	return nil
}

func toRow(cells []string) []interface{} {
	row := make([]interface{}, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}
