package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"github.com/vani-hq/vani/internal/database/models"
)

// ErrNotConfigured is returned when no service-account credentials were
// supplied.
var ErrNotConfigured = errors.New("sheets export not configured")

// Exporter appends target rows to a Google Sheet owned by the operator.
type Exporter struct {
	credentialsJSON []byte
	logger          *slog.Logger
}

func NewExporter(credentialsJSON string, logger *slog.Logger) *Exporter {
	e := &Exporter{logger: logger}
	if credentialsJSON != "" {
		e.credentialsJSON = []byte(credentialsJSON)
	}
	return e
}

// ExportTargets appends one row per target to the "Targets" sheet of the
// given spreadsheet and returns the number of rows written.
func (e *Exporter) ExportTargets(ctx context.Context, spreadsheetID string, targets []models.Target) (int, error) {
	if e.credentialsJSON == nil {
		return 0, ErrNotConfigured
	}

	creds, err := google.CredentialsFromJSON(ctx, e.credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return 0, fmt.Errorf("loading sheets credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return 0, fmt.Errorf("creating sheets client: %w", err)
	}

	rows := make([][]interface{}, 0, len(targets))
	for _, t := range targets {
		industry := ""
		if t.Industry != nil {
			industry = t.Industry.Name
		}
		company := ""
		if t.Company != nil {
			company = t.Company.Name
		}
		rows = append(rows, []interface{}{
			t.Name, t.Title, t.Seniority, t.Email, t.Phone,
			t.LinkedInURL, string(t.Status), industry, company,
		})
	}

	_, err = svc.Spreadsheets.Values.
		Append(spreadsheetID, "Targets!A1", &sheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("appending rows: %w", err)
	}

	e.logger.Info("exported targets to sheet",
		"spreadsheet_id", spreadsheetID,
		"rows", len(rows),
	)

	return len(rows), nil
}
