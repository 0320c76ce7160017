package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// GoogleStore is the production Store backed by the Google Sheets API.
// Collections are spreadsheets addressed by ID, tabs by sheet title.
type GoogleStore struct {
	svc *sheetsapi.Service
}

// NewGoogle builds a GoogleStore authenticated with a service-account
// credentials file.
func NewGoogle(ctx context.Context, credentialsFile string) (*GoogleStore, error) {
	svc, err := sheetsapi.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheetsapi.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &GoogleStore{svc: svc}, nil
}

// OpenTable returns a handle for one tab. The tab is not touched until the
// first operation, so opening is cheap and never fails here.
func (g *GoogleStore) OpenTable(ctx context.Context, collectionID, tab string) (Table, error) {
	return &googleTable{svc: g.svc, spreadsheetID: collectionID, tab: tab}, nil
}

type googleTable struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	tab           string
}

func (t *googleTable) Rows(ctx context.Context) ([]Row, error) {
	resp, err := t.svc.Spreadsheets.Values.Get(t.spreadsheetID, t.tab).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", t.tab, err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}
	header := make([]string, len(resp.Values[0]))
	for i, v := range resp.Values[0] {
		header[i] = fmt.Sprint(v)
	}
	rows := make([]Row, 0, len(resp.Values)-1)
	for i, raw := range resp.Values[1:] {
		values := make(map[string]string, len(header))
		for j, col := range header {
			if j < len(raw) {
				values[col] = fmt.Sprint(raw[j])
			} else {
				values[col] = ""
			}
		}
		rows = append(rows, Row{Index: i, Columns: header, Values: values})
	}
	return rows, nil
}

func (t *googleTable) Append(ctx context.Context, values []string) error {
	raw := make([]any, len(values))
	for i, v := range values {
		raw[i] = v
	}
	vr := &sheetsapi.ValueRange{Values: [][]any{raw}}
	_, err := t.svc.Spreadsheets.Values.Append(t.spreadsheetID, t.tab, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", t.tab, err)
	}
	return nil
}

func (t *googleTable) UpdateCell(ctx context.Context, rowIndex, colIndex int, value string) error {
	// +2: sheets are 1-based and row 1 is the header.
	rng := fmt.Sprintf("%s!%s%d", t.tab, columnLetter(colIndex), rowIndex+2)
	vr := &sheetsapi.ValueRange{Values: [][]any{{value}}}
	_, err := t.svc.Spreadsheets.Values.Update(t.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// columnLetter converts a zero-based column index to A1 notation (A, B, …,
// Z, AA, AB, …).
func columnLetter(col int) string {
	var out []byte
	for col >= 0 {
		out = append([]byte{byte('A' + col%26)}, out...)
		col = col/26 - 1
	}
	return string(out)
}
