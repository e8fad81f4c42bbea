// Package sheets implements the leads.Store contract on a Google Sheets
// spreadsheet, the layout the wider outreach workflow is built around.
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/skillverse/leadgen/internal/leads"
	"github.com/skillverse/leadgen/internal/phone"
)

// Config selects the spreadsheet and the credential source. Exactly one of
// CredentialsFile (service account) or ClientSecretFile+TokenFile (saved user
// OAuth token) must be usable.
type Config struct {
	SpreadsheetID    string `mapstructure:"spreadsheet_id"`
	SheetName        string `mapstructure:"sheet_name"`
	CredentialsFile  string `mapstructure:"credentials_file"`
	ClientSecretFile string `mapstructure:"client_secret_file"`
	TokenFile        string `mapstructure:"token_file"`
}

// Store talks to one worksheet of one spreadsheet.
type Store struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
	logger        *zap.Logger

	// resolved column indexes, zero-based; discovered from the header row
	nameCol   int
	phoneCol  int
	statusCol int
}

// New authenticates against the Sheets API and verifies the worksheet header,
// writing the canonical header row when the sheet is empty. Reaching the
// store is a setup precondition: any failure here aborts the run before a
// browser ever opens.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("sheets: spreadsheet_id is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SheetName == "" {
		cfg.SheetName = "Sheet1"
	}

	opts, err := clientOptions(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}

	s := &Store{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
		logger:        logger,
	}
	if err := s.resolveColumns(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func clientOptions(ctx context.Context, cfg Config) ([]option.ClientOption, error) {
	if cfg.CredentialsFile != "" {
		return []option.ClientOption{
			option.WithCredentialsFile(cfg.CredentialsFile),
			option.WithScopes(sheets.SpreadsheetsScope),
		}, nil
	}
	if cfg.ClientSecretFile != "" && cfg.TokenFile != "" {
		ts, err := savedTokenSource(ctx, cfg.ClientSecretFile, cfg.TokenFile)
		if err != nil {
			return nil, err
		}
		return []option.ClientOption{option.WithTokenSource(ts)}, nil
	}
	return nil, fmt.Errorf("sheets: no credentials configured (set credentials_file or client_secret_file + token_file)")
}

// savedTokenSource builds a refreshing token source from a client secret and
// a previously saved OAuth token, the flow the hosted control surface uses.
func savedTokenSource(ctx context.Context, secretFile, tokenFile string) (oauth2.TokenSource, error) {
	secret, err := os.ReadFile(secretFile)
	if err != nil {
		return nil, fmt.Errorf("sheets: read client secret: %w", err)
	}
	conf, err := google.ConfigFromJSON(secret, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("sheets: parse client secret: %w", err)
	}
	raw, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("sheets: read saved token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("sheets: parse saved token: %w", err)
	}
	return conf.TokenSource(ctx, &tok), nil
}

// resolveColumns reads the header row and locates the name, phone, and
// status columns by fuzzy match, tolerating the label drift seen across
// historical copies of the sheet ("Name of Lead", "Contact number of lead").
// An empty sheet gets the canonical header written first.
func (s *Store) resolveColumns(ctx context.Context) error {
	header, err := s.readRange(ctx, s.rangeRef("1:1"))
	if err != nil {
		return err
	}
	if len(header) == 0 || len(header[0]) == 0 {
		if err := s.writeHeader(ctx); err != nil {
			return err
		}
		header = [][]interface{}{toInterfaces(leads.Header)}
	}

	labels := make([]string, len(header[0]))
	for i, cell := range header[0] {
		labels[i] = fmt.Sprint(cell)
	}
	s.nameCol, s.phoneCol, s.statusCol = matchColumns(labels)
	if s.nameCol < 0 || s.phoneCol < 0 || s.statusCol < 0 {
		return fmt.Errorf("sheets: header row missing name/phone/status columns: %v", labels)
	}
	return nil
}

// matchColumns locates the three key columns by fuzzy label match, returning
// -1 for anything not found.
func matchColumns(labels []string) (name, phoneCol, status int) {
	name, phoneCol, status = -1, -1, -1
	for i, label := range labels {
		h := strings.ToLower(strings.TrimSpace(label))
		switch {
		case name < 0 && strings.Contains(h, "name"):
			name = i
		case phoneCol < 0 && (strings.Contains(h, "phone") || strings.Contains(h, "contact")):
			phoneCol = i
		case status < 0 && strings.Contains(h, "status"):
			status = i
		}
	}
	return name, phoneCol, status
}

func (s *Store) writeHeader(ctx context.Context) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{toInterfaces(leads.Header)}}
	_, err := s.svc.Spreadsheets.Values.
		Update(s.spreadsheetID, s.rangeRef("A1"), vr).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: write header: %w", err)
	}
	return nil
}

// LoadExisting implements leads.Store.
func (s *Store) LoadExisting(ctx context.Context) (map[string]struct{}, map[string]struct{}, error) {
	rows, err := s.dataRows(ctx)
	if err != nil {
		return nil, nil, err
	}
	phones := make(map[string]struct{})
	names := make(map[string]struct{})
	for _, row := range rows {
		if d := phone.Digits(cellAt(row, s.phoneCol)); d != "" {
			phones[d] = struct{}{}
		}
		if n := strings.ToLower(strings.TrimSpace(cellAt(row, s.nameCol))); n != "" {
			names[n] = struct{}{}
		}
	}
	return phones, names, nil
}

// AppendIfNew implements leads.Store. The sheet is re-read at write time so a
// record that raced in through an external edit since registry seeding is
// still refused; the sheet, not the registry, is the dedup authority.
func (s *Store) AppendIfNew(ctx context.Context, lead leads.Lead) (bool, error) {
	phones, names, err := s.LoadExisting(ctx)
	if err != nil {
		return false, err
	}
	if d := phone.Digits(lead.Phone); d != "" {
		if _, dup := phones[d]; dup {
			return false, nil
		}
	}
	if n := strings.ToLower(strings.TrimSpace(lead.Name)); n != "" {
		if _, dup := names[n]; dup {
			return false, nil
		}
	}

	vr := &sheets.ValueRange{Values: [][]interface{}{toInterfaces(lead.Values())}}
	_, err = s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, s.rangeRef("A1"), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("sheets: append lead: %w", err)
	}
	return true, nil
}

// ListRows implements leads.Store. Row ids are 1-based sheet row numbers; the
// first data row is 2.
func (s *Store) ListRows(ctx context.Context) ([]leads.Row, error) {
	rows, err := s.dataRows(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]leads.Row, 0, len(rows))
	for i, row := range rows {
		out = append(out, leads.Row{
			ID: int64(i + 2),
			Lead: leads.Lead{
				Name:  cellAt(row, s.nameCol),
				Phone: cellAt(row, s.phoneCol),
			},
			Status: leads.Status(strings.TrimSpace(cellAt(row, s.statusCol))),
		})
	}
	return out, nil
}

// UpdateStatus implements leads.Store with a single-cell write, naturally
// idempotent under retry.
func (s *Store) UpdateStatus(ctx context.Context, id int64, status leads.Status) error {
	cell := fmt.Sprintf("%s%d", columnLetter(s.statusCol), id)
	vr := &sheets.ValueRange{Values: [][]interface{}{{string(status)}}}
	_, err := s.svc.Spreadsheets.Values.
		Update(s.spreadsheetID, s.rangeRef(cell), vr).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: update status row %d: %w", id, err)
	}
	return nil
}

func (s *Store) dataRows(ctx context.Context) ([][]interface{}, error) {
	return s.readRange(ctx, s.rangeRef("A2:Z"))
}

func (s *Store) readRange(ctx context.Context, ref string) ([][]interface{}, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, ref).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: read %s: %w", ref, err)
	}
	return resp.Values, nil
}

func (s *Store) rangeRef(cells string) string {
	return fmt.Sprintf("%s!%s", s.sheetName, cells)
}

func cellAt(row []interface{}, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return fmt.Sprint(row[col])
}

// columnLetter converts a zero-based column index to its A1 letter. The lead
// layout never exceeds column Z.
func columnLetter(col int) string {
	if col < 0 || col > 25 {
		return "A"
	}
	return string(rune('A' + col))
}

func toInterfaces(vals []string) []interface{} {
	out := make([]interface{}, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}
