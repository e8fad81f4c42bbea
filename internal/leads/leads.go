// Package leads defines the core data model shared by the discovery pipeline
// and the outreach dispatcher: lead records, contact statuses, the persistent
// store contract, and the in-memory dedup registry.
package leads

import (
	"context"
	"strings"
)

// Status is the per-row contact state persisted in the lead store. A row
// starts as New and only ever moves forward to a terminal status; nothing in
// this system writes New back.
type Status string

// Status values recognized by the dispatcher.
const (
	StatusNew              Status = "New"
	StatusSent             Status = "Sent"
	StatusInvalidPhone     Status = "Invalid Phone"
	StatusInvalidWhatsApp  Status = "Invalid WhatsApp"
	StatusDuplicateSkip    Status = "Duplicate-Skip"
	StatusNavErrorEmpty    Status = "Nav-Error-Empty"
	StatusNavErrorStuck    Status = "Nav-Error-Stuck"
	StatusNavErrorWrong    Status = "Nav-Error-WrongChat"
	StatusNavErrorCheck    Status = "Nav-Error-CheckFail"
	StatusDraftError       Status = "Draft-Error"
	StatusError            Status = "Error"
)

// Pending reports whether a row is still awaiting outreach. A blank status is
// treated as New: rows inserted by hand frequently omit it.
func (s Status) Pending() bool {
	v := strings.ToLower(strings.TrimSpace(string(s)))
	return v == "" || v == "new"
}

// Lead is one discovered business contact. Immutable once composed by the
// listing inspector.
type Lead struct {
	Name       string
	Phone      string
	Profession string
	Email      string
	Website    string
	Address    string
	Query      string
	Rating     string
}

// Header is the canonical column order of the persisted sheet layout.
var Header = []string{"Name", "Phone", "Profession", "Status", "Email", "Website", "Address", "Query", "Rating"}

// Values renders the lead as a sheet row in Header order, with the Status
// column defaulted to New.
func (l Lead) Values() []string {
	return []string{l.Name, l.Phone, l.Profession, string(StatusNew), l.Email, l.Website, l.Address, l.Query, l.Rating}
}

// Row is a persisted lead plus its store row id and current status.
type Row struct {
	ID     int64
	Lead   Lead
	Status Status
}

// Store is the narrow contract against the persistent lead record store. The
// store is the final dedup authority: AppendIfNew must be safe to call with a
// record the in-memory registry believes is new, and must refuse duplicates
// introduced by concurrent external edits.
type Store interface {
	// LoadExisting returns the normalized phone-digit and lowercase-name key
	// sets of all current rows, used to seed the dedup registry.
	LoadExisting(ctx context.Context) (phones, names map[string]struct{}, err error)

	// AppendIfNew persists the lead unless a row with the same phone or name
	// key already exists. It reports whether the row was actually written.
	AppendIfNew(ctx context.Context, lead Lead) (bool, error)

	// ListRows returns all rows in sheet order for dispatch.
	ListRows(ctx context.Context) ([]Row, error)

	// UpdateStatus writes a terminal status for one row. Implementations must
	// be idempotent under retry.
	UpdateStatus(ctx context.Context, id int64, status Status) error
}
