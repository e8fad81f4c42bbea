// Package memory provides an in-memory leads.Store used by engine tests and
// local dry runs.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/skillverse/leadgen/internal/leads"
	"github.com/skillverse/leadgen/internal/phone"
)

// Store keeps rows in a slice, mirroring sheet row ids (first data row is 2).
type Store struct {
	mu   sync.Mutex
	rows []leads.Row

	// AppendErr, when set, is returned by AppendIfNew to exercise failure
	// branches in tests.
	AppendErr error
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Load pre-populates the store with rows, assigning sequential ids.
func (s *Store) Load(rows ...leads.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		if r.ID == 0 {
			r.ID = int64(len(s.rows) + 2)
		}
		if r.Status == "" {
			r.Status = leads.StatusNew
		}
		s.rows = append(s.rows, r)
	}
}

// LoadExisting implements leads.Store.
func (s *Store) LoadExisting(_ context.Context) (map[string]struct{}, map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	phones := make(map[string]struct{})
	names := make(map[string]struct{})
	for _, r := range s.rows {
		if d := phone.Digits(r.Lead.Phone); d != "" {
			phones[d] = struct{}{}
		}
		if n := strings.ToLower(strings.TrimSpace(r.Lead.Name)); n != "" {
			names[n] = struct{}{}
		}
	}
	return phones, names, nil
}

// AppendIfNew implements leads.Store.
func (s *Store) AppendIfNew(_ context.Context, lead leads.Lead) (bool, error) {
	if s.AppendErr != nil {
		return false, s.AppendErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	digits := phone.Digits(lead.Phone)
	name := strings.ToLower(strings.TrimSpace(lead.Name))
	for _, r := range s.rows {
		if digits != "" && phone.Digits(r.Lead.Phone) == digits {
			return false, nil
		}
		if name != "" && strings.ToLower(strings.TrimSpace(r.Lead.Name)) == name {
			return false, nil
		}
	}
	s.rows = append(s.rows, leads.Row{
		ID:     int64(len(s.rows) + 2),
		Lead:   lead,
		Status: leads.StatusNew,
	})
	return true, nil
}

// ListRows implements leads.Store.
func (s *Store) ListRows(_ context.Context) ([]leads.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]leads.Row, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

// UpdateStatus implements leads.Store.
func (s *Store) UpdateStatus(_ context.Context, id int64, status leads.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID == id {
			s.rows[i].Status = status
			return nil
		}
	}
	return nil
}

// Statuses returns the status of every row in order, for assertions.
func (s *Store) Statuses() []leads.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]leads.Status, len(s.rows))
	for i, r := range s.rows {
		out[i] = r.Status
	}
	return out
}

// Len returns the number of rows.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
