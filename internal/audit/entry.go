package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	defaultPerPage = 50
	maxPerPage     = 200
)

// Change is the before/after pair of an audited mutation. Either half may be empty.
type Change struct {
	Old json.RawMessage `json:"old_values,omitempty"`
	New json.RawMessage `json:"new_values,omitempty"`
}

// NewChange serialises the old and new snapshots. Nil snapshots stay empty.
func NewChange(old, new any) (Change, error) {
	var (
		c   Change
		err error
	)
	if old != nil {
		if c.Old, err = json.Marshal(old); err != nil {
			return Change{}, fmt.Errorf("encode old snapshot: %w", err)
		}
	}
	if new != nil {
		if c.New, err = json.Marshal(new); err != nil {
			return Change{}, fmt.Errorf("encode new snapshot: %w", err)
		}
	}
	return c, nil
}

// DecodeOld unmarshals the old snapshot into dst. It reports false when there is none.
func (c Change) DecodeOld(dst any) (bool, error) {
	return decodeSnapshot(c.Old, dst)
}

// DecodeNew unmarshals the new snapshot into dst. It reports false when there is none.
func (c Change) DecodeNew(dst any) (bool, error) {
	return decodeSnapshot(c.New, dst)
}

func decodeSnapshot(raw json.RawMessage, dst any) (bool, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Entry is one append-only audit record.
type Entry struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id,omitempty"`
	ActorID        string    `json:"user_id,omitempty"`
	Action         string    `json:"action"`
	ResourceType   string    `json:"resource_type"`
	ResourceID     string    `json:"resource_id,omitempty"`
	Change         Change    `json:"change"`
	IPAddress      string    `json:"ip_address,omitempty"`
	UserAgent      string    `json:"user_agent,omitempty"`
	OccurredAt     time.Time `json:"timestamp"`
}

// Filter selects audit entries. Action matches as a case-insensitive substring,
// ResourceType and ActorID match exactly.
type Filter struct {
	OrganizationID string
	Action         string
	ResourceType   string
	ActorID        string
	Page           int
	PerPage        int
}

// Normalize applies paging defaults and bounds.
func (f Filter) Normalize() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = defaultPerPage
	}
	if f.PerPage > maxPerPage {
		f.PerPage = maxPerPage
	}
	return f
}

// Offset is the number of rows to skip for the filter's page.
func (f Filter) Offset() int {
	f = f.Normalize()
	return (f.Page - 1) * f.PerPage
}

// Page is one page of entries, newest first.
type Page struct {
	Items      []Entry `json:"logs"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	PerPage    int     `json:"per_page"`
	TotalPages int     `json:"total_pages"`
}

// NewPage assembles a page for a normalized filter.
func NewPage(items []Entry, total int, f Filter) Page {
	f = f.Normalize()
	if items == nil {
		items = []Entry{}
	}
	pages := 0
	if total > 0 {
		pages = (total + f.PerPage - 1) / f.PerPage
	}
	return Page{Items: items, Total: total, Page: f.Page, PerPage: f.PerPage, TotalPages: pages}
}

// Store persists audit entries. Entries are never updated or deleted.
type Store interface {
	AppendAudit(ctx context.Context, entry Entry) error
	QueryAudit(ctx context.Context, filter Filter) (Page, error)
}
