package audit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/josemwas/HR-management/internal/ids"
	"github.com/josemwas/HR-management/internal/obs"
)

// Publisher receives every entry after it has been stored.
type Publisher interface {
	Publish(ctx context.Context, entry Entry) error
}

// Recorder appends audit entries on behalf of mutating operations.
//
// Record never fails the caller: a store error is logged and counted in
// audit_write_failures_total, and publishing is best-effort.
type Recorder struct {
	store     Store
	publisher Publisher
	now       func() time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithPublisher fans stored entries out to p.
func WithPublisher(p Publisher) Option {
	return func(r *Recorder) {
		r.publisher = p
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRecorder builds a Recorder writing to store.
func NewRecorder(store Store, opts ...Option) (*Recorder, error) {
	if store == nil {
		return nil, errors.New("audit store is required")
	}
	r := &Recorder{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Record stores one entry. ID, timestamp and request metadata are filled in here.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if r == nil {
		return
	}
	entry.Action = strings.TrimSpace(entry.Action)
	entry.ResourceType = strings.TrimSpace(entry.ResourceType)
	if entry.Action == "" || entry.ResourceType == "" {
		obs.Logger().Error().
			Str("action", entry.Action).
			Str("resource_type", entry.ResourceType).
			Msg("audit entry missing action or resource type")
		obs.AuditWriteFailed(entry.Action)
		return
	}
	entry.ID = ids.New()
	entry.OccurredAt = r.now()

	var requestID string
	if meta, ok := RequestFromContext(ctx); ok {
		requestID = meta.RequestID
		if entry.IPAddress == "" {
			entry.IPAddress = meta.IPAddress
		}
		if entry.UserAgent == "" {
			entry.UserAgent = meta.UserAgent
		}
	}

	if err := r.store.AppendAudit(ctx, entry); err != nil {
		obs.Logger().Error().
			Err(err).
			Str("request_id", requestID).
			Str("action", entry.Action).
			Str("resource_type", entry.ResourceType).
			Str("resource_id", entry.ResourceID).
			Msg("audit write failed")
		obs.AuditWriteFailed(entry.Action)
		return
	}

	obs.Logger().Debug().
		Str("request_id", requestID).
		Str("audit_id", entry.ID).
		Str("action", entry.Action).
		Str("resource_type", entry.ResourceType).
		Str("resource_id", entry.ResourceID).
		Str("user_id", entry.ActorID).
		Msg("audit recorded")

	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, entry); err != nil {
		obs.Logger().Warn().
			Err(err).
			Str("audit_id", entry.ID).
			Str("action", entry.Action).
			Msg("audit publish failed")
	}
}

// Query returns a page of entries matching filter.
func (r *Recorder) Query(ctx context.Context, filter Filter) (Page, error) {
	return r.store.QueryAudit(ctx, filter.Normalize())
}
