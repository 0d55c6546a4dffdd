package audit

import (
	"context"
	"strings"
)

// RequestMeta is the request information stamped on every entry recorded while serving it.
type RequestMeta struct {
	RequestID string
	IPAddress string
	UserAgent string
}

type requestMetaKey struct{}

// WithRequest attaches request metadata to the context.
func WithRequest(ctx context.Context, meta RequestMeta) context.Context {
	meta.RequestID = strings.TrimSpace(meta.RequestID)
	meta.IPAddress = strings.TrimSpace(meta.IPAddress)
	meta.UserAgent = strings.TrimSpace(meta.UserAgent)
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestFromContext returns the metadata attached by WithRequest, if any.
func RequestFromContext(ctx context.Context) (RequestMeta, bool) {
	if ctx == nil {
		return RequestMeta{}, false
	}
	meta, ok := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta, ok
}
