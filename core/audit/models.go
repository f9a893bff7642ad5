package audit

import (
	"context"
	"time"
)

const (
	MaxRecent = 50
)

// Entry is one audit-log line: who did what, from where, and what it touched.
type Entry struct {
	ID            int       `json:"id"`
	At            time.Time `json:"at"` // UTC
	Actor         string    `json:"actor"`
	Endpoint      string    `json:"endpoint"`
	Action        string    `json:"action"`
	RequestID     string    `json:"request_id"`
	Params        string    `json:"params"`
	Summary       string    `json:"summary"` // JSON
	AffectedTable string    `json:"affected_table"`
}

// RequestInfo describes the caller of an operation.
type RequestInfo struct {
	Actor     string
	Endpoint  string
	RequestID string
	Params    string
}

type ctxKey struct{}

// WithRequestInfo attaches the caller description to ctx; Record picks it up.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, ctxKey{}, info)
}

func RequestInfoFrom(ctx context.Context) (RequestInfo, bool) {
	info, ok := ctx.Value(ctxKey{}).(RequestInfo)
	return info, ok
}
