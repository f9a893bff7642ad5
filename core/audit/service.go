package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/hocba/core"
)

type (
	Repository interface {
		CreateEntry(ctx context.Context, entry Entry, exec ...core.DBExecutor) (Entry, error)
		// QueryRecentEntries returns at most limit entries, newest first.
		QueryRecentEntries(ctx context.Context, limit int, exec ...core.DBExecutor) ([]Entry, error)
	}

	// Recorder is the write side consumed by the other services.
	Recorder interface {
		Record(ctx context.Context, action string, summary interface{}, affectedTable string)
	}

	ServiceInterface interface {
		Recorder
		Recent(ctx context.Context, limit int) ([]Entry, error)
	}

	Service struct {
		repo    Repository
		logger  core.Logger
		nowFunc func() time.Time
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger, nowFunc: time.Now}
}

// Record writes an audit entry. It never fails the caller: errors are logged and dropped.
func (svc *Service) Record(ctx context.Context, action string, summary interface{}, affectedTable string) {
	entry := Entry{
		At:            svc.nowFunc().UTC(),
		Endpoint:      action,
		Action:        action,
		AffectedTable: affectedTable,
	}
	if info, ok := RequestInfoFrom(ctx); ok {
		entry.Actor = info.Actor
		entry.RequestID = info.RequestID
		entry.Params = info.Params
		if info.Endpoint != "" {
			entry.Endpoint = info.Endpoint
		}
	}
	if summary != nil {
		data, err := json.Marshal(summary)
		if err != nil {
			data = []byte(fmt.Sprintf("%q", fmt.Sprint(summary)))
		}
		entry.Summary = string(data)
	}

	if _, err := svc.repo.CreateEntry(ctx, entry); err != nil {
		svc.logger.Error(fmt.Sprintf("recording audit entry %q", action), errors.Wrap(err, "creating audit entry"))
	}
}

// Recent lists the latest entries, newest first. limit is clamped to [1, MaxRecent].
func (svc *Service) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit < 1 || limit > MaxRecent {
		limit = MaxRecent
	}
	entries, err := svc.repo.QueryRecentEntries(ctx, limit)
	if err != nil {
		return nil, core.NewPersistenceFailure("querying audit entries", err)
	}
	return entries, nil
}
