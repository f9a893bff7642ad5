package audit_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/hocba/core"
	"github.com/trezcool/hocba/core/audit"
	inmemdb "github.com/trezcool/hocba/storage/database/inmem"
	testutil "github.com/trezcool/hocba/tests"
)

type brokenRepo struct{}

func (brokenRepo) CreateEntry(context.Context, audit.Entry, ...core.DBExecutor) (audit.Entry, error) {
	return audit.Entry{}, errors.New("disk full")
}

func (brokenRepo) QueryRecentEntries(context.Context, int, ...core.DBExecutor) ([]audit.Entry, error) {
	return nil, errors.New("disk full")
}

func TestService_Record(t *testing.T) {
	ctx := context.Background()
	svc := audit.NewService(inmemdb.NewAuditRepository(inmemdb.Open()), &testutil.Logger{})

	reqCtx := audit.WithRequestInfo(ctx, audit.RequestInfo{
		Actor:     "admin",
		Endpoint:  "POST /api/admin/warning/scan",
		RequestID: "abc",
		Params:    "class_id=K65",
	})
	svc.Record(reqCtx, "warning.scan", map[string]int{"created_cases": 2}, "warning_case")
	svc.Record(ctx, "settings.update", nil, "system_config")

	entries, err := svc.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "settings.update", entries[0].Action)
	assert.Equal(t, "settings.update", entries[0].Endpoint)
	assert.Empty(t, entries[0].Actor)
	assert.Empty(t, entries[0].Summary)

	e := entries[1]
	assert.Equal(t, "warning.scan", e.Action)
	assert.Equal(t, "POST /api/admin/warning/scan", e.Endpoint)
	assert.Equal(t, "admin", e.Actor)
	assert.Equal(t, "abc", e.RequestID)
	assert.Equal(t, "class_id=K65", e.Params)
	assert.Equal(t, "warning_case", e.AffectedTable)
	assert.JSONEq(t, `{"created_cases":2}`, e.Summary)
	assert.False(t, e.At.IsZero())
}

func TestService_Record_neverFails(t *testing.T) {
	logger := &testutil.Logger{}
	svc := audit.NewService(brokenRepo{}, logger)

	assert.NotPanics(t, func() { svc.Record(context.Background(), "warning.scan", nil, "warning_case") })
	assert.Len(t, logger.Entries("error"), 1)

	_, err := svc.Recent(context.Background(), 10)
	ferr, ok := core.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, core.KindPersistenceFailure, ferr.Kind)
}

func TestService_Recent_limit(t *testing.T) {
	ctx := context.Background()
	svc := audit.NewService(inmemdb.NewAuditRepository(inmemdb.Open()), &testutil.Logger{})
	for i := 0; i < audit.MaxRecent+5; i++ {
		svc.Record(ctx, fmt.Sprintf("action.%d", i), nil, "")
	}

	tests := []struct {
		limit int
		want  int
	}{
		{limit: 3, want: 3},
		{limit: 0, want: audit.MaxRecent},
		{limit: 500, want: audit.MaxRecent},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprint(tc.limit), func(t *testing.T) {
			entries, err := svc.Recent(ctx, tc.limit)
			require.NoError(t, err)
			assert.Len(t, entries, tc.want)
			assert.Equal(t, fmt.Sprintf("action.%d", audit.MaxRecent+4), entries[0].Action)
		})
	}
}
