package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/hocba/core"
	"github.com/trezcool/hocba/core/audit"
)

type auditRow struct {
	ID            int       `db:"id"`
	At            time.Time `db:"at"`
	Actor         string    `db:"actor"`
	Endpoint      string    `db:"endpoint"`
	Action        string    `db:"action"`
	RequestID     string    `db:"request_id"`
	Params        string    `db:"params"`
	Summary       string    `db:"summary"`
	AffectedTable string    `db:"affected_table"`
}

func (r auditRow) toEntry() audit.Entry {
	return audit.Entry{
		ID:            r.ID,
		At:            r.At.UTC(),
		Actor:         r.Actor,
		Endpoint:      r.Endpoint,
		Action:        r.Action,
		RequestID:     r.RequestID,
		Params:        r.Params,
		Summary:       r.Summary,
		AffectedTable: r.AffectedTable,
	}
}

type auditRepository struct {
	db *sqlx.DB
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db *sqlx.DB) *auditRepository {
	return &auditRepository{db: db}
}

func (repo auditRepository) CreateEntry(ctx context.Context, entry audit.Entry, exec ...core.DBExecutor) (audit.Entry, error) {
	row := auditRow{
		At:            entry.At.UTC(),
		Actor:         entry.Actor,
		Endpoint:      entry.Endpoint,
		Action:        entry.Action,
		RequestID:     entry.RequestID,
		Params:        entry.Params,
		Summary:       entry.Summary,
		AffectedTable: entry.AffectedTable,
	}
	exe := getExec(repo.db, exec)
	query, args, err := exe.BindNamed(`
		INSERT INTO import_log (at, actor, endpoint, action, request_id, params, summary, affected_table)
		VALUES (:at, :actor, :endpoint, :action, :request_id, :params, :summary, :affected_table)
		RETURNING id`, row)
	if err != nil {
		return audit.Entry{}, errors.Wrap(err, "binding audit entry")
	}

	if err = sqlx.GetContext(ctx, exe, &row.ID, query, args...); err != nil {
		return audit.Entry{}, errors.Wrap(err, "inserting audit entry")
	}
	return row.toEntry(), nil
}

func (repo auditRepository) QueryRecentEntries(ctx context.Context, limit int, exec ...core.DBExecutor) ([]audit.Entry, error) {
	var rows []auditRow
	err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &rows, `
		SELECT id, at, actor, endpoint, action, request_id, params, summary, affected_table
		FROM import_log
		ORDER BY id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying audit entries")
	}

	entries := make([]audit.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.toEntry())
	}
	return entries, nil
}
