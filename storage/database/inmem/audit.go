package inmemdb

import (
	"context"

	"github.com/trezcool/hocba/core"
	"github.com/trezcool/hocba/core/audit"
)

type auditRepository struct {
	db *auditTable
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db *DB) *auditRepository {
	return &auditRepository{db: db.audit}
}

func (repo *auditRepository) CreateEntry(_ context.Context, entry audit.Entry, _ ...core.DBExecutor) (audit.Entry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.pk++
	entry.ID = repo.db.pk
	repo.db.table = append(repo.db.table, entry)
	return entry, nil
}

func (repo *auditRepository) QueryRecentEntries(_ context.Context, limit int, _ ...core.DBExecutor) ([]audit.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	entries := make([]audit.Entry, 0, limit)
	for i := len(repo.db.table) - 1; i >= 0 && len(entries) < limit; i-- {
		entries = append(entries, repo.db.table[i])
	}
	return entries, nil
}
