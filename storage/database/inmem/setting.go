package inmemdb

import (
	"context"

	"github.com/trezcool/hocba/core"
	"github.com/trezcool/hocba/core/setting"
)

type settingRepository struct {
	db *settingTable
}

var _ setting.Repository = (*settingRepository)(nil) // interface compliance check

func NewSettingRepository(db *DB) *settingRepository {
	return &settingRepository{db: db.setting}
}

func (repo *settingRepository) QuerySettings(_ context.Context, _ ...core.DBExecutor) (map[string]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	values := make(map[string]string, len(repo.db.table))
	for k, v := range repo.db.table {
		values[k] = v
	}
	return values, nil
}

func (repo *settingRepository) UpsertSettings(ctx context.Context, values map[string]string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for k, v := range values {
		orig, existed := repo.db.table[k]
		repo.db.table[k] = v
		recordUndo(ctx, repo.db.restore(k, orig, existed))
	}
	return nil
}

func (repo *settingRepository) CountSettings(_ context.Context, _ ...core.DBExecutor) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return len(repo.db.table), nil
}
