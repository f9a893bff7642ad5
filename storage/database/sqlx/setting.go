package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/hocba/core"
	"github.com/trezcool/hocba/core/setting"
)

type settingRepository struct {
	db *sqlx.DB
}

var _ setting.Repository = (*settingRepository)(nil) // interface compliance check

func NewSettingRepository(db *sqlx.DB) *settingRepository {
	return &settingRepository{db: db}
}

func (repo settingRepository) QuerySettings(ctx context.Context, exec ...core.DBExecutor) (map[string]string, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	if err := sqlx.SelectContext(ctx, getExec(repo.db, exec), &rows, "SELECT key, value FROM system_config"); err != nil {
		return nil, errors.Wrap(err, "querying settings")
	}

	values := make(map[string]string, len(rows))
	for _, r := range rows {
		values[r.Key] = r.Value
	}
	return values, nil
}

// UpsertSettings writes all values atomically, joining the caller's transaction when given.
func (repo settingRepository) UpsertSettings(ctx context.Context, values map[string]string, exec ...core.DBExecutor) error {
	upsert := func(exe sqlx.ExtContext) error {
		for key, val := range values {
			_, err := exe.ExecContext(ctx, `
				INSERT INTO system_config (key, value) VALUES ($1, $2)
				ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, key, val)
			if err != nil {
				return errors.Wrapf(err, "upserting setting %s", key)
			}
		}
		return nil
	}

	if len(exec) > 0 && exec[0] != nil {
		return upsert(getExec(repo.db, exec))
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = upsert(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing settings")
}

func (repo settingRepository) CountSettings(ctx context.Context, exec ...core.DBExecutor) (int, error) {
	var count int
	if err := sqlx.GetContext(ctx, getExec(repo.db, exec), &count, "SELECT COUNT(*) FROM system_config"); err != nil {
		return 0, errors.Wrap(err, "counting settings")
	}
	return count, nil
}
