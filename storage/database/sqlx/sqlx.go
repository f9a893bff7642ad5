package sqlxrepos

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/hocba/core"
)

const uniqueViolation = "23505"

// getExec returns the caller's transaction when one is given, db otherwise.
func getExec(db *sqlx.DB, svcExec []core.DBExecutor) sqlx.ExtContext {
	if len(svcExec) > 0 && svcExec[0] != nil {
		ext, ok := svcExec[0].(sqlx.ExtContext)
		if !ok {
			panic(fmt.Sprintf("sqlxrepos: executor %T does not implement sqlx.ExtContext", svcExec[0]))
		}
		return ext
	}
	return db
}

// isUniqueViolation works for both lib/pq and pgx errors.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}
