package core

import (
	"context"
	"database/sql"
)

type (
	DBExecutor interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}

	DB interface {
		DBExecutor

		BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error)
		PingContext(ctx context.Context) error
	}

	DBTransactor interface {
		DBExecutor

		Commit() error
		Rollback() error
	}

	// Transactor runs a unit of work atomically.
	// fn receives the executor repositories must use to join the transaction;
	// the transaction commits when fn returns nil and rolls back otherwise.
	Transactor interface {
		RunInTx(ctx context.Context, fn func(ctx context.Context, exec DBExecutor) error) error
	}
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Pagination is a 1-based page window.
type Pagination struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

// NewPagination clamps page to >= 1 and size to [1, MaxPageSize]; a zero size means DefaultPageSize.
func NewPagination(page, size int) Pagination {
	if page < 1 {
		page = 1
	}
	switch {
	case size == 0:
		size = DefaultPageSize
	case size < 1:
		size = 1
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return Pagination{Page: page, Size: size}
}

func (p Pagination) Limit() int  { return p.Size }
func (p Pagination) Offset() int { return (p.Page - 1) * p.Size }
