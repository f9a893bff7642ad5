package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/hocba/core"
	"github.com/trezcool/hocba/core/audit"
	"github.com/trezcool/hocba/core/user"
	"github.com/trezcool/hocba/core/warning"
)

type (
	// DB is an in-memory store with the same contracts as the postgres repositories.
	// Transactions are serialized and roll back by undoing the rows they wrote.
	DB struct {
		tx sync.Mutex

		rule     *ruleTable
		wcase    *caseTable
		setting  *settingTable
		audit    *auditTable
		user     *userTable
		registry *registryTables
	}

	ruleTable struct {
		sync.RWMutex
		table map[int]warning.Rule
		pk    int
	}

	caseTable struct {
		sync.RWMutex
		table map[int]warning.Case
		pk    int
	}

	settingTable struct {
		sync.RWMutex
		table map[string]string
	}

	auditTable struct {
		sync.RWMutex
		table []audit.Entry
		pk    int
	}

	userTable struct {
		sync.RWMutex
		table map[string]user.User
	}
)

var _ core.Transactor = (*DB)(nil)

func Open() *DB {
	return &DB{
		rule:     &ruleTable{table: make(map[int]warning.Rule)},
		wcase:    &caseTable{table: make(map[int]warning.Case)},
		setting:  &settingTable{table: make(map[string]string)},
		audit:    &auditTable{},
		user:     &userTable{table: make(map[string]user.User)},
		registry: newRegistryTables(),
	}
}

type txKey struct{}

// txLog holds the undo steps of the writes made inside one transaction.
type txLog struct {
	mu   sync.Mutex
	undo []func()
}

// recordUndo registers undo with the transaction carried by ctx, if any.
// Writes made outside a transaction are never undone.
func recordUndo(ctx context.Context, undo func()) {
	if log, ok := ctx.Value(txKey{}).(*txLog); ok {
		log.mu.Lock()
		log.undo = append(log.undo, undo)
		log.mu.Unlock()
	}
}

// RunInTx runs fn with a nil executor; the in-memory repositories ignore it.
// When fn fails, the rule, case and setting rows fn wrote are reverted, newest first.
// Rows written concurrently outside the transaction are left as they are.
func (db *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, exec core.DBExecutor) error) error {
	db.tx.Lock()
	defer db.tx.Unlock()

	log := new(txLog)
	if err := fn(context.WithValue(ctx, txKey{}, log), nil); err != nil {
		log.mu.Lock()
		defer log.mu.Unlock()
		for i := len(log.undo) - 1; i >= 0; i-- {
			log.undo[i]()
		}
		return err
	}
	return nil
}

func (t *ruleTable) restore(id int, orig warning.Rule, existed bool) func() {
	return func() {
		t.Lock()
		defer t.Unlock()
		if existed {
			t.table[id] = orig
		} else {
			delete(t.table, id)
		}
	}
}

func (t *caseTable) restore(id int, orig warning.Case, existed bool) func() {
	return func() {
		t.Lock()
		defer t.Unlock()
		if existed {
			t.table[id] = orig
		} else {
			delete(t.table, id)
		}
	}
}

func (t *settingTable) restore(key, orig string, existed bool) func() {
	return func() {
		t.Lock()
		defer t.Unlock()
		if existed {
			t.table[key] = orig
		} else {
			delete(t.table, key)
		}
	}
}
