package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/hocba/core"
	"github.com/trezcool/hocba/core/user"
)

func newTestLogger() (*RollbarLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := NewRollbarLogger(log.New(&buf, "TEST : ", 0), core.NewTestConfig())
	l.Enable(false)
	return l, &buf
}

func TestRollbarLogger_prepare(t *testing.T) {
	l, _ := newTestLogger()
	ferr := core.NewPersistenceFailure("inserting case", errors.New("conn reset"))
	usr := user.User{ID: "u1", Username: "officer"}

	args := l.prepare("scan failed", []interface{}{usr, ferr, usr})

	if assert.Len(t, args, 3) {
		assert.Equal(t, "scan failed", args[0])
		assert.Equal(t, map[string]interface{}{"kind": "persistence_failure", "op": "inserting case"}, args[1])
		assert.Equal(t, ferr, args[2])
	}
}

func TestRollbarLogger_print(t *testing.T) {
	l, buf := newTestLogger()
	l.Warn("invalid numeric setting", errors.New("parsing two"))

	assert.Contains(t, buf.String(), "TEST : invalid numeric setting\n")
	assert.Contains(t, buf.String(), "parsing two")
}
