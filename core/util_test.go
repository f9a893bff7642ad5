package core

import (
	"testing"

	"github.com/kat-co/vala"
	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{in: "hello", limit: 10, want: "hello"},
		{in: "hello", limit: 3, want: "hel"},
		{in: "điểm trung bình", limit: 4, want: "điểm"},
		{in: "hello", limit: 0, want: "hello"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, Truncate(tc.in, tc.limit))
		})
	}
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Open", CleanString("  Open\n"))
	assert.Equal(t, "open", CleanString("  Open\n", true))
}

type valueDep struct{}

func TestIsNotNil(t *testing.T) {
	var nilPtr *valueDep
	var nilIface interface{}

	tests := []struct {
		name     string
		obj      interface{}
		wantPass bool
	}{
		{name: "struct value", obj: valueDep{}, wantPass: true},
		{name: "pointer", obj: &valueDep{}, wantPass: true},
		{name: "number", obj: 3, wantPass: true},
		{name: "nil interface", obj: nilIface, wantPass: false},
		{name: "typed nil pointer", obj: nilPtr, wantPass: false},
		{name: "nil map", obj: map[string]int(nil), wantPass: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pass, msg := IsNotNil(tc.obj, "dep")()
			assert.Equal(t, tc.wantPass, pass)
			assert.Equal(t, "Parameter was nil: dep", msg)
		})
	}

	t.Run("panics through vala only when nil", func(t *testing.T) {
		assert.NotPanics(t, func() {
			vala.BeginValidation().Validate(IsNotNil(valueDep{}, "dep")).CheckAndPanic()
		})
		assert.Panics(t, func() {
			vala.BeginValidation().Validate(IsNotNil(nilPtr, "dep")).CheckAndPanic()
		})
	})
}
