package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		page, size         int
		wantPage, wantSize int
		wantOffset         int
	}{
		{page: 1, size: 20, wantPage: 1, wantSize: 20, wantOffset: 0},
		{page: 3, size: 10, wantPage: 3, wantSize: 10, wantOffset: 20},
		{page: 0, size: 0, wantPage: 1, wantSize: DefaultPageSize, wantOffset: 0},
		{page: -4, size: -1, wantPage: 1, wantSize: 1, wantOffset: 0},
		{page: 2, size: 500, wantPage: 2, wantSize: MaxPageSize, wantOffset: MaxPageSize},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%d/%d", tc.page, tc.size), func(t *testing.T) {
			p := NewPagination(tc.page, tc.size)
			assert.Equal(t, tc.wantPage, p.Page)
			assert.Equal(t, tc.wantSize, p.Limit())
			assert.Equal(t, tc.wantOffset, p.Offset())
		})
	}
}
