package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		page        int
		perPage     int
		wantPage    int
		wantPerPage int
	}{
		{"defaults", 0, 0, DefaultPage, DefaultPerPage},
		{"negative page", -3, 10, DefaultPage, 10},
		{"over the cap", 2, 500, 2, MaxPerPage},
		{"in bounds", 3, 50, 3, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.page, tt.perPage)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantPerPage, p.PerPage)
		})
	}
}

func TestOffset(t *testing.T) {
	p := New(3, 25)
	assert.Equal(t, 50, p.Offset())
	assert.Equal(t, 25, p.Limit())
}

func TestNewResult(t *testing.T) {
	t.Run("rounds total pages up", func(t *testing.T) {
		r := NewResult([]int{1, 2, 3}, 101, New(1, 25))
		assert.Equal(t, 5, r.TotalPages)
		assert.Equal(t, int64(101), r.Total)
	})

	t.Run("empty result", func(t *testing.T) {
		r := NewResult([]int(nil), 0, New(1, 25))
		assert.Zero(t, r.TotalPages)
	})
}
