package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		raw          string
		count        int64
		perPage      int
		wantNumber   int
		wantNumPages int
		wantOffset   int
	}{
		{"missing page", "", 25, 10, 1, 3, 0},
		{"second page", "2", 25, 10, 2, 3, 10},
		{"last partial page", "3", 25, 10, 3, 3, 20},
		{"past the end clamps", "99", 25, 10, 3, 3, 20},
		{"non-integer", "abc", 25, 10, 1, 3, 0},
		{"zero", "0", 25, 10, 1, 3, 0},
		{"negative", "-4", 25, 10, 1, 3, 0},
		{"exact multiple", "2", 20, 10, 2, 2, 10},
		{"empty result", "5", 0, 10, 1, 1, 0},
		{"whitespace", " 2 ", 25, 10, 2, 3, 10},
		{"overflowing number", "99999999999999999999", 25, 10, 3, 3, 20},
		{"overflowing with plus sign", "+99999999999999999999", 25, 10, 3, 3, 20},
		{"overflowing negative", "-99999999999999999999", 25, 10, 1, 3, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := Resolve(tt.raw, tt.count, tt.perPage)
			assert.Equal(t, tt.wantNumber, w.Number)
			assert.Equal(t, tt.wantNumPages, w.NumPages)
			assert.Equal(t, tt.wantOffset, w.Offset())
			assert.Equal(t, tt.perPage, w.Limit())
		})
	}
}

func TestNewPage_Navigation(t *testing.T) {
	t.Parallel()

	middle := NewPage(Resolve("2", 25, 10), []string{"a"})
	assert.True(t, middle.HasNext)
	assert.True(t, middle.HasPrevious)
	require.NotNil(t, middle.NextPageNumber)
	require.NotNil(t, middle.PreviousPageNumber)
	assert.Equal(t, 3, *middle.NextPageNumber)
	assert.Equal(t, 1, *middle.PreviousPageNumber)

	empty := NewPage[string](Resolve("", 0, 10), nil)
	assert.Equal(t, 1, empty.Number)
	assert.Equal(t, 1, empty.NumPages)
	assert.False(t, empty.HasNext)
	assert.False(t, empty.HasPrevious)
	assert.Nil(t, empty.NextPageNumber)
	assert.NotNil(t, empty.Items)
	assert.Empty(t, empty.Items)
}
