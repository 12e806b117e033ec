package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatches(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	tests := []struct {
		name string
		size int
		want [][]int
	}{
		{"size 3", 3, [][]int{{1, 2, 3}, {4, 5, 6}, {7}}},
		{"size 1", 1, [][]int{{1}, {2}, {3}, {4}, {5}, {6}, {7}}},
		{"exact size", 7, [][]int{items}},
		{"larger than input", 32, [][]int{items}},
		{"non-positive size means one batch", 0, [][]int{items}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Batches(items, tt.size))
		})
	}
}

func TestBatches_Empty(t *testing.T) {
	assert.Nil(t, Batches([]string{}, 4))
	assert.Nil(t, Batches[string](nil, 4))
}

func TestBatches_AppendDoesNotClobberNextBatch(t *testing.T) {
	items := []int{1, 2, 3, 4}
	batches := Batches(items, 2)

	_ = append(batches[0], 99)
	assert.Equal(t, []int{3, 4}, batches[1])
}
