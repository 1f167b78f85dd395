package util

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		page, size, from, limit int
	}{
		{page: 1, size: 10, from: 0, limit: 10},
		{page: 3, size: 5, from: 10, limit: 5},
		{page: 0, size: 0, from: 0, limit: DefaultPageSize},
		{page: -2, size: 1000, from: 0, limit: DefaultPageSize},
		{page: 2, size: MaxPageSize, from: MaxPageSize, limit: MaxPageSize},
		{page: 500, size: 20, from: 9980, limit: 20},
		{page: 501, size: 20, from: 9980, limit: 20},
		{page: math.MaxInt, size: 7, from: (MaxWindow/7 - 1) * 7, limit: 7},
	}
	for _, tt := range tests {
		from, limit := Calculate(tt.page, tt.size)
		assert.Equal(t, tt.from, from)
		assert.Equal(t, tt.limit, limit)
	}
}
