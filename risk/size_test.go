package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBudget(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 330000.0, Budget(1000000, 0.33), 1e-9)
	assert.InDelta(t, 1000000.0, Budget(1000000, 1.0), 1e-9)
	assert.Zero(t, Budget(0, 0.33))
	assert.Zero(t, Budget(-500, 0.33))
	assert.Zero(t, Budget(1000000, 0))
}

func TestQuantity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		budget float64
		price  int64
		want   int64
	}{
		{"three shares", 1000000, 300000, 3},
		{"exact fit", 900000, 300000, 3},
		{"below one share", 100, 300, 0},
		{"zero budget", 0, 300, 0},
		{"zero price", 1000000, 0, 0},
		{"negative price", 1000000, -1, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Quantity(tt.budget, tt.price))
		})
	}
}
