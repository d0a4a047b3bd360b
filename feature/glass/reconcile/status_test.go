package reconcile

import (
	"testing"

	"glass-tracker/feature/glass/models"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		ordered, delivered int
		want               models.GlassOrderStatus
	}{
		{0, 0, models.StatusNotOrdered},
		{0, 4, models.StatusNotOrdered},
		{5, 0, models.StatusOrdered},
		{5, 3, models.StatusPartiallyDelivered},
		{5, 5, models.StatusDelivered},
		{5, 7, models.StatusOverDelivered},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveStatus(tt.ordered, tt.delivered), "(%d,%d)", tt.ordered, tt.delivered)
	}
}

func TestDeriveStatus_Totality(t *testing.T) {
	rules := map[models.GlassOrderStatus]func(o, d int) bool{
		models.StatusNotOrdered:         func(o, d int) bool { return o == 0 },
		models.StatusOrdered:            func(o, d int) bool { return o > 0 && d == 0 },
		models.StatusPartiallyDelivered: func(o, d int) bool { return d > 0 && d < o },
		models.StatusDelivered:          func(o, d int) bool { return o > 0 && d == o },
		models.StatusOverDelivered:      func(o, d int) bool { return o > 0 && d > o },
	}

	for o := 0; o <= 12; o++ {
		for d := 0; d <= 12; d++ {
			matching := 0
			for status, rule := range rules {
				if rule(o, d) {
					matching++
					assert.Equal(t, status, DeriveStatus(o, d), "(%d,%d)", o, d)
				}
			}
			assert.Equal(t, 1, matching, "(%d,%d) must fall in exactly one status", o, d)
		}
	}
}
