package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelay(t *testing.T) {
	base := time.Second
	max := 30 * time.Second

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second}, // 32s capped
		{6, 30 * time.Second},
		{20, 30 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, backoffDelay(base, max, tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestBackoffDelayBaseAboveMax(t *testing.T) {
	assert.Equal(t, time.Second, backoffDelay(5*time.Second, time.Second, 0))
	assert.Equal(t, time.Second, backoffDelay(5*time.Second, time.Second, 3))
}
