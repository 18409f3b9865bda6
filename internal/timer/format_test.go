package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatClock(t *testing.T) {
	tests := []struct {
		seconds  int
		expected string
	}{
		{0, "0:00"},
		{9, "0:09"},
		{60, "1:00"},
		{25 * 60, "25:00"},
		{3599, "59:59"},
		{3600, "1:00:00"},
		{3600 + 65, "1:01:05"},
		{-3, "0:00"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatClock(tt.seconds), "seconds=%d", tt.seconds)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45m", FormatDuration(45))
	assert.Equal(t, "1h", FormatDuration(60))
	assert.Equal(t, "1h 30m", FormatDuration(90))
	assert.Equal(t, "2h", FormatDuration(120))
}

func TestManualTicker_StopsDelivery(t *testing.T) {
	ticker := NewManualTicker()
	received := make(chan time.Time, 1)
	go func() {
		received <- <-ticker.C()
	}()

	assert.True(t, ticker.Tick())
	<-received

	ticker.Stop()
	ticker.Stop()
	assert.True(t, ticker.Stopped())
	assert.False(t, ticker.Tick())
	assert.Equal(t, 0, ticker.TickN(3))
}
