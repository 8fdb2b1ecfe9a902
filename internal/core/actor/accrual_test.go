package actor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSettleDelayCoversSampleGap(t *testing.T) {
	// a window's closing sample can lag the boundary by the full gap limit,
	// so settlement must wait at least that long
	assert.Equal(t, 65*time.Second, settleDelay(60))
	assert.Greater(t, settleDelay(120), 2*time.Minute)
}
