package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewClock_StartsAtEpoch(t *testing.T) {
	c := NewClock()
	assert.True(t, c.Now().Equal(Epoch))
}

func TestNewClock_AdvancesOneMillisecond(t *testing.T) {
	c := NewClock()
	first := c.Now()
	second := c.Now()
	assert.Equal(t, time.Millisecond, second.Sub(first))
}

func TestNewClock_Independent(t *testing.T) {
	a := NewClock()
	b := NewClock()
	a.Now()
	a.Now()
	assert.True(t, b.Now().Equal(Epoch), "clocks must not share state")
}

func TestEpochMillis(t *testing.T) {
	assert.Equal(t, uint64(1704067200000), EpochMillis)
}
