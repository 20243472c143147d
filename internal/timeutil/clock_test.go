package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestMockClock_NowAndSince(t *testing.T) {
	c := NewMockClock(epoch)
	assert.Equal(t, epoch, c.Now())

	c.Advance(90 * time.Second)
	assert.Equal(t, 90*time.Second, c.Since(epoch))

	c.Set(epoch)
	assert.Zero(t, c.Since(epoch))
}

func TestMockTicker_FiresOnAdvance(t *testing.T) {
	c := NewMockClock(epoch)
	tk := c.NewTicker(time.Minute)

	c.Advance(30 * time.Second)
	select {
	case <-tk.C():
		t.Fatal("ticker fired early")
	default:
	}

	c.Advance(30 * time.Second)
	select {
	case got := <-tk.C():
		assert.Equal(t, epoch.Add(time.Minute), got)
	default:
		t.Fatal("ticker did not fire")
	}
}

func TestMockTicker_StopAndTrigger(t *testing.T) {
	c := NewMockClock(epoch)
	tk := c.NewTicker(time.Second)
	require.Len(t, c.Tickers(), 1)

	tk.Stop()
	assert.True(t, c.Tickers()[0].Stopped())
	c.Advance(time.Hour)
	select {
	case <-tk.C():
		t.Fatal("stopped ticker fired")
	default:
	}

	c.Tickers()[0].Trigger(epoch)
	assert.Equal(t, epoch, <-tk.C())
}

func TestRealClock(t *testing.T) {
	var c Clock = RealClock{}
	start := c.Now()
	assert.GreaterOrEqual(t, c.Since(start), time.Duration(0))

	tk := c.NewTicker(time.Millisecond)
	defer tk.Stop()
	select {
	case <-tk.C():
	case <-time.After(time.Second):
		t.Fatal("real ticker did not fire")
	}
}
