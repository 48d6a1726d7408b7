package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeAfterFiresOnAdvance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFake(start)

	ch := c.After(10 * time.Second)
	c.Advance(9 * time.Second)
	select {
	case <-ch:
		t.Fatal("fired early")
	default:
	}

	c.Advance(time.Second)
	select {
	case got := <-ch:
		assert.Equal(t, start.Add(10*time.Second), got)
	default:
		t.Fatal("did not fire")
	}
	assert.Equal(t, 0, c.Waiters())
}

func TestFakeAfterFuncStop(t *testing.T) {
	c := NewFake(time.Now())
	fired := false

	timer := c.AfterFunc(time.Hour, func() { fired = true })
	assert.Equal(t, 1, c.Waiters())
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	c.Advance(2 * time.Hour)
	assert.False(t, fired)
}

func TestFakeZeroDurationFiresImmediately(t *testing.T) {
	c := NewFake(time.Now())
	select {
	case <-c.After(0):
	default:
		t.Fatal("zero duration should fire at once")
	}
}
