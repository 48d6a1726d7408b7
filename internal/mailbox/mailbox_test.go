package mailbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestWins(t *testing.T) {
	m := New[int]()
	assert.False(t, m.Put(1))
	assert.True(t, m.Put(2))
	assert.True(t, m.Put(3))
	assert.True(t, m.Pending())

	v, err := m.Take(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	assert.False(t, m.Pending())
	assert.Nil(t, m.TryTake())
}

func TestTakeBlocksUntilPut(t *testing.T) {
	m := New[string]()
	got := make(chan string)
	go func() {
		v, err := m.Take(context.Background())
		if err == nil {
			got <- v
		}
	}()

	select {
	case <-got:
		t.Fatal("take returned on an empty mailbox")
	case <-time.After(20 * time.Millisecond):
	}

	m.Put("changed")
	select {
	case v := <-got:
		assert.Equal(t, "changed", v)
	case <-time.After(time.Second):
		t.Fatal("take did not wake up")
	}
}

func TestTakeHonoursContext(t *testing.T) {
	m := New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := m.Take(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStaleSignalDoesNotReturnEmpty(t *testing.T) {
	m := New[int]()
	m.Put(1)
	require.NotNil(t, m.TryTake())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := m.Take(ctx)
	assert.Error(t, err)
}
