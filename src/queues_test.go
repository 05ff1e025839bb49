package l1ca

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueuePushPop(t *testing.T) {
	q := NewQueue[int](2)
	q.Push(1)
	q.Push(2)
	done := make(chan struct{})
	v, ok := q.Pop(done)
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestQueueDropsOldestWhenFull(t *testing.T) {
	q := NewQueue[int](2)
	q.Push(1)
	q.Push(2)
	q.Push(3) // drops 1

	done := make(chan struct{})
	v1, _ := q.Pop(done)
	v2, _ := q.Pop(done)
	assert.Equal(t, 2, v1)
	assert.Equal(t, 3, v2)
}

func TestQueuePopReturnsFalseOnDone(t *testing.T) {
	q := NewQueue[int](1)
	done := make(chan struct{})
	close(done)
	_, ok := q.Pop(done)
	assert.False(t, ok)
}

func TestControlBusPublishAndConsume(t *testing.T) {
	bus := NewControlBus(4)
	bus.Publish(LossOfLock{ChannelID: 1, PRN: 5})
	e := <-bus.Events()
	assert.Equal(t, 1, e.ChannelID)
	assert.Equal(t, 5, e.PRN)
}
