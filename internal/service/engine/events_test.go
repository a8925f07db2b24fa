package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBusPublishNeverBlocks(t *testing.T) {
	t.Parallel()
	bus := NewEventBus(2)

	// 没有消费者也要能一直发，缓冲满后丢弃并计数
	for i := 0; i < 5; i++ {
		bus.Publish(EventInfo, 1, "event %d", i)
	}
	assert.EqualValues(t, 3, bus.Dropped())

	// 留下的是最早的两条，同一发布方内有序
	ev := <-bus.Events()
	assert.Equal(t, "event 0", ev.Message)
	assert.Equal(t, int64(1), ev.AccountId)
	assert.Equal(t, EventInfo, ev.Level)
	assert.False(t, ev.Time.IsZero())

	ev = <-bus.Events()
	assert.Equal(t, "event 1", ev.Message)
}

func TestEventBusFormatsMessage(t *testing.T) {
	t.Parallel()
	bus := NewEventBus(8)
	bus.Publish(EventError, 7, "order rejected: %s %s", "LONG", "EURUSD")

	ev := <-bus.Events()
	assert.Equal(t, "order rejected: LONG EURUSD", ev.Message)
	assert.Equal(t, EventError, ev.Level)
	assert.Equal(t, int64(7), ev.AccountId)
}

func TestEventBusNilSafe(t *testing.T) {
	t.Parallel()
	var bus *EventBus
	// 不带事件总线跑引擎也不能崩
	assert.NotPanics(t, func() {
		bus.Publish(EventInfo, 1, "ignored")
	})
}

func TestEventBusDefaultBuffer(t *testing.T) {
	t.Parallel()
	bus := NewEventBus(0)
	for i := 0; i < 256; i++ {
		bus.Publish(EventInfo, 0, fmt.Sprintf("event %d", i))
	}
	require.EqualValues(t, 0, bus.Dropped())
	bus.Publish(EventInfo, 0, "overflow")
	assert.EqualValues(t, 1, bus.Dropped())
}
