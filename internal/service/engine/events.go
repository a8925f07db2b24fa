package engine

import (
	"fmt"
	"sync/atomic"
	"time"
)

type EventLevel string

const (
	EventInfo  EventLevel = "info"
	EventWarn  EventLevel = "warn"
	EventError EventLevel = "error"
)

// Event 面向状态展示层的一条消息
type Event struct {
	Time      time.Time
	Level     EventLevel
	AccountId int64 // 0 表示引擎级事件
	Message   string
}

// EventBus 任意 worker 并发发布、单消费者消费的事件通道
// 发布永不阻塞：缓冲满时丢弃并计数；只保证同一 worker 内的事件有序
type EventBus struct {
	ch      chan Event
	dropped atomic.Int64
}

func NewEventBus(buffer int) *EventBus {
	if buffer <= 0 {
		buffer = 256
	}
	return &EventBus{
		ch: make(chan Event, buffer),
	}
}

func (b *EventBus) Publish(level EventLevel, accountId int64, format string, args ...any) {
	if b == nil {
		return
	}
	event := Event{
		Time:      time.Now(),
		Level:     level,
		AccountId: accountId,
		Message:   fmt.Sprintf(format, args...),
	}
	select {
	case b.ch <- event:
	default:
		b.dropped.Add(1)
	}
}

func (b *EventBus) Events() <-chan Event {
	return b.ch
}

// Dropped 因缓冲满而被丢弃的事件数
func (b *EventBus) Dropped() int64 {
	return b.dropped.Load()
}
