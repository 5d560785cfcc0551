package realtime

import (
	"context"
	"sync"
)

// MemoryFeed 进程内推送源：Publish 的事件广播给所有订阅者。
// 未连接后端时作为空推送源使用，测试中用于模拟变更。
type MemoryFeed struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	buffer int
}

// NewMemoryFeed 创建进程内推送源
func NewMemoryFeed(buffer int) *MemoryFeed {
	if buffer <= 0 {
		buffer = 16
	}
	return &MemoryFeed{subs: make(map[int]chan Event), buffer: buffer}
}

// Subscribe 实现 Feed
func (f *MemoryFeed) Subscribe(ctx context.Context, tables ...string) (*Subscription, error) {
	in := make(chan Event, f.buffer)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = in
	f.mu.Unlock()

	unregister := func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}

	pump := func(ctx context.Context, emit func(Event) bool) {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-in:
				if !emit(ev) {
					return
				}
			}
		}
	}
	return newSubscription(ctx, f.buffer, tables, pump, unregister), nil
}

// Publish 广播事件，返回接收到事件的订阅数
func (f *MemoryFeed) Publish(ev Event) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, ch := range f.subs {
		select {
		case ch <- ev:
			n++
		default:
		}
	}
	return n
}

// Subscribers 当前订阅数
func (f *MemoryFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
