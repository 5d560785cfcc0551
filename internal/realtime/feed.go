package realtime

import (
	"context"
	"sync"
)

// Feed 多路复用的变更推送源
type Feed interface {
	// Subscribe 订阅指定表的变更；tables 为空表示全部
	Subscribe(ctx context.Context, tables ...string) (*Subscription, error)
}

// Subscription 一次订阅。Events 在订阅结束后关闭。
type Subscription struct {
	events chan Event
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// pumpFunc 在独立 goroutine 中运行，向 emit 推送事件直到 ctx 结束或出错
type pumpFunc func(ctx context.Context, emit func(Event) bool)

func newSubscription(ctx context.Context, buffer int, tables []string, pump pumpFunc, onClose func()) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		events: make(chan Event, buffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	filter := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		filter[t] = struct{}{}
	}

	emit := func(ev Event) bool {
		if len(filter) > 0 {
			if _, ok := filter[ev.Table]; !ok {
				return true
			}
		}
		select {
		case sub.events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(sub.done)
		defer close(sub.events)
		if onClose != nil {
			defer onClose()
		}
		pump(ctx, emit)
	}()

	return sub
}

// Events 事件通道
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Done 订阅 goroutine 退出后关闭
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close 取消订阅并等待推送 goroutine 退出，可重复调用
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
	<-s.done
}
