package service

import (
	"sync"

	"project-tracker/internal/model"
)

// keyedMutex 按复合键串行化，键空闲后回收
type keyedMutex struct {
	mu    sync.Mutex
	locks map[model.StateKey]*refLock
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[model.StateKey]*refLock)}
}

// Lock 获取 key 的锁，返回解锁函数
func (k *keyedMutex) Lock(key model.StateKey) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
