// Package observer 显式的订阅/退订列表，替代全局监听器切片。
package observer

import "sync"

type List[T any] struct {
	mu   sync.RWMutex
	next uint64
	subs map[uint64]func(T)
	// 保证通知顺序与订阅顺序一致
	order []uint64
}

// Subscribe 返回的退订函数可重复调用
func (l *List[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	l.mu.Lock()
	if l.subs == nil {
		l.subs = map[uint64]func(T){}
	}
	l.next++
	id := l.next
	l.subs[id] = fn
	l.order = append(l.order, id)
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.subs, id)
			for i, v := range l.order {
				if v == id {
					l.order = append(l.order[:i], l.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Notify 在锁外回调，回调里可以安全地订阅 / 退订
func (l *List[T]) Notify(v T) {
	l.mu.RLock()
	fns := make([]func(T), 0, len(l.order))
	for _, id := range l.order {
		fns = append(fns, l.subs[id])
	}
	l.mu.RUnlock()
	for _, fn := range fns {
		fn(v)
	}
}

func (l *List[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}
