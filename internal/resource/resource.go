// Package resource 把某个实体类型绑定到记录存储，向使用方暴露 data / loading / error 状态。
//
// 资源层的操作从不向调用方返回错误：失败会写进 State.Err，调用方按状态渲染。
// 写操作成功后整表刷新（不做本地乐观插入），所以 Data 总是服务端合并后的结果。
package resource

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"clinic-manager/internal/core/observer"
	"clinic-manager/internal/store"
)

// Backend 资源背后的存储；store.Table 与 client.Records 都实现它
type Backend[T any] interface {
	List(ctx context.Context, opts store.ListOptions) ([]T, error)
	Get(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, rec *T) (*T, error)
	Update(ctx context.Context, id string, patch map[string]any) (*T, error)
	Remove(ctx context.Context, id string) error
}

type Config struct {
	Name    string
	OrderBy string // 自然日期列，列表按它倒序
}

type State[T any] struct {
	Data    []T
	Loading bool
	Err     string
}

type Resource[T any] struct {
	cfg     Config
	backend Backend[T]
	log     *zap.Logger

	mu     sync.Mutex
	state  State[T]
	seq    uint64 // 最近一次发起的 fetch 序号
	closed bool

	mount sync.Once
	obs   observer.List[State[T]]
}

func New[T any](b Backend[T], cfg Config, l *zap.Logger) *Resource[T] {
	if l == nil {
		l = zap.NewNop()
	}
	return &Resource[T]{
		cfg:     cfg,
		backend: b,
		log:     l.With(zap.String("resource", cfg.Name)),
		state:   State[T]{Data: []T{}},
	}
}

func (r *Resource[T]) Name() string { return r.cfg.Name }

// Use 首次使用时自动拉一次列表，返回当前状态
func (r *Resource[T]) Use(ctx context.Context) State[T] {
	r.ensureMounted(ctx)
	return r.State()
}

// State 只读快照，不触发加载
func (r *Resource[T]) State() State[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Resource[T]) Subscribe(fn func(State[T])) (unsubscribe func()) { return r.obs.Subscribe(fn) }

// Close 之后到达的响应全部丢弃
func (r *Resource[T]) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

func (r *Resource[T]) snapshotLocked() State[T] {
	s := r.state
	s.Data = append(make([]T, 0, len(r.state.Data)), r.state.Data...)
	return s
}

func (r *Resource[T]) ensureMounted(ctx context.Context) {
	r.mount.Do(func() { r.fetch(ctx) })
}

// update 在锁内修改状态，锁外通知订阅者
func (r *Resource[T]) update(fn func(s *State[T])) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	fn(&r.state)
	snap := r.snapshotLocked()
	r.mu.Unlock()
	r.obs.Notify(snap)
}

func (r *Resource[T]) setErr(err error) {
	r.log.Warn("resource operation failed", zap.Error(err))
	r.update(func(s *State[T]) { s.Err = err.Error() })
}

// FetchData 拉取 active 记录；失败时保留旧数据
func (r *Resource[T]) FetchData(ctx context.Context) {
	r.mount.Do(func() {})
	r.fetch(ctx)
}

func (r *Resource[T]) fetch(ctx context.Context) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.seq++
	my := r.seq
	r.state.Loading = true
	snap := r.snapshotLocked()
	r.mu.Unlock()
	r.obs.Notify(snap)

	// 没有 active 列的表由存储层按启动时的能力表跳过过滤，这里不需要兜底重试
	rows, err := r.backend.List(ctx, store.ListOptions{OrderBy: r.cfg.OrderBy, Descending: true})

	r.mu.Lock()
	if r.closed || my != r.seq {
		r.mu.Unlock()
		r.log.Debug("stale fetch discarded", zap.Uint64("seq", my))
		return
	}
	r.state.Loading = false
	if err != nil {
		r.state.Err = err.Error()
	} else {
		r.state.Data = rows
		r.state.Err = ""
	}
	snap = r.snapshotLocked()
	r.mu.Unlock()

	if err != nil {
		r.log.Warn("fetch failed", zap.Error(err))
	}
	r.obs.Notify(snap)
}

// GetItem 不存在时返回 nil 且不记错误（空状态）
func (r *Resource[T]) GetItem(ctx context.Context, id string) *T {
	r.ensureMounted(ctx)
	item, err := r.backend.Get(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		r.setErr(err)
		return nil
	}
	return item
}

func (r *Resource[T]) CreateItem(ctx context.Context, item T) *T {
	r.ensureMounted(ctx)
	store.ResetServerFields(&item)
	created, err := r.backend.Create(ctx, &item)
	if err != nil {
		r.setErr(err)
		return nil
	}
	r.fetch(ctx)
	return created
}

func (r *Resource[T]) UpdateItem(ctx context.Context, id string, patch map[string]any) *T {
	r.ensureMounted(ctx)
	updated, err := r.backend.Update(ctx, id, patch)
	if err != nil {
		r.setErr(err)
		return nil
	}
	r.fetch(ctx)
	return updated
}

func (r *Resource[T]) DeleteItem(ctx context.Context, id string) bool {
	r.ensureMounted(ctx)
	if err := r.backend.Remove(ctx, id); err != nil {
		r.setErr(err)
		return false
	}
	r.fetch(ctx)
	return true
}

func (r *Resource[T]) ClearError() {
	r.update(func(s *State[T]) { s.Err = "" })
}
