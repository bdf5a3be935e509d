package store

import "context"

// Table 绑定 Adapter + 表名，供资源层使用
type Table[T any] struct {
	a    *Adapter
	name string
}

func Bind[T any](a *Adapter, table string) *Table[T] { return &Table[T]{a: a, name: table} }

func (t *Table[T]) Name() string { return t.name }

func (t *Table[T]) List(ctx context.Context, opts ListOptions) ([]T, error) {
	return GetAll[T](ctx, t.a, t.name, opts)
}

func (t *Table[T]) Get(ctx context.Context, id string) (*T, error) {
	return GetByID[T](ctx, t.a, t.name, ByID(id))
}

func (t *Table[T]) Find(ctx context.Context, key Key) (*T, error) {
	return GetByID[T](ctx, t.a, t.name, key)
}

func (t *Table[T]) Create(ctx context.Context, rec *T) (*T, error) {
	return Create[T](ctx, t.a, t.name, rec)
}

func (t *Table[T]) Update(ctx context.Context, id string, patch map[string]any) (*T, error) {
	return Update[T](ctx, t.a, t.name, ByID(id), patch)
}

func (t *Table[T]) Remove(ctx context.Context, id string) error {
	return Remove(ctx, t.a, t.name, ByID(id))
}

func (t *Table[T]) HardDelete(ctx context.Context, id string) error {
	return HardDelete[T](ctx, t.a, t.name, ByID(id))
}
