// Package store 以表名为参数的统一记录存储：列表 / 单查 / 新建 / 合并更新 / 软删 / 物理删除。
// 其它代码不直接拼 gorm 查询。
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"clinic-manager/pkg/utils"
)

// ListOptions 默认升序、不限条数、只看 active=true
type ListOptions struct {
	Filter          map[string]any // 字段 = 值，全部 AND
	OrderBy         string
	Descending      bool
	Limit           int
	IncludeInactive bool
}

// Key 单条定位：默认按 id
type Key struct {
	Field string
	Value any
}

func ByID(id string) Key { return Key{Field: ColID, Value: id} }

func By(field string, value any) Key { return Key{Field: field, Value: value} }

type Adapter struct {
	db     *gorm.DB
	schema Schema
	log    *zap.Logger
	now    func() time.Time
	models sync.Map // gorm schema 解析缓存
}

type Option func(*Adapter)

func WithLogger(l *zap.Logger) Option { return func(a *Adapter) { a.log = l } }

// WithClock 测试里固定时间
func WithClock(now func() time.Time) Option { return func(a *Adapter) { a.now = now } }

func New(db *gorm.DB, s Schema, opts ...Option) *Adapter {
	a := &Adapter{
		db:     db,
		schema: s,
		log:    zap.NewNop(),
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *Adapter) Schema() Schema { return a.schema }

func (a *Adapter) DB() *gorm.DB { return a.db }

// columns 解析 T 的列（DBName -> Field）
func columns[T any](a *Adapter) (map[string]*schema.Field, error) {
	s, err := schema.Parse(new(T), &a.models, a.db.NamingStrategy)
	if err != nil {
		return nil, fmt.Errorf("store: parse model: %w", err)
	}
	return s.FieldsByDBName, nil
}

func column(cols map[string]*schema.Field, name string) (*schema.Field, error) {
	f, ok := cols[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return f, nil
}

func eq(name string, v any) clause.Eq { return clause.Eq{Column: clause.Column{Name: name}, Value: v} }

func wrap(op, table string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrNotFound
	}
	return fmt.Errorf("store: %s %s: %w", op, table, err)
}

// nextStamp updated_at 只增不减
func (a *Adapter) nextStamp(prev time.Time) time.Time {
	ts := a.now()
	if !ts.After(prev) {
		ts = prev.Add(time.Microsecond)
	}
	return ts
}

// GetAll 列表；无匹配返回空切片而不是 nil
func GetAll[T any](ctx context.Context, a *Adapter, table string, opts ListOptions) (out []T, err error) {
	defer a.observe(table, "get_all", time.Now(), &err)
	info, err := a.schema.Lookup(table)
	if err != nil {
		return nil, err
	}
	cols, err := columns[T](a)
	if err != nil {
		return nil, err
	}

	q := a.db.WithContext(ctx).Table(table)

	keys := make([]string, 0, len(opts.Filter))
	for k := range opts.Filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		f, err := column(cols, k)
		if err != nil {
			return nil, wrap("get_all", table, err)
		}
		v, err := coerce(f, opts.Filter[k])
		if err != nil {
			return nil, wrap("get_all", table, err)
		}
		if k == ColActive && !info.SoftDelete {
			// 库里没有 active 列：所有行都视为 active
			if b, ok := v.(bool); ok && !b {
				return make([]T, 0), nil
			}
			continue
		}
		q = q.Where(eq(k, v))
	}
	// 无 active 列的表直接跳过过滤
	if info.SoftDelete && !opts.IncludeInactive {
		q = q.Where(eq(ColActive, true))
	}
	if opts.OrderBy != "" {
		if _, err := column(cols, opts.OrderBy); err != nil {
			return nil, wrap("get_all", table, err)
		}
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: opts.OrderBy}, Desc: opts.Descending})
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}

	out = make([]T, 0)
	if err := q.Find(&out).Error; err != nil {
		return nil, wrap("get_all", table, err)
	}
	if !info.SoftDelete {
		for i := range out {
			setField(&out[i], "Active", true)
		}
	}
	return out, nil
}

// GetByID 软删的记录照样能查到；无记录返回 ErrNotFound
func GetByID[T any](ctx context.Context, a *Adapter, table string, key Key) (out *T, err error) {
	defer a.observe(table, "get_by_id", time.Now(), &err)
	return getByKey[T](ctx, a, table, key)
}

func getByKey[T any](ctx context.Context, a *Adapter, table string, key Key) (*T, error) {
	info, err := a.schema.Lookup(table)
	if err != nil {
		return nil, err
	}
	cols, err := columns[T](a)
	if err != nil {
		return nil, err
	}
	if _, err := column(cols, key.Field); err != nil {
		return nil, wrap("get", table, err)
	}
	var m T
	if err := a.db.WithContext(ctx).Table(table).Where(eq(key.Field, key.Value)).Take(&m).Error; err != nil {
		return nil, wrap("get", table, err)
	}
	if !info.SoftDelete {
		setField(&m, "Active", true)
	}
	return &m, nil
}

// Create 服务端分配 id / 时间戳，软删表强制 active=true；返回库里实际存下的行
func Create[T any](ctx context.Context, a *Adapter, table string, rec *T) (out *T, err error) {
	defer a.observe(table, "create", time.Now(), &err)
	info, err := a.schema.Lookup(table)
	if err != nil {
		return nil, err
	}
	ResetServerFields(rec)
	id := utils.NewID()
	if !setField(rec, "ID", id) {
		return nil, wrap("create", table, fmt.Errorf("%w: model has no string ID", ErrUnknownField))
	}
	if info.Timestamps {
		now := a.now()
		setField(rec, "CreatedAt", now)
		setField(rec, "UpdatedAt", now)
	}
	q := a.db.WithContext(ctx).Table(table)
	if !info.SoftDelete {
		// 模型有 Active 字段但库里没有该列（旧表）
		q = q.Omit(ColActive)
	}
	if err := q.Create(rec).Error; err != nil {
		return nil, wrap("create", table, err)
	}
	a.log.Debug("record created", zap.String("table", table), zap.String("id", id))
	return getByKey[T](ctx, a, table, ByID(id))
}

// Update 合并更新：只改 patch 里出现的列；id / created_at 不可改
func Update[T any](ctx context.Context, a *Adapter, table string, key Key, patch map[string]any) (out *T, err error) {
	defer a.observe(table, "update", time.Now(), &err)
	info, err := a.schema.Lookup(table)
	if err != nil {
		return nil, err
	}
	cols, err := columns[T](a)
	if err != nil {
		return nil, err
	}

	values := make(map[string]any, len(patch)+1)
	for k, v := range patch {
		switch k {
		case ColID, ColCreatedAt, ColUpdatedAt:
			continue
		case ColActive:
			if _, ok := cols[k]; ok && !info.SoftDelete {
				continue
			}
		}
		f, err := column(cols, k)
		if err != nil {
			return nil, wrap("update", table, err)
		}
		cv, err := coerce(f, v)
		if err != nil {
			return nil, wrap("update", table, err)
		}
		values[k] = cv
	}

	cur, err := getByKey[T](ctx, a, table, key)
	if err != nil {
		return nil, err
	}
	if info.Timestamps {
		prev, _ := readTime(cur, "UpdatedAt")
		values[ColUpdatedAt] = a.nextStamp(prev)
	}
	if len(values) > 0 {
		if err := a.db.WithContext(ctx).Table(table).Where(eq(key.Field, key.Value)).Updates(values).Error; err != nil {
			return nil, wrap("update", table, err)
		}
	}
	// id 可能不是定位字段，重新读取按 id 更稳
	if id, ok := readString(cur, "ID"); ok && id != "" {
		key = ByID(id)
	}
	return getByKey[T](ctx, a, table, key)
}

// Remove 软删：active=false，不删行；重复调用不报错
func Remove(ctx context.Context, a *Adapter, table string, key Key) (err error) {
	defer a.observe(table, "remove", time.Now(), &err)
	info, err := a.schema.Lookup(table)
	if err != nil {
		return err
	}
	if !info.SoftDelete {
		return wrap("remove", table, ErrSoftDeleteUnsupported)
	}

	where := func() *gorm.DB {
		return a.db.WithContext(ctx).Table(table).Where(eq(key.Field, key.Value))
	}
	values := map[string]any{ColActive: false}
	if info.Timestamps {
		var prev struct{ UpdatedAt time.Time }
		res := where().Select(ColUpdatedAt).Limit(1).Scan(&prev)
		if res.Error != nil {
			return wrap("remove", table, res.Error)
		}
		if res.RowsAffected == 0 {
			return wrap("remove", table, ErrNotFound)
		}
		values[ColUpdatedAt] = a.nextStamp(prev.UpdatedAt)
	} else {
		var n int64
		if err := where().Count(&n).Error; err != nil {
			return wrap("remove", table, err)
		}
		if n == 0 {
			return wrap("remove", table, ErrNotFound)
		}
	}
	if err := where().Updates(values).Error; err != nil {
		return wrap("remove", table, err)
	}
	a.log.Debug("record soft-deleted", zap.String("table", table), zap.Any("key", key.Value))
	return nil
}

// HardDelete 物理删除，不可恢复；只给管理端清理用
func HardDelete[T any](ctx context.Context, a *Adapter, table string, key Key) (err error) {
	defer a.observe(table, "hard_delete", time.Now(), &err)
	if _, err := a.schema.Lookup(table); err != nil {
		return err
	}
	cols, err := columns[T](a)
	if err != nil {
		return err
	}
	if _, err := column(cols, key.Field); err != nil {
		return wrap("hard_delete", table, err)
	}
	res := a.db.WithContext(ctx).Table(table).Where(eq(key.Field, key.Value)).Delete(new(T))
	if res.Error != nil {
		return wrap("hard_delete", table, res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap("hard_delete", table, ErrNotFound)
	}
	a.log.Info("record hard-deleted", zap.String("table", table), zap.Any("key", key.Value))
	return nil
}
