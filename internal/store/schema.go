package store

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 通用列名
const (
	ColID        = "id"
	ColActive    = "active"
	ColCreatedAt = "created_at"
	ColUpdatedAt = "updated_at"
)

// TableInfo 表能力：启动时声明 / 探测，不靠解析错误信息
type TableInfo struct {
	SoftDelete bool // 有 active 列
	Timestamps bool // 有 created_at / updated_at
}

type Schema map[string]TableInfo

func (s Schema) Lookup(table string) (TableInfo, error) {
	info, ok := s[table]
	if !ok {
		return TableInfo{}, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return info, nil
}

func (s Schema) Tables() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// DetectSchema 以声明为准，再用 migrator 校验列是否真实存在；
// 声明有而库里没有的能力会被降级（只降不升）
func DetectSchema(ctx context.Context, db *gorm.DB, declared Schema, l *zap.Logger) (Schema, error) {
	if l == nil {
		l = zap.NewNop()
	}
	m := db.WithContext(ctx).Migrator()
	out := make(Schema, len(declared))
	for _, table := range declared.Tables() {
		info := declared[table]
		if !m.HasTable(table) {
			return nil, fmt.Errorf("%w: %q does not exist", ErrUnknownTable, table)
		}
		if info.SoftDelete && !m.HasColumn(table, ColActive) {
			l.Warn("table declared soft-delete but has no active column; rows are treated as active",
				zap.String("table", table))
			info.SoftDelete = false
		}
		if info.Timestamps && !(m.HasColumn(table, ColCreatedAt) && m.HasColumn(table, ColUpdatedAt)) {
			l.Warn("table declared timestamps but columns are missing", zap.String("table", table))
			info.Timestamps = false
		}
		out[table] = info
	}
	return out, nil
}
