package store

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm/schema"
)

// 按字段名取可写字段（未导出字段跳过）
func fieldByName(obj any, name string) (reflect.Value, bool) {
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return reflect.Value{}, false
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	f, ok := v.Type().FieldByName(name)
	if !ok || f.PkgPath != "" {
		return reflect.Value{}, false
	}
	fv := v.FieldByIndex(f.Index)
	return fv, fv.CanSet()
}

func setField(obj any, name string, val any) bool {
	fv, ok := fieldByName(obj, name)
	if !ok {
		return false
	}
	rv := reflect.ValueOf(val)
	if !rv.Type().AssignableTo(fv.Type()) {
		return false
	}
	fv.Set(rv)
	return true
}

func readTime(obj any, name string) (time.Time, bool) {
	fv, ok := fieldByName(obj, name)
	if !ok {
		return time.Time{}, false
	}
	t, ok := fv.Interface().(time.Time)
	return t, ok
}

func readString(obj any, name string) (string, bool) {
	fv, ok := fieldByName(obj, name)
	if !ok || fv.Kind() != reflect.String {
		return "", false
	}
	return fv.String(), true
}

// coerce 把 JSON / query 里的值转成列的 Go 类型（bool、整数、时间）
func coerce(f *schema.Field, v any) (any, error) {
	s, isStr := v.(string)
	if v == nil {
		return nil, nil
	}
	t := f.FieldType
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch {
	case t == reflect.TypeOf(time.Time{}):
		if isStr {
			if s == "" && f.FieldType.Kind() == reflect.Ptr {
				return nil, nil
			}
			for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
				if ts, err := time.Parse(layout, s); err == nil {
					return ts, nil
				}
			}
			return nil, fmt.Errorf("%w: %s is not a timestamp", ErrInvalidValue, f.DBName)
		}
	case t.Kind() == reflect.Bool:
		if isStr {
			b, err := strconv.ParseBool(strings.TrimSpace(s))
			if err != nil {
				return nil, fmt.Errorf("%w: %s expects a boolean", ErrInvalidValue, f.DBName)
			}
			return b, nil
		}
	case t.Kind() >= reflect.Int && t.Kind() <= reflect.Int64:
		switch n := v.(type) {
		case string:
			i, err := strconv.ParseInt(n, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s expects an integer", ErrInvalidValue, f.DBName)
			}
			return i, nil
		case float64:
			return int64(n), nil
		}
	}
	return v, nil
}

// ResetServerFields 新建前清掉由服务端分配的字段，有 Active 的置 true
func ResetServerFields(rec any) {
	fv, ok := fieldByName(rec, "ID")
	if ok && fv.Kind() == reflect.String {
		fv.SetString("")
	}
	setField(rec, "CreatedAt", time.Time{})
	setField(rec, "UpdatedAt", time.Time{})
	setField(rec, "Active", true)
}
