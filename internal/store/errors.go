package store

import "errors"

var (
	// ErrNotFound 单条查询无记录；调用方渲染空状态而不是报错
	ErrNotFound              = errors.New("record not found")
	ErrUnknownTable          = errors.New("unknown table")
	ErrUnknownField          = errors.New("unknown field")
	ErrInvalidValue          = errors.New("invalid value")
	ErrSoftDeleteUnsupported = errors.New("table has no active column")
)
