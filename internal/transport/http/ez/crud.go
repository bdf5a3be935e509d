package ez

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"clinic-manager/internal/store"
	resp "clinic-manager/internal/transport/http/response"
)

// 列表查询保留参数；其余 query 参数（下划线开头的除外）都当作列过滤
const (
	QueryOrder           = "order"
	QueryDesc            = "desc"
	QueryLimit           = "limit"
	QueryIncludeInactive = "include_inactive"
)

type CrudHooks[T any] struct {
	BeforeCreate func(c *gin.Context, m *T) error
	BeforeUpdate func(c *gin.Context, id string, patch map[string]any) error
	AfterWrite   func(c *gin.Context) // 写成功后（缓存失效等）
}

type CrudConfig[T any] struct {
	Store *store.Adapter
	Group *gin.RouterGroup
	Path  string // 例如 "/patients"
	Table string

	Hooks CrudHooks[T]

	AllowCreate bool
	AllowList   bool
	AllowGet    bool
	AllowUpdate bool
	AllowDelete bool

	MaxLimit int // 0 不限
}

// StoreError store 错误映射到 HTTP 状态
func StoreError(table string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return &AErr{Code: resp.CodeNotFound, Msg: table + " not found", Err: err}
	case errors.Is(err, store.ErrUnknownField), errors.Is(err, store.ErrInvalidValue):
		return &AErr{Code: resp.CodeBadRequest, Err: err}
	case errors.Is(err, store.ErrSoftDeleteUnsupported):
		return &AErr{Code: resp.CodeConflict, Err: err}
	case errors.Is(err, store.ErrUnknownTable):
		return &AErr{Code: resp.CodeNotFound, Err: err}
	}
	return Internal("", err)
}

// ParseListOptions 从 query 解析列表参数
func ParseListOptions(c *gin.Context, maxLimit int) (store.ListOptions, error) {
	opts := store.ListOptions{OrderBy: c.Query(QueryOrder)}
	if s := c.Query(QueryDesc); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return opts, BadRequest("desc must be a boolean")
		}
		opts.Descending = b
	}
	if s := c.Query(QueryIncludeInactive); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return opts, BadRequest("include_inactive must be a boolean")
		}
		opts.IncludeInactive = b
	}
	if s := c.Query(QueryLimit); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return opts, BadRequest("limit must be a non-negative integer")
		}
		opts.Limit = n
	}
	if maxLimit > 0 && (opts.Limit == 0 || opts.Limit > maxLimit) {
		opts.Limit = maxLimit
	}
	for k, vs := range c.Request.URL.Query() {
		switch {
		case k == QueryOrder, k == QueryDesc, k == QueryLimit, k == QueryIncludeInactive:
			continue
		case strings.HasPrefix(k, "_"):
			// 客户端防缓存参数（?_=时间戳）不当作列过滤
			continue
		}
		if len(vs) > 0 {
			if opts.Filter == nil {
				opts.Filter = map[string]any{}
			}
			opts.Filter[k] = vs[0]
		}
	}
	return opts, nil
}

// Crud 在分组上挂一套 REST：POST / GET / GET :id / PUT :id / DELETE :id
func Crud[T any](cfg CrudConfig[T]) {
	// 默认放开所有操作
	if !cfg.AllowCreate && !cfg.AllowGet && !cfg.AllowList && !cfg.AllowUpdate && !cfg.AllowDelete {
		cfg.AllowCreate, cfg.AllowList, cfg.AllowGet, cfg.AllowUpdate, cfg.AllowDelete = true, true, true, true, true
	}
	afterWrite := func(c *gin.Context) {
		if cfg.Hooks.AfterWrite != nil {
			cfg.Hooks.AfterWrite(c)
		}
	}

	if cfg.AllowCreate {
		cfg.Group.POST(cfg.Path, func(c *gin.Context) {
			m := new(T)
			if err := c.ShouldBindJSON(m); err != nil {
				resp.Abort(c, resp.CodeBadRequest, err.Error())
				return
			}
			if cfg.Hooks.BeforeCreate != nil {
				if err := cfg.Hooks.BeforeCreate(c, m); err != nil {
					Fail(c, err)
					return
				}
			}
			out, err := store.Create(c.Request.Context(), cfg.Store, cfg.Table, m)
			if err != nil {
				Fail(c, StoreError(cfg.Table, err))
				return
			}
			afterWrite(c)
			c.JSON(http.StatusCreated, out)
		})
	}

	if cfg.AllowList {
		cfg.Group.GET(cfg.Path, func(c *gin.Context) {
			opts, err := ParseListOptions(c, cfg.MaxLimit)
			if err != nil {
				Fail(c, err)
				return
			}
			rows, err := store.GetAll[T](c.Request.Context(), cfg.Store, cfg.Table, opts)
			if err != nil {
				Fail(c, StoreError(cfg.Table, err))
				return
			}
			c.JSON(http.StatusOK, rows)
		})
	}

	if cfg.AllowGet {
		cfg.Group.GET(cfg.Path+"/:id", func(c *gin.Context) {
			m, err := store.GetByID[T](c.Request.Context(), cfg.Store, cfg.Table, store.ByID(c.Param("id")))
			if err != nil {
				Fail(c, StoreError(cfg.Table, err))
				return
			}
			c.JSON(http.StatusOK, m)
		})
	}

	if cfg.AllowUpdate {
		cfg.Group.PUT(cfg.Path+"/:id", func(c *gin.Context) {
			id := c.Param("id")
			var patch map[string]any
			if err := c.ShouldBindJSON(&patch); err != nil {
				resp.Abort(c, resp.CodeBadRequest, err.Error())
				return
			}
			if cfg.Hooks.BeforeUpdate != nil {
				if err := cfg.Hooks.BeforeUpdate(c, id, patch); err != nil {
					Fail(c, err)
					return
				}
			}
			out, err := store.Update[T](c.Request.Context(), cfg.Store, cfg.Table, store.ByID(id), patch)
			if err != nil {
				Fail(c, StoreError(cfg.Table, err))
				return
			}
			afterWrite(c)
			c.JSON(http.StatusOK, out)
		})
	}

	if cfg.AllowDelete {
		cfg.Group.DELETE(cfg.Path+"/:id", func(c *gin.Context) {
			id := c.Param("id")
			if err := store.Remove(c.Request.Context(), cfg.Store, cfg.Table, store.ByID(id)); err != nil {
				Fail(c, StoreError(cfg.Table, err))
				return
			}
			afterWrite(c)
			c.JSON(http.StatusOK, gin.H{"id": id})
		})
	}
}
