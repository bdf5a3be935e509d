package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"clinic-manager/internal/domain"
	"clinic-manager/internal/resource"
	"clinic-manager/internal/store"
)

// Records 远程表，实现 resource.Backend
type Records[T any] struct {
	c    *Client
	path string
}

func NewRecords[T any](c *Client, table string) *Records[T] {
	return &Records[T]{c: c, path: "/api/" + domain.ResourcePath(table)}
}

func listQuery(opts store.ListOptions) url.Values {
	q := url.Values{}
	if opts.OrderBy != "" {
		q.Set("order", opts.OrderBy)
	}
	if opts.Descending {
		q.Set("desc", "true")
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.IncludeInactive {
		q.Set("include_inactive", "true")
	}
	for k, v := range opts.Filter {
		q.Set(k, toQueryValue(v))
	}
	return q
}

func toQueryValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	}
	return fmt.Sprint(v)
}

func (r *Records[T]) List(ctx context.Context, opts store.ListOptions) ([]T, error) {
	out := make([]T, 0)
	if err := r.c.do(ctx, http.MethodGet, r.path, listQuery(opts), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Records[T]) Get(ctx context.Context, id string) (*T, error) {
	var out T
	if err := r.c.do(ctx, http.MethodGet, r.path+"/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Records[T]) Create(ctx context.Context, rec *T) (*T, error) {
	var out T
	if err := r.c.do(ctx, http.MethodPost, r.path, nil, rec, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Records[T]) Update(ctx context.Context, id string, patch map[string]any) (*T, error) {
	var out T
	if err := r.c.do(ctx, http.MethodPut, r.path+"/"+url.PathEscape(id), nil, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Records[T]) Remove(ctx context.Context, id string) error {
	return r.c.do(ctx, http.MethodDelete, r.path+"/"+url.PathEscape(id), nil, nil, nil)
}

// Backends 全部资源走远程接口
func Backends(c *Client) resource.Backends {
	return resource.Backends{
		Patients:  NewRecords[domain.Patient](c, domain.TablePatients),
		Exams:     NewRecords[domain.Exam](c, domain.TableExams),
		Users:     NewRecords[domain.User](c, domain.TableUsers),
		Roles:     NewRecords[domain.Role](c, domain.TableRoles),
		UserRoles: NewRecords[domain.UserRole](c, domain.TableUserRoles),
	}
}
