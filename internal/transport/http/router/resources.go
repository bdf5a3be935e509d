package router

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"clinic-manager/internal/domain"
	"clinic-manager/internal/store"
	httpez "clinic-manager/internal/transport/http/ez"
)

// crudModule 一个实体一组 REST 路由
type crudModule[T any] struct {
	cfg      httpez.CrudConfig[T]
	priority int
}

func (m crudModule[T]) MountAPI(g *gin.RouterGroup) {
	cfg := m.cfg
	cfg.Group = g
	httpez.Crud(cfg)
}

func (m crudModule[T]) Priority() int { return m.priority }

// mustExist 关联记录不存在时返回 400
func mustExist[T any](c *gin.Context, a *store.Adapter, table, id, label string) error {
	_, err := store.GetByID[T](c.Request.Context(), a, table, store.ByID(id))
	if errors.Is(err, store.ErrNotFound) {
		return httpez.BadRequest(label + " not found")
	}
	return httpez.StoreError(table, err)
}

func patchString(patch map[string]any, key string) (string, bool) {
	v, ok := patch[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func validExamStatus(s string) error {
	switch s {
	case "", domain.ExamScheduled, domain.ExamCompleted, domain.ExamCancelled:
		return nil
	}
	return httpez.BadRequest(fmt.Sprintf("invalid exam status %q", s))
}

func (e *engine) resourceModules() []APIModule {
	a := e.d.Store
	invalidateRoles := func(c *gin.Context) {
		if e.d.Users == nil {
			return
		}
		if err := e.d.Users.InvalidateRoles(c.Request.Context()); err != nil {
			_ = c.Error(err)
		}
	}

	return []APIModule{
		crudModule[domain.Patient]{priority: 10, cfg: httpez.CrudConfig[domain.Patient]{
			Store: a, Path: "/" + domain.ResourcePath(domain.TablePatients), Table: domain.TablePatients,
			MaxLimit: e.d.Config.App.HTTP.MaxListLimit,
		}},
		crudModule[domain.Exam]{priority: 20, cfg: httpez.CrudConfig[domain.Exam]{
			Store: a, Path: "/" + domain.ResourcePath(domain.TableExams), Table: domain.TableExams,
			MaxLimit: e.d.Config.App.HTTP.MaxListLimit,
			Hooks: httpez.CrudHooks[domain.Exam]{
				BeforeCreate: func(c *gin.Context, m *domain.Exam) error {
					if err := validExamStatus(m.Status); err != nil {
						return err
					}
					return mustExist[domain.Patient](c, a, domain.TablePatients, m.PatientID, "patient")
				},
				BeforeUpdate: func(c *gin.Context, _ string, patch map[string]any) error {
					if s, ok := patchString(patch, "status"); ok {
						if err := validExamStatus(s); err != nil {
							return err
						}
					}
					if pid, ok := patchString(patch, "patient_id"); ok {
						return mustExist[domain.Patient](c, a, domain.TablePatients, pid, "patient")
					}
					return nil
				},
			},
		}},
		crudModule[domain.User]{priority: 30, cfg: httpez.CrudConfig[domain.User]{
			Store: a, Path: "/" + domain.ResourcePath(domain.TableUsers), Table: domain.TableUsers,
			MaxLimit: e.d.Config.App.HTTP.MaxListLimit,
			Hooks: httpez.CrudHooks[domain.User]{
				BeforeCreate: func(c *gin.Context, m *domain.User) error {
					if m.RoleID == nil || *m.RoleID == "" {
						return nil
					}
					return mustExist[domain.Role](c, a, domain.TableRoles, *m.RoleID, "role")
				},
				BeforeUpdate: func(c *gin.Context, _ string, patch map[string]any) error {
					if rid, ok := patchString(patch, "role_id"); ok && rid != "" {
						return mustExist[domain.Role](c, a, domain.TableRoles, rid, "role")
					}
					return nil
				},
			},
		}},
		crudModule[domain.Role]{priority: 40, cfg: httpez.CrudConfig[domain.Role]{
			Store: a, Path: "/" + domain.ResourcePath(domain.TableRoles), Table: domain.TableRoles,
			MaxLimit: e.d.Config.App.HTTP.MaxListLimit,
			Hooks: httpez.CrudHooks[domain.Role]{AfterWrite: invalidateRoles},
		}},
		crudModule[domain.UserRole]{priority: 50, cfg: httpez.CrudConfig[domain.UserRole]{
			Store: a, Path: "/" + domain.ResourcePath(domain.TableUserRoles), Table: domain.TableUserRoles,
			MaxLimit: e.d.Config.App.HTTP.MaxListLimit,
			Hooks: httpez.CrudHooks[domain.UserRole]{
				BeforeCreate: func(c *gin.Context, m *domain.UserRole) error {
					if err := mustExist[domain.User](c, a, domain.TableUsers, m.UserID, "user"); err != nil {
						return err
					}
					return mustExist[domain.Role](c, a, domain.TableRoles, m.RoleID, "role")
				},
			},
		}},
	}
}
