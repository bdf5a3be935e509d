package resource

import (
	"go.uber.org/zap"

	"clinic-manager/internal/domain"
	"clinic-manager/internal/store"
)

// 各实体的默认排序列
var (
	PatientsConfig  = Config{Name: domain.TablePatients, OrderBy: "created_at"}
	ExamsConfig     = Config{Name: domain.TableExams, OrderBy: "exam_date"}
	UsersConfig     = Config{Name: domain.TableUsers, OrderBy: "created_at"}
	RolesConfig     = Config{Name: domain.TableRoles, OrderBy: "created_at"}
	UserRolesConfig = Config{Name: domain.TableUserRoles, OrderBy: "created_at"}
)

type Backends struct {
	Patients  Backend[domain.Patient]
	Exams     Backend[domain.Exam]
	Users     Backend[domain.User]
	Roles     Backend[domain.Role]
	UserRoles Backend[domain.UserRole]
}

// StoreBackends 直连数据库（管理端 CLI）
func StoreBackends(a *store.Adapter) Backends {
	return Backends{
		Patients:  store.Bind[domain.Patient](a, domain.TablePatients),
		Exams:     store.Bind[domain.Exam](a, domain.TableExams),
		Users:     store.Bind[domain.User](a, domain.TableUsers),
		Roles:     store.Bind[domain.Role](a, domain.TableRoles),
		UserRoles: store.Bind[domain.UserRole](a, domain.TableUserRoles),
	}
}

type Set struct {
	Patients  *Resource[domain.Patient]
	Exams     *Resource[domain.Exam]
	Users     *Resource[domain.User]
	Roles     *Resource[domain.Role]
	UserRoles *Resource[domain.UserRole]
}

func NewSet(b Backends, l *zap.Logger) *Set {
	return &Set{
		Patients:  New(b.Patients, PatientsConfig, l),
		Exams:     New(b.Exams, ExamsConfig, l),
		Users:     New(b.Users, UsersConfig, l),
		Roles:     New(b.Roles, RolesConfig, l),
		UserRoles: New(b.UserRoles, UserRolesConfig, l),
	}
}

// Close 卸载时调用，丢弃之后到达的响应
func (s *Set) Close() {
	s.Patients.Close()
	s.Exams.Close()
	s.Users.Close()
	s.Roles.Close()
	s.UserRoles.Close()
}
