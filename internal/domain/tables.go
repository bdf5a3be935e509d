package domain

import "strings"

// 表名与 REST 资源路径
const (
	TablePatients  = "patients"
	TableExams     = "exams"
	TableUsers     = "users"
	TableRoles     = "roles"
	TableUserRoles = "user_roles"
	TableAccounts  = "accounts"
)

// Models 自动迁移使用；roles 是历史表，没有 active 列
func Models() []any {
	return []any{&Patient{}, &Exam{}, &User{}, &Role{}, &UserRole{}}
}

// ResourcePath REST 路径段：user_roles -> user-roles
func ResourcePath(table string) string { return strings.ReplaceAll(table, "_", "-") }
