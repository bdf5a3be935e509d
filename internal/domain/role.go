package domain

import "time"

// Role 扁平查找表，无层级，无 active 列
type Role struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"size:50;uniqueIndex;not null" json:"name" binding:"required"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Role) TableName() string { return TableRoles }

// 默认角色
const (
	RoleAdmin     = "admin"
	RoleDoctor    = "doctor"
	RoleReception = "reception"
)

// UserRole 用户的附加角色
type UserRole struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;not null;index" json:"user_id" binding:"required"`
	RoleID    string    `gorm:"size:36;not null;index" json:"role_id" binding:"required"`
	Active    bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UserRole) TableName() string { return TableUserRoles }
