package domain

import (
	"strings"
	"time"
)

// DefaultDisplayName 没有任何名字字段时的显示名
const DefaultDisplayName = "Usuario"

// User 应用侧档案；AuthID 关联身份账号
type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	AuthID    *string   `gorm:"size:36;uniqueIndex" json:"auth_id,omitempty"`
	Email     string    `gorm:"size:191;index" json:"email" binding:"required"`
	Name      *string   `gorm:"size:64" json:"name,omitempty"`
	FullName  *string   `gorm:"size:128" json:"full_name,omitempty"`
	Nombre    *string   `gorm:"size:128" json:"nombre,omitempty"`
	Phone     *string   `gorm:"size:32" json:"phone,omitempty"`
	RoleID    *string   `gorm:"size:36;index" json:"role_id,omitempty"`
	Active    bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Role *Role `gorm:"foreignKey:RoleID" json:"-"`
}

func (User) TableName() string { return TableUsers }

// DisplayName name → full_name → nombre → email → "Usuario"，空白值跳过
func (u User) DisplayName() string {
	for _, p := range []*string{u.Name, u.FullName, u.Nombre} {
		if p != nil && strings.TrimSpace(*p) != "" {
			return strings.TrimSpace(*p)
		}
	}
	if e := strings.TrimSpace(u.Email); e != "" {
		return e
	}
	return DefaultDisplayName
}
