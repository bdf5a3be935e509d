package account

import (
	"time"

	"gorm.io/gorm"
)

// Model 身份账号（凭证），与 users 档案分表；档案通过 users.auth_id 关联
type Model struct {
	ID           string `gorm:"primaryKey;type:varchar(36)"`
	Email        string `gorm:"uniqueIndex;size:191;not null"`
	PasswordHash string `gorm:"size:100;not null"`

	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (Model) TableName() string { return "accounts" }
