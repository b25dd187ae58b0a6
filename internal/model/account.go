package model

import (
	"time"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Account 本地账户表（老的账号体系）
// 顾客早期通过邮箱/密码注册；后来接入外部身份提供方登录，
// 两套身份通过 external_subject_id 懒关联到同一行
type Account struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email             string    `gorm:"type:varchar(128);index;not null" json:"email"`
	Name              string    `gorm:"type:varchar(64)" json:"name"`
	Phone             string    `gorm:"type:varchar(32)" json:"phone"`
	ExternalSubjectID *string   `gorm:"type:varchar(64);uniqueIndex" json:"external_subject_id"` // 身份提供方 subject，未关联时为 NULL
	Role              string    `gorm:"type:varchar(20);not null;default:customer" json:"role"`
	CreatedAt         time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "account"
}
