package model

import (
	"time"
)

const (
	DiscountTypeAmount  = "AMOUNT"  // 固定金额减免（单位：分）
	DiscountTypePercent = "PERCENT" // 按比例减免（1-100）
)

// Reward 积分奖励目录
// 读多写少；上下架和定义变更由后台管理端负责，兑换引擎只读
type Reward struct {
	ID               int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name             string     `gorm:"type:varchar(64);not null" json:"name"`
	Description      string     `gorm:"type:varchar(256)" json:"description"`
	PointsRequired   int64      `gorm:"not null" json:"points_required"` // 兑换所需积分，必须为正
	DiscountType     string     `gorm:"type:varchar(20);not null" json:"discount_type"`
	DiscountValue    int64      `gorm:"not null" json:"discount_value"`
	VoucherValidDays int        `gorm:"not null;default:0" json:"voucher_valid_days"` // 0 表示用全局默认有效期
	IsActive         bool       `gorm:"not null;default:true;index" json:"is_active"`
	ExpiresAt        *time.Time `json:"expires_at"` // 下架时间，NULL 表示长期有效
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Reward) TableName() string {
	return "reward"
}
