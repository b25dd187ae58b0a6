package model

import (
	"time"
)

// LoyaltyBalance 积分余额表
// 每个已解析账户一行，是"这个顾客有多少积分"的唯一事实来源
//
// 【重要】键的约定：
//   account_id 和 external_subject_id 必须恰好有一个非空。
//   已关联本地账号的顾客以 account_id 为键；
//   仅有外部身份的顾客以 external_subject_id 为键。
//   查询时根据 AccountRef.HasLegacyAccount 二选一，绝不能两个键一起查。
//
// points 任何时刻都 >= 0，扣减走 WHERE points >= ? 的条件更新，
// 不满足时必须整体拒绝，不允许悄悄截断到 0
type LoyaltyBalance struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID         *int64    `gorm:"uniqueIndex" json:"account_id"`
	ExternalSubjectID *string   `gorm:"type:varchar(64);uniqueIndex" json:"external_subject_id"`
	Points            int64     `gorm:"not null;default:0" json:"points"`         // 当前可用积分
	TotalEarned       int64     `gorm:"not null;default:0" json:"total_earned"`   // 累计获得（只增）
	TotalRedeemed     int64     `gorm:"not null;default:0" json:"total_redeemed"` // 累计消耗（只增）
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (LoyaltyBalance) TableName() string {
	return "loyalty_balance"
}
