package model

import (
	"time"
)

// Redemption 兑换记录表
// 每次成功兑换一行，两个用途：
// 1. 凭证签发的依据（voucher 关联到这一行）
// 2. 重复提交检测的回查窗口（同一账户同一奖励 60 秒内的未使用记录）
//
// is_used 由结算侧在凭证核销时置为 true，兑换引擎只负责创建
type Redemption struct {
	ID                int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	RedemptionNo      string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"redemption_no"`
	AccountID         *int64     `gorm:"index" json:"account_id"` // 账本键，二选一
	ExternalSubjectID *string    `gorm:"type:varchar(64);index" json:"external_subject_id"`
	RewardID          int64      `gorm:"index;not null" json:"reward_id"`
	PointsSpent       int64      `gorm:"not null" json:"points_spent"`
	IsUsed            bool       `gorm:"not null;default:false" json:"is_used"`
	UsedAt            *time.Time `json:"used_at"`
	ExpiresAt         time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt         time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Redemption) TableName() string {
	return "redemption"
}
