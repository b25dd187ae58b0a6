package model

import (
	"time"
)

const (
	VoucherStatusActive  = "ACTIVE"
	VoucherStatusUsed    = "USED"
	VoucherStatusExpired = "EXPIRED"
)

// Voucher 折扣凭证表
// 兑换成功后签发给顾客，结算时一次性核销
//
// code 必须全局唯一且不可猜测（防止遍历撞码），
// 状态流转：ACTIVE -> USED（结算核销）/ EXPIRED（定时任务扫描过期）
type Voucher struct {
	ID                int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Code              string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	AccountID         *int64     `gorm:"index" json:"account_id"` // 账本键，二选一
	ExternalSubjectID *string    `gorm:"type:varchar(64);index" json:"external_subject_id"`
	RedemptionID      int64      `gorm:"index;not null" json:"redemption_id"`
	DiscountType      string     `gorm:"type:varchar(20);not null" json:"discount_type"`
	DiscountValue     int64      `gorm:"not null" json:"discount_value"`
	Status            string     `gorm:"type:varchar(20);index;not null;default:ACTIVE" json:"status"`
	ExpiresAt         time.Time  `gorm:"not null;index" json:"expires_at"`
	UsedAt            *time.Time `json:"used_at"`
	OrderNo           string     `gorm:"type:varchar(64)" json:"order_no"` // 核销时关联的订单号
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (Voucher) TableName() string {
	return "voucher"
}
