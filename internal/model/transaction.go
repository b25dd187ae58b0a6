package model

import (
	"time"
)

// ============================================================================
// 积分流水类型常量
// ============================================================================

const (
	PointsTransactionEarned   = "EARNED"   // 订单完成返积分
	PointsTransactionRedeemed = "REDEEMED" // 积分兑换扣减
)

// ============================================================================
// 积分流水实体
// ============================================================================

// PointsTransaction 积分流水表
// 记录每一次积分变动，是对账和排查重复兑换的核心依据
//
// 【重要】流水表设计原则：
// 1. 只追加，不修改，不删除 —— 保证审计可追溯
// 2. 与余额变更在同一个事务内写入 —— 保证流水和余额一致
// 3. 记录变动前后余额 —— 便于校验余额一致性
type PointsTransaction struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo     string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"` // 流水号（全局唯一）
	AccountID         *int64    `gorm:"index" json:"account_id"`                                     // 账本键，二选一
	ExternalSubjectID *string   `gorm:"type:varchar(64);index" json:"external_subject_id"`
	Points            int64     `gorm:"not null" json:"points"`                          // 变动数额（获得为正，消耗为负）
	Type              string    `gorm:"type:varchar(20);not null" json:"type"`           // 流水类型
	Description       string    `gorm:"type:varchar(256)" json:"description"`            // 备注
	OrderNo           string    `gorm:"type:varchar(64);index" json:"order_no"`          // 关联订单号（兑换时为空）
	BalanceBefore     int64     `gorm:"not null" json:"balance_before"`                  // 变动前余额
	BalanceAfter      int64     `gorm:"not null" json:"balance_after"`                   // 变动后余额
	CreatedAt         time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (PointsTransaction) TableName() string {
	return "points_transaction"
}
