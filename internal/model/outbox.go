package model

import (
	"time"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// 积分事件类型（outbox 消息的 event 字段）
// 营销邮件服务订阅这些事件做触达，核心链路不依赖它们
const (
	EventPointsEarned   = "loyalty.points_earned"
	EventPointsRedeemed = "loyalty.points_redeemed"
	EventVoucherIssued  = "loyalty.voucher_issued"
)

// OutboxMessage 事务性发件箱
// 积分事件与余额变更在同一个事务内落库，再由后台任务异步投递到 Kafka，
// 保证"余额变了但事件丢了"或"事件发了但事务回滚了"都不会发生
type OutboxMessage struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageKey string    `gorm:"type:varchar(64);not null" json:"message_key"`
	Topic      string    `gorm:"type:varchar(64);not null" json:"topic"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	Status     string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int       `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_message"
}
