package service

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated     = errors.New("请先登录")
	ErrNoLedgerRecord      = errors.New("您还没有获得过积分")
	ErrDuplicateRedemption = errors.New("兑换请求处理中，请勿重复提交")
)

// InsufficientPointsError 积分不足
// 带上所需/现有积分，客户端可以直接展示差额
type InsufficientPointsError struct {
	Required  int64
	Available int64
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("积分不足：需要 %d 积分，当前只有 %d 积分", e.Required, e.Available)
}

// Shortfall 差额
func (e *InsufficientPointsError) Shortfall() int64 {
	return e.Required - e.Available
}
