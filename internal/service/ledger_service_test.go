package service

import (
	"context"
	"testing"

	"foodorder/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestGetBalance_ZeroView(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db, testConfig())

	// 没有积分账户时返回全零视图，但不落库
	ref := model.LegacyAccountRef(1)
	balance, err := svc.GetBalance(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance.Points)
	assert.Equal(t, int64(0), balance.TotalEarned)

	var count int64
	require.NoError(t, db.Model(&model.LoyaltyBalance{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGetBalance_Existing(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db, testConfig())

	ref := model.ExternalAccountRef("auth0|alice")
	seedBalance(t, db, ref, 420)

	balance, err := svc.GetBalance(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, int64(420), balance.Points)
}

func TestGetBalance_GuestRejected(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db, testConfig())

	_, err := svc.GetBalance(context.Background(), model.AccountRef{})
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestCreditForOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db, testConfig())
	ctx := context.Background()

	ref := model.LegacyAccountRef(1)

	// 订单金额 2350 分 = 23.5 元，每元 1 分 -> 23 分
	result, err := svc.CreditForOrder(ctx, ref, "FO20260829001", 2350)
	require.NoError(t, err)
	assert.Equal(t, int64(23), result.PointsEarned)
	assert.Equal(t, int64(23), result.Balance)
	assert.False(t, result.AlreadyEarned)

	balance := fetchBalance(t, db, ref)
	assert.Equal(t, int64(23), balance.Points)
	assert.Equal(t, int64(23), balance.TotalEarned)

	var transactions []model.PointsTransaction
	require.NoError(t, db.Find(&transactions).Error)
	require.Len(t, transactions, 1)
	assert.Equal(t, model.PointsTransactionEarned, transactions[0].Type)
	assert.Equal(t, "FO20260829001", transactions[0].OrderNo)

	// 事务内写了积分事件
	var outbox []model.OutboxMessage
	require.NoError(t, db.Find(&outbox).Error)
	require.Len(t, outbox, 1)
	assert.Contains(t, outbox[0].Payload, model.EventPointsEarned)
}

func TestCreditForOrder_Idempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db, testConfig())
	ctx := context.Background()

	ref := model.LegacyAccountRef(1)

	first, err := svc.CreditForOrder(ctx, ref, "FO20260829002", 10000)
	require.NoError(t, err)
	assert.Equal(t, int64(100), first.PointsEarned)

	// 同一订单号重放，不重复入账
	second, err := svc.CreditForOrder(ctx, ref, "FO20260829002", 10000)
	require.NoError(t, err)
	assert.True(t, second.AlreadyEarned)
	assert.Equal(t, int64(100), second.PointsEarned)

	assert.Equal(t, int64(100), fetchBalance(t, db, ref).Points)

	var count int64
	require.NoError(t, db.Model(&model.PointsTransaction{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreditForOrder_ConcurrentNotifications(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db, testConfig())
	ctx := context.Background()

	ref := model.LegacyAccountRef(1)

	// 第一笔通知正常入账
	first, err := svc.CreditForOrder(ctx, ref, "FO20260829020", 10000)
	require.NoError(t, err)
	assert.Equal(t, int64(100), first.PointsEarned)

	// 并发场景：两笔相同订单的通知都通过了事务外的快速检查，
	// 后拿到行锁的那笔直接走事务内路径，锁内重查必须命中幂等
	var second *CreditResult
	err = db.Transaction(func(tx *gorm.DB) error {
		r, err := svc.creditForOrder(ctx, tx, ref, "FO20260829020", 100)
		if err != nil {
			return err
		}
		second = r
		return nil
	})
	require.NoError(t, err)
	assert.True(t, second.AlreadyEarned)
	assert.Equal(t, int64(100), second.PointsEarned)

	// 只入账了一次
	assert.Equal(t, int64(100), fetchBalance(t, db, ref).Points)

	var count int64
	require.NoError(t, db.Model(&model.PointsTransaction{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreditForOrder_Accumulates(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db, testConfig())
	ctx := context.Background()

	ref := model.ExternalAccountRef("auth0|bob")

	_, err := svc.CreditForOrder(ctx, ref, "FO20260829003", 5000)
	require.NoError(t, err)
	result, err := svc.CreditForOrder(ctx, ref, "FO20260829004", 3000)
	require.NoError(t, err)

	assert.Equal(t, int64(80), result.Balance)
	assert.Equal(t, int64(80), fetchBalance(t, db, ref).Points)
}

func TestCreditForOrder_TinyOrderNoPoints(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db, testConfig())

	// 不足一元的订单不产生积分，也不建积分账户
	result, err := svc.CreditForOrder(context.Background(), model.LegacyAccountRef(1), "FO20260829005", 99)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.PointsEarned)

	var count int64
	require.NoError(t, db.Model(&model.LoyaltyBalance{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreditForOrder_InvalidArgs(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db, testConfig())
	ctx := context.Background()

	_, err := svc.CreditForOrder(ctx, model.LegacyAccountRef(1), "", 1000)
	require.Error(t, err)

	_, err = svc.CreditForOrder(ctx, model.LegacyAccountRef(1), "FO20260829006", 0)
	require.Error(t, err)

	_, err = svc.CreditForOrder(ctx, model.AccountRef{}, "FO20260829007", 1000)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestListTransactions(t *testing.T) {
	db := newTestDB(t)
	svc := NewLedgerService(db, testConfig())
	ctx := context.Background()

	ref := model.LegacyAccountRef(1)
	otherRef := model.LegacyAccountRef(2)

	_, err := svc.CreditForOrder(ctx, ref, "FO20260829010", 10000)
	require.NoError(t, err)
	_, err = svc.CreditForOrder(ctx, ref, "FO20260829011", 20000)
	require.NoError(t, err)
	_, err = svc.CreditForOrder(ctx, otherRef, "FO20260829012", 30000)
	require.NoError(t, err)

	// 只看得到自己的流水
	transactions, total, err := svc.ListTransactions(ctx, ref, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, transactions, 2)

	// 分页
	transactions, total, err = svc.ListTransactions(ctx, ref, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, transactions, 1)
}
