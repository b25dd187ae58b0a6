package service

import (
	"context"
	"testing"
	"time"

	"foodorder/internal/model"
	"foodorder/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// redeemVoucher 走完整兑换流程拿一张可核销的券
func redeemVoucher(t *testing.T, db *gorm.DB, ref model.AccountRef) *RedeemResult {
	t.Helper()

	seedBalance(t, db, ref, 500)
	reward := seedReward(t, db, 250, true, nil)

	result, err := NewRedeemService(db, testConfig()).Redeem(context.Background(), ref, reward.ID)
	require.NoError(t, err)
	return result
}

func TestConsume(t *testing.T) {
	db := newTestDB(t)
	svc := NewVoucherService(db)
	ctx := context.Background()

	ref := model.LegacyAccountRef(1)
	redeemed := redeemVoucher(t, db, ref)

	voucher, err := svc.Consume(ctx, redeemed.Voucher.Code, "FO20260829100")
	require.NoError(t, err)
	assert.Equal(t, model.VoucherStatusUsed, voucher.Status)
	assert.Equal(t, "FO20260829100", voucher.OrderNo)
	require.NotNil(t, voucher.UsedAt)

	// 对应的兑换记录也置已使用
	var redemption model.Redemption
	require.NoError(t, db.First(&redemption, redeemed.Redemption.ID).Error)
	assert.True(t, redemption.IsUsed)
}

func TestConsume_OnlyOnce(t *testing.T) {
	db := newTestDB(t)
	svc := NewVoucherService(db)
	ctx := context.Background()

	redeemed := redeemVoucher(t, db, model.LegacyAccountRef(1))

	_, err := svc.Consume(ctx, redeemed.Voucher.Code, "FO20260829101")
	require.NoError(t, err)

	// 同一张券第二次核销被拒
	_, err = svc.Consume(ctx, redeemed.Voucher.Code, "FO20260829102")
	require.ErrorIs(t, err, repository.ErrVoucherNotAvailable)

	// 第一次核销的订单号不被覆盖
	var voucher model.Voucher
	require.NoError(t, db.Where("code = ?", redeemed.Voucher.Code).First(&voucher).Error)
	assert.Equal(t, "FO20260829101", voucher.OrderNo)
}

func TestConsume_ExpiredVoucher(t *testing.T) {
	db := newTestDB(t)
	svc := NewVoucherService(db)
	ctx := context.Background()

	redeemed := redeemVoucher(t, db, model.LegacyAccountRef(1))

	// 把有效期拨到过去
	require.NoError(t, db.Model(&model.Voucher{}).
		Where("code = ?", redeemed.Voucher.Code).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	_, err := svc.Consume(ctx, redeemed.Voucher.Code, "FO20260829103")
	require.ErrorIs(t, err, repository.ErrVoucherNotAvailable)
}

func TestConsume_UnknownCode(t *testing.T) {
	db := newTestDB(t)
	svc := NewVoucherService(db)
	ctx := context.Background()

	_, err := svc.Consume(ctx, "VC00000000000000000000000000000000", "FO20260829104")
	require.ErrorIs(t, err, repository.ErrVoucherNotFound)

	_, err = svc.Consume(ctx, "", "FO20260829104")
	require.ErrorIs(t, err, repository.ErrVoucherNotFound)
}

func TestListVouchers(t *testing.T) {
	db := newTestDB(t)
	svc := NewVoucherService(db)
	ctx := context.Background()

	ref := model.LegacyAccountRef(1)
	otherRef := model.ExternalAccountRef("auth0|other")
	redeemVoucher(t, db, ref)
	redeemVoucher(t, db, otherRef)

	// 只看得到自己的券
	vouchers, total, err := svc.ListVouchers(ctx, ref, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, vouchers, 1)
	require.NotNil(t, vouchers[0].AccountID)
	assert.Equal(t, int64(1), *vouchers[0].AccountID)

	_, _, err = svc.ListVouchers(ctx, model.AccountRef{}, 1, 10)
	require.ErrorIs(t, err, ErrUnauthenticated)
}
