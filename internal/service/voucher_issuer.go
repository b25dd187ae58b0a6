package service

import (
	"context"
	"fmt"
	"strings"

	"foodorder/internal/model"
	"foodorder/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VoucherIssuer 优惠券签发
// 兑换事务的最后一步：生成不可猜测的券码并落库，
// 券的核销（结算侧）和过期（定时任务）不归它管
type VoucherIssuer struct {
	voucherRepo *repository.VoucherRepository
}

func NewVoucherIssuer(db *gorm.DB) *VoucherIssuer {
	return &VoucherIssuer{
		voucherRepo: repository.NewVoucherRepository(db),
	}
}

// Issue 在兑换事务内签发优惠券
// 折扣类型/力度继承奖励定义，有效期与兑换记录一致
func (i *VoucherIssuer) Issue(ctx context.Context, tx *gorm.DB, ref model.AccountRef, redemption *model.Redemption, reward *model.Reward) (*model.Voucher, error) {
	accountID, subjectID := ref.LedgerKeys()

	voucher := &model.Voucher{
		Code:              GenerateVoucherCode(),
		AccountID:         accountID,
		ExternalSubjectID: subjectID,
		RedemptionID:      redemption.ID,
		DiscountType:      reward.DiscountType,
		DiscountValue:     reward.DiscountValue,
		Status:            model.VoucherStatusActive,
		ExpiresAt:         redemption.ExpiresAt,
	}

	if err := i.voucherRepo.Create(ctx, tx, voucher); err != nil {
		return nil, fmt.Errorf("签发优惠券失败: %w", err)
	}
	return voucher, nil
}

// GenerateVoucherCode 生成券码
// uuid v4 有 122 位随机量，足以防止遍历撞码；去掉连字符转大写便于人工录入
func GenerateVoucherCode() string {
	return "VC" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}
