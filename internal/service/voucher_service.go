package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"foodorder/internal/model"
	"foodorder/internal/repository"

	"gorm.io/gorm"
)

// VoucherService 优惠券查询与核销
// 核销由结算侧调用：券置 USED、对应兑换记录置已使用，一个事务内完成
type VoucherService struct {
	db             *gorm.DB
	voucherRepo    *repository.VoucherRepository
	redemptionRepo *repository.RedemptionRepository
}

func NewVoucherService(db *gorm.DB) *VoucherService {
	return &VoucherService{
		db:             db,
		voucherRepo:    repository.NewVoucherRepository(db),
		redemptionRepo: repository.NewRedemptionRepository(db),
	}
}

func (s *VoucherService) ListVouchers(ctx context.Context, ref model.AccountRef, page, pageSize int) ([]*model.Voucher, int64, error) {
	if ref.IsGuest() {
		return nil, 0, ErrUnauthenticated
	}
	return s.voucherRepo.ListByRef(ctx, ref, page, pageSize)
}

// Consume 结算时核销优惠券
// 状态条件保证一张券只能核销一次；并发核销只有一个成功
func (s *VoucherService) Consume(ctx context.Context, code, orderNo string) (*model.Voucher, error) {
	if code == "" {
		return nil, repository.ErrVoucherNotFound
	}

	voucher, err := s.voucherRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.voucherRepo.Consume(ctx, tx, code, orderNo, time.Now()); err != nil {
			return err
		}
		if err := s.redemptionRepo.MarkUsed(ctx, tx, voucher.RedemptionID); err != nil {
			// 兑换记录已被标记过而券还是 ACTIVE，属于数据不一致，不应吞掉
			if errors.Is(err, repository.ErrRedemptionNotFound) {
				return fmt.Errorf("兑换记录状态异常: %w", err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("优惠券核销成功: code=%s, orderNo=%s", code, orderNo)

	return s.voucherRepo.GetByCode(ctx, code)
}
