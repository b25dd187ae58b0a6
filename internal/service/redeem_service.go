package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"foodorder/internal/config"
	"foodorder/internal/model"
	"foodorder/internal/repository"
	"foodorder/pkg/idgen"

	"gorm.io/gorm"
)

// RedeemService 积分兑换引擎
// 整个兑换是一个数据库事务，正确性完全依赖余额行的排他锁：
// 同一账户的并发兑换在锁上排队，后来的事务看到的是前一个已提交的余额。
// 不依赖任何进程内互斥量 —— 多实例部署时进程内的锁保护不了任何东西
type RedeemService struct {
	db              *gorm.DB
	cfg             *config.Config
	rewardRepo      *repository.RewardRepository
	balanceRepo     *repository.BalanceRepository
	transactionRepo *repository.TransactionRepository
	redemptionRepo  *repository.RedemptionRepository
	outboxRepo      *repository.OutboxRepository
	issuer          *VoucherIssuer
	ledger          *LedgerService
}

func NewRedeemService(db *gorm.DB, cfg *config.Config) *RedeemService {
	return &RedeemService{
		db:              db,
		cfg:             cfg,
		rewardRepo:      repository.NewRewardRepository(db),
		balanceRepo:     repository.NewBalanceRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		redemptionRepo:  repository.NewRedemptionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
		issuer:          NewVoucherIssuer(db),
		ledger:          NewLedgerService(db, cfg),
	}
}

type RedeemResult struct {
	Redemption *model.Redemption `json:"redemption"`
	Reward     *model.Reward     `json:"reward"`
	Voucher    *model.Voucher    `json:"voucher"`
}

// Redeem 用积分兑换奖励，成功返回签发的优惠券
//
// 【关键点】一个事务内按固定顺序执行，任何一步失败整体回滚：
// 1. 锁定有效奖励（不存在/下架/过期 -> 拒绝）
// 2. 锁定余额行（没有积分账户 -> 拒绝；这一步串行化同账户的并发兑换）
// 3. 余额与所需积分比较，不足带差额拒绝
// 4. 回查重复提交窗口（锁拦不住"第一笔已提交、第二笔才拿到锁"的场景）
// 5. 写兑换记录
// 6. 写扣减流水
// 7. CAS 扣减余额（WHERE points >= ?，影响 0 行视为积分不足，硬校验）
// 8. 签发优惠券、写积分事件，提交
func (s *RedeemService) Redeem(ctx context.Context, ref model.AccountRef, rewardID int64) (*RedeemResult, error) {
	if ref.IsGuest() {
		return nil, ErrUnauthenticated
	}

	var result RedeemResult

	err := s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		reward, err := s.rewardRepo.GetActiveForUpdate(ctx, tx, rewardID, now)
		if err != nil {
			if errors.Is(err, repository.ErrRewardNotFound) {
				return err
			}
			return fmt.Errorf("查询奖励失败: %w", err)
		}

		balance, err := s.balanceRepo.GetByRefForUpdate(ctx, tx, ref)
		if err != nil {
			if errors.Is(err, repository.ErrBalanceNotFound) {
				return ErrNoLedgerRecord
			}
			return fmt.Errorf("锁定积分账户失败: %w", err)
		}

		if balance.Points < reward.PointsRequired {
			return &InsufficientPointsError{
				Required:  reward.PointsRequired,
				Available: balance.Points,
			}
		}

		window := time.Duration(s.cfg.Business.DuplicateWindowSeconds) * time.Second
		count, err := s.redemptionRepo.CountRecentPending(ctx, tx, ref, rewardID, now.Add(-window))
		if err != nil {
			return fmt.Errorf("回查兑换记录失败: %w", err)
		}
		if count > 0 {
			return ErrDuplicateRedemption
		}

		accountID, subjectID := ref.LedgerKeys()
		redemption := &model.Redemption{
			RedemptionNo:      idgen.GenerateRedemptionNo(),
			AccountID:         accountID,
			ExternalSubjectID: subjectID,
			RewardID:          reward.ID,
			PointsSpent:       reward.PointsRequired,
			ExpiresAt:         now.AddDate(0, 0, s.voucherValidDays(reward)),
		}
		if err := s.redemptionRepo.Create(ctx, tx, redemption); err != nil {
			return fmt.Errorf("创建兑换记录失败: %w", err)
		}

		transaction := &model.PointsTransaction{
			TransactionNo:     idgen.GenerateTransactionNo(),
			AccountID:         accountID,
			ExternalSubjectID: subjectID,
			Points:            -reward.PointsRequired,
			Type:              model.PointsTransactionRedeemed,
			Description:       fmt.Sprintf("积分兑换-%s", reward.Name),
			BalanceBefore:     balance.Points,
			BalanceAfter:      balance.Points - reward.PointsRequired,
		}
		if err := s.transactionRepo.Create(ctx, tx, transaction); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		if err := s.balanceRepo.Debit(ctx, tx, ref, reward.PointsRequired); err != nil {
			if errors.Is(err, repository.ErrInsufficientPoints) {
				// 行锁本该挡住这种竞态，走到这里说明锁纪律被破坏了，照样硬拒绝
				return &InsufficientPointsError{
					Required:  reward.PointsRequired,
					Available: balance.Points,
				}
			}
			return fmt.Errorf("扣减积分失败: %w", err)
		}

		voucher, err := s.issuer.Issue(ctx, tx, ref, redemption, reward)
		if err != nil {
			return err
		}

		if err := s.ledger.createOutboxEvent(ctx, tx, model.EventPointsRedeemed, redemption.RedemptionNo, map[string]interface{}{
			"redemption_no": redemption.RedemptionNo,
			"reward_id":     reward.ID,
			"reward_name":   reward.Name,
			"points_spent":  reward.PointsRequired,
			"voucher_code":  voucher.Code,
			"redeemed_at":   now.Format(time.RFC3339),
		}, ref); err != nil {
			return err
		}

		result = RedeemResult{
			Redemption: redemption,
			Reward:     reward,
			Voucher:    voucher,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("兑换成功: redemptionNo=%s, rewardID=%d, points=%d",
		result.Redemption.RedemptionNo, rewardID, result.Reward.PointsRequired)

	return &result, nil
}

func (s *RedeemService) voucherValidDays(reward *model.Reward) int {
	if reward.VoucherValidDays > 0 {
		return reward.VoucherValidDays
	}
	return s.cfg.Business.VoucherValidDays
}
