package service

import (
	"context"
	"encoding/json"
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

// LedgerService 积分账本
// 余额查询、流水查询和订单完成返积分（入账路径）。
// 入账与兑换扣减走同一套"先锁行、再校验、再变更"的纪律
type LedgerService struct {
	db              *gorm.DB
	cfg             *config.Config
	balanceRepo     *repository.BalanceRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
}

func NewLedgerService(db *gorm.DB, cfg *config.Config) *LedgerService {
	return &LedgerService{
		db:              db,
		cfg:             cfg,
		balanceRepo:     repository.NewBalanceRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
	}
}

// GetBalance 查询余额，没有积分账户时返回全零视图（展示用，不落库）
func (s *LedgerService) GetBalance(ctx context.Context, ref model.AccountRef) (*model.LoyaltyBalance, error) {
	if ref.IsGuest() {
		return nil, ErrUnauthenticated
	}

	balance, err := s.balanceRepo.GetByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, repository.ErrBalanceNotFound) {
			accountID, subjectID := ref.LedgerKeys()
			return &model.LoyaltyBalance{AccountID: accountID, ExternalSubjectID: subjectID}, nil
		}
		return nil, err
	}
	return balance, nil
}

func (s *LedgerService) ListTransactions(ctx context.Context, ref model.AccountRef, page, pageSize int) ([]*model.PointsTransaction, int64, error) {
	if ref.IsGuest() {
		return nil, 0, ErrUnauthenticated
	}
	return s.transactionRepo.ListByRef(ctx, ref, page, pageSize)
}

type CreditResult struct {
	PointsEarned  int64 `json:"points_earned"`
	Balance       int64 `json:"balance"`
	AlreadyEarned bool  `json:"already_earned"` // 该订单之前已经返过积分（幂等命中）
}

// CreditForOrder 订单完成返积分
// 按订单金额（分）折算积分；同一订单号只返一次（按 EARNED 流水幂等）
func (s *LedgerService) CreditForOrder(ctx context.Context, ref model.AccountRef, orderNo string, orderAmount int64) (*CreditResult, error) {
	if ref.IsGuest() {
		return nil, ErrUnauthenticated
	}
	if orderNo == "" || orderAmount <= 0 {
		return nil, errors.New("订单号和订单金额不能为空")
	}

	points := orderAmount / 100 * s.cfg.Business.EarnPointsPerYuan
	if points <= 0 {
		return &CreditResult{}, nil
	}

	// 快速检查：订单已返过积分时不用开事务
	existing, err := s.transactionRepo.GetByOrderNo(ctx, nil, orderNo)
	if err != nil {
		return nil, fmt.Errorf("查询流水失败: %w", err)
	}
	if existing != nil {
		return &CreditResult{
			PointsEarned:  existing.Points,
			Balance:       existing.BalanceAfter,
			AlreadyEarned: true,
		}, nil
	}

	var result *CreditResult
	err = s.db.Transaction(func(tx *gorm.DB) error {
		r, err := s.creditForOrder(ctx, tx, ref, orderNo, points)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyEarned {
		log.Printf("积分入账成功: orderNo=%s, points=%d", orderNo, points)
	}
	return result, nil
}

// creditForOrder 事务内入账
// 【关键点】拿到余额行锁之后必须按订单号重查流水：同一订单的两笔并发通知
// 都可能通过事务外的快速检查，行锁把它们串行化之后，后拿到锁的事务在这里
// 命中前一笔已提交的 EARNED 流水，返回幂等结果而不是再入账一次
func (s *LedgerService) creditForOrder(ctx context.Context, tx *gorm.DB, ref model.AccountRef, orderNo string, points int64) (*CreditResult, error) {
	if _, err := s.balanceRepo.GetOrCreate(ctx, tx, ref); err != nil {
		return nil, fmt.Errorf("创建积分账户失败: %w", err)
	}

	balance, err := s.balanceRepo.GetByRefForUpdate(ctx, tx, ref)
	if err != nil {
		return nil, fmt.Errorf("锁定积分账户失败: %w", err)
	}

	existing, err := s.transactionRepo.GetByOrderNo(ctx, tx, orderNo)
	if err != nil {
		return nil, fmt.Errorf("查询流水失败: %w", err)
	}
	if existing != nil {
		return &CreditResult{
			PointsEarned:  existing.Points,
			Balance:       existing.BalanceAfter,
			AlreadyEarned: true,
		}, nil
	}

	if err := s.balanceRepo.Credit(ctx, tx, ref, points); err != nil {
		return nil, fmt.Errorf("积分入账失败: %w", err)
	}

	accountID, subjectID := ref.LedgerKeys()
	transaction := &model.PointsTransaction{
		TransactionNo:     idgen.GenerateTransactionNo(),
		AccountID:         accountID,
		ExternalSubjectID: subjectID,
		Points:            points,
		Type:              model.PointsTransactionEarned,
		Description:       fmt.Sprintf("订单完成返积分-%s", orderNo),
		OrderNo:           orderNo,
		BalanceBefore:     balance.Points,
		BalanceAfter:      balance.Points + points,
	}
	if err := s.transactionRepo.Create(ctx, tx, transaction); err != nil {
		return nil, fmt.Errorf("记录流水失败: %w", err)
	}

	if err := s.createOutboxEvent(ctx, tx, model.EventPointsEarned, orderNo, map[string]interface{}{
		"order_no":      orderNo,
		"points":        points,
		"balance_after": balance.Points + points,
		"earned_at":     time.Now().Format(time.RFC3339),
	}, ref); err != nil {
		return nil, err
	}

	return &CreditResult{
		PointsEarned: points,
		Balance:      balance.Points + points,
	}, nil
}

// createOutboxEvent 写积分事件到发件箱，与余额变更同事务
func (s *LedgerService) createOutboxEvent(ctx context.Context, tx *gorm.DB, event, key string, payload map[string]interface{}, ref model.AccountRef) error {
	accountID, subjectID := ref.LedgerKeys()
	payload["event"] = event
	payload["account_id"] = accountID
	payload["external_subject_id"] = subjectID

	payloadBytes, _ := json.Marshal(payload)

	msg := &model.OutboxMessage{
		MessageKey: key,
		Topic:      s.cfg.Kafka.Topic.LoyaltyEvents,
		Payload:    string(payloadBytes),
		Status:     model.OutboxStatusPending,
	}
	if err := s.outboxRepo.Create(ctx, tx, msg); err != nil {
		return fmt.Errorf("写入消息失败: %w", err)
	}
	return nil
}
