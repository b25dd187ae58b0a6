package repository

import (
	"context"
	"errors"

	"foodorder/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrBalanceNotFound    = errors.New("积分账户不存在")
	ErrInsufficientPoints = errors.New("积分不足")
)

type BalanceRepository struct {
	db *gorm.DB
}

func NewBalanceRepository(db *gorm.DB) *BalanceRepository {
	return &BalanceRepository{db: db}
}

func (r *BalanceRepository) GetByRef(ctx context.Context, ref model.AccountRef) (*model.LoyaltyBalance, error) {
	var balance model.LoyaltyBalance
	err := byRef(r.db.WithContext(ctx), ref).First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBalanceNotFound
		}
		return nil, err
	}
	return &balance, nil
}

// GetByRefForUpdate 带排他行锁读余额，锁持有到外层事务提交或回滚
// 同一账户的并发兑换在这里排队串行化
func (r *BalanceRepository) GetByRefForUpdate(ctx context.Context, tx *gorm.DB, ref model.AccountRef) (*model.LoyaltyBalance, error) {
	var balance model.LoyaltyBalance
	err := byRef(forUpdate(tx.WithContext(ctx)), ref).First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBalanceNotFound
		}
		return nil, err
	}
	return &balance, nil
}

// Debit 扣减积分
// 【关键点】WHERE points >= ? 让扣减本身就是一次 CAS：
// 即使行锁纪律被破坏出现了 TOCTOU 间隙，也不可能把余额扣成负数。
// 影响行数为 0 一律视为积分不足，整个事务必须回滚
func (r *BalanceRepository) Debit(ctx context.Context, tx *gorm.DB, ref model.AccountRef, amount int64) error {
	result := byRef(tx.WithContext(ctx).Model(&model.LoyaltyBalance{}), ref).
		Where("points >= ?", amount).
		Updates(map[string]interface{}{
			"points":         gorm.Expr("points - ?", amount),
			"total_redeemed": gorm.Expr("total_redeemed + ?", amount),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrInsufficientPoints
	}

	return nil
}

// Credit 增加积分（订单完成返积分路径）
// 必须与扣减走同一套"先锁行再变更"的纪律，调用方需持有行锁
func (r *BalanceRepository) Credit(ctx context.Context, tx *gorm.DB, ref model.AccountRef, amount int64) error {
	result := byRef(tx.WithContext(ctx).Model(&model.LoyaltyBalance{}), ref).
		Updates(map[string]interface{}{
			"points":       gorm.Expr("points + ?", amount),
			"total_earned": gorm.Expr("total_earned + ?", amount),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrBalanceNotFound
	}

	return nil
}

// GetOrCreate 幂等创建积分账户（零余额）
// 键列按 AccountRef 分支二选一；并发重复创建靠唯一索引 + OnConflict DoNothing 兜底
func (r *BalanceRepository) GetOrCreate(ctx context.Context, tx *gorm.DB, ref model.AccountRef) (*model.LoyaltyBalance, error) {
	if tx == nil {
		tx = r.db
	}

	var balance model.LoyaltyBalance
	err := byRef(tx.WithContext(ctx), ref).First(&balance).Error
	if err == nil {
		return &balance, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	accountID, subjectID := ref.LedgerKeys()
	newBalance := &model.LoyaltyBalance{
		AccountID:         accountID,
		ExternalSubjectID: subjectID,
	}

	conflictColumn := "account_id"
	if !ref.HasLegacyAccount {
		conflictColumn = "external_subject_id"
	}

	err = tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: conflictColumn}},
			DoNothing: true,
		}).
		Create(newBalance).Error
	if err != nil {
		return nil, err
	}

	err = byRef(tx.WithContext(ctx), ref).First(&balance).Error
	if err != nil {
		return nil, err
	}
	return &balance, nil
}
