package repository

import (
	"context"

	"foodorder/internal/model"

	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create 追加一条积分流水，必须与余额变更在同一个事务内调用
func (r *TransactionRepository) Create(ctx context.Context, tx *gorm.DB, trans *model.PointsTransaction) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(trans).Error
}

func (r *TransactionRepository) GetByTransactionNo(ctx context.Context, transactionNo string) (*model.PointsTransaction, error) {
	var trans model.PointsTransaction
	err := r.db.WithContext(ctx).Where("transaction_no = ?", transactionNo).First(&trans).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &trans, nil
}

// GetByOrderNo 查某笔订单是否已经返过积分（订单完成路径的幂等依据）
// 入账事务内必须传 tx 重查：事务外的快速检查拦不住并发通知
func (r *TransactionRepository) GetByOrderNo(ctx context.Context, tx *gorm.DB, orderNo string) (*model.PointsTransaction, error) {
	if tx == nil {
		tx = r.db
	}

	var trans model.PointsTransaction
	err := tx.WithContext(ctx).
		Where("order_no = ? AND type = ?", orderNo, model.PointsTransactionEarned).
		First(&trans).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &trans, nil
}

func (r *TransactionRepository) ListByRef(ctx context.Context, ref model.AccountRef, page, pageSize int) ([]*model.PointsTransaction, int64, error) {
	var transactions []*model.PointsTransaction
	var total int64

	query := byRef(r.db.WithContext(ctx).Model(&model.PointsTransaction{}), ref)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&transactions).Error

	return transactions, total, err
}
