package repository

import (
	"context"
	"errors"
	"strings"

	"foodorder/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAccountNotFound = errors.New("账户不存在")
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).First(&account, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetByEmail 按邮箱查找最早注册的本地账号
// 忽略大小写和首尾空白；同一邮箱有多个账号时取创建时间最早的一个，
// 未找到返回 (nil, nil)
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return nil, nil
	}

	var account model.Account
	err := r.db.WithContext(ctx).
		Where("LOWER(TRIM(email)) = ?", normalized).
		Order("created_at ASC").
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// GetBySubjectID 按外部身份 subject 查找已关联的本地账号，未找到返回 (nil, nil)
func (r *AccountRepository) GetBySubjectID(ctx context.Context, subjectID string) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).
		Where("external_subject_id = ?", subjectID).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// LinkSubjectID 把外部身份懒关联到本地账号
// 只在 external_subject_id 还是 NULL 时写入，天然幂等；
// 已经关联过（无论关联到谁）都不覆盖
func (r *AccountRepository) LinkSubjectID(ctx context.Context, accountID int64, subjectID string) error {
	return r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ? AND external_subject_id IS NULL", accountID).
		Update("external_subject_id", subjectID).Error
}

// GetOrCreateBySubject 幂等的"查找或创建"本地账号
// 外部身份首次登录且邮箱匹配不到任何老账号时，为其补建一行；
// 并发重复创建靠 external_subject_id 唯一索引 + OnConflict DoNothing 兜底
func (r *AccountRepository) GetOrCreateBySubject(ctx context.Context, subjectID, email string) (*model.Account, error) {
	account, err := r.GetBySubjectID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}

	sid := subjectID
	newAccount := &model.Account{
		Email:             strings.TrimSpace(email),
		ExternalSubjectID: &sid,
		Role:              model.RoleCustomer,
	}

	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_subject_id"}},
			DoNothing: true,
		}).
		Create(newAccount).Error
	if err != nil {
		return nil, err
	}

	account, err = r.GetBySubjectID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}
