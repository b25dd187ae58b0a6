package service

import (
	"context"
	"errors"
	"fmt"

	"foodorder/internal/model"
	"foodorder/internal/repository"

	"gorm.io/gorm"
)

// IdentityService 身份解析
// 把"老账号会话"或"外部身份"统一解析成 AccountRef，整个系统只在这里做这件事。
// 账本的所有接口只接受解析结果，调用方不允许自己判断该用哪个键
type IdentityService struct {
	db          *gorm.DB
	accountRepo *repository.AccountRepository
	balanceRepo *repository.BalanceRepository
}

func NewIdentityService(db *gorm.DB) *IdentityService {
	return &IdentityService{
		db:          db,
		accountRepo: repository.NewAccountRepository(db),
		balanceRepo: repository.NewBalanceRepository(db),
	}
}

// Resolve 解析身份凭证，只读不写
//
// 外部身份的解析顺序：
// 1. 按邮箱找最早注册的老账号 —— 优先级最高。顾客可能先用邮箱密码注册过，
//    后来才用外部身份登录，邮箱能对上就认老账号，哪怕 subject 已关联到别处
// 2. 邮箱没对上，再按 subject 找已关联的老账号
// 3. 都没有 —— 纯外部身份，账本以 subject 为键
func (s *IdentityService) Resolve(ctx context.Context, cred model.Credential) (model.AccountRef, error) {
	if cred.IsLegacy() {
		account, err := s.accountRepo.GetByID(ctx, cred.AccountID)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return model.AccountRef{}, ErrUnauthenticated
			}
			return model.AccountRef{}, fmt.Errorf("查询账户失败: %w", err)
		}
		if account.ExternalSubjectID != nil {
			return model.LinkedAccountRef(account.ID, *account.ExternalSubjectID), nil
		}
		return model.LegacyAccountRef(account.ID), nil
	}

	if !cred.IsExternal() {
		return model.AccountRef{}, ErrUnauthenticated
	}

	account, err := s.accountRepo.GetByEmail(ctx, cred.Email)
	if err != nil {
		return model.AccountRef{}, fmt.Errorf("按邮箱查询账户失败: %w", err)
	}
	if account != nil {
		return model.LinkedAccountRef(account.ID, cred.SubjectID), nil
	}

	account, err = s.accountRepo.GetBySubjectID(ctx, cred.SubjectID)
	if err != nil {
		return model.AccountRef{}, fmt.Errorf("按外部身份查询账户失败: %w", err)
	}
	if account != nil {
		return model.LinkedAccountRef(account.ID, cred.SubjectID), nil
	}

	return model.ExternalAccountRef(cred.SubjectID), nil
}

// EnsureAccount 登录路径调用：解析之上再做幂等的"查找或创建 + 懒关联"
//
// 1. 邮箱撞上还没关联 subject 的老账号 —— 把 subject 懒关联上去
// 2. 纯外部身份且账本里已有以 subject 为键的历史余额 —— 保持外部键，
//    不补建老账号，否则后续查询切到新键会造成余额分裂
// 3. 纯外部身份且没有任何历史 —— 补建一行本地账号，后续都走老账号键
func (s *IdentityService) EnsureAccount(ctx context.Context, cred model.Credential) (model.AccountRef, error) {
	ref, err := s.Resolve(ctx, cred)
	if err != nil {
		return model.AccountRef{}, err
	}

	if !cred.IsExternal() {
		return ref, nil
	}

	if ref.HasLegacyAccount {
		if err := s.accountRepo.LinkSubjectID(ctx, ref.AccountID, cred.SubjectID); err != nil {
			return model.AccountRef{}, fmt.Errorf("关联外部身份失败: %w", err)
		}
		return ref, nil
	}

	_, err = s.balanceRepo.GetByRef(ctx, ref)
	if err == nil {
		return ref, nil
	}
	if !errors.Is(err, repository.ErrBalanceNotFound) {
		return model.AccountRef{}, fmt.Errorf("查询积分账户失败: %w", err)
	}

	account, err := s.accountRepo.GetOrCreateBySubject(ctx, cred.SubjectID, cred.Email)
	if err != nil {
		return model.AccountRef{}, fmt.Errorf("创建账户失败: %w", err)
	}
	return model.LinkedAccountRef(account.ID, cred.SubjectID), nil
}
