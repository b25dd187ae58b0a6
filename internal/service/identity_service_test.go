package service

import (
	"context"
	"testing"
	"time"

	"foodorder/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedAccount(t *testing.T, db *gorm.DB, email string, subjectID *string, createdAt time.Time) *model.Account {
	t.Helper()

	account := &model.Account{
		Email:             email,
		Name:              "测试顾客",
		ExternalSubjectID: subjectID,
		Role:              model.RoleCustomer,
		CreatedAt:         createdAt,
	}
	require.NoError(t, db.Create(account).Error)
	return account
}

func strPtr(s string) *string { return &s }

func TestResolve_LegacySession(t *testing.T) {
	db := newTestDB(t)
	svc := NewIdentityService(db)
	ctx := context.Background()

	account := seedAccount(t, db, "alice@example.com", nil, time.Now())

	ref, err := svc.Resolve(ctx, model.Credential{AccountID: account.ID})
	require.NoError(t, err)
	assert.True(t, ref.HasLegacyAccount)
	assert.Equal(t, account.ID, ref.AccountID)
	assert.Empty(t, ref.ExternalSubjectID)
}

func TestResolve_LegacySessionLinked(t *testing.T) {
	db := newTestDB(t)
	svc := NewIdentityService(db)
	ctx := context.Background()

	account := seedAccount(t, db, "alice@example.com", strPtr("auth0|alice"), time.Now())

	// 老账号已关联外部身份，解析结果带上 subject
	ref, err := svc.Resolve(ctx, model.Credential{AccountID: account.ID})
	require.NoError(t, err)
	assert.True(t, ref.HasLegacyAccount)
	assert.Equal(t, "auth0|alice", ref.ExternalSubjectID)
}

func TestResolve_LegacySessionUnknownAccount(t *testing.T) {
	db := newTestDB(t)
	svc := NewIdentityService(db)

	_, err := svc.Resolve(context.Background(), model.Credential{AccountID: 999})
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolve_EmptyCredential(t *testing.T) {
	db := newTestDB(t)
	svc := NewIdentityService(db)

	_, err := svc.Resolve(context.Background(), model.Credential{})
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolve_ExternalEmailMatch(t *testing.T) {
	db := newTestDB(t)
	svc := NewIdentityService(db)
	ctx := context.Background()

	account := seedAccount(t, db, "Alice@Example.com", nil, time.Now())

	// 邮箱大小写、首尾空白都要归一化后再比
	ref, err := svc.Resolve(ctx, model.Credential{
		SubjectID: "auth0|alice",
		Email:     "  alice@example.com ",
	})
	require.NoError(t, err)
	assert.True(t, ref.HasLegacyAccount)
	assert.Equal(t, account.ID, ref.AccountID)
	assert.Equal(t, "auth0|alice", ref.ExternalSubjectID)
}

func TestResolve_EmailMatchOldestWins(t *testing.T) {
	db := newTestDB(t)
	svc := NewIdentityService(db)
	ctx := context.Background()

	// 同一邮箱两行账号，取注册最早的那一行
	older := seedAccount(t, db, "bob@example.com", nil, time.Now().Add(-48*time.Hour))
	seedAccount(t, db, "bob@example.com", nil, time.Now())

	ref, err := svc.Resolve(ctx, model.Credential{SubjectID: "auth0|bob", Email: "bob@example.com"})
	require.NoError(t, err)
	assert.Equal(t, older.ID, ref.AccountID)
}

func TestResolve_EmailBeatsSubjectLink(t *testing.T) {
	db := newTestDB(t)
	svc := NewIdentityService(db)
	ctx := context.Background()

	// subject 已关联到另一行账号，但邮箱对上的账号优先
	emailMatch := seedAccount(t, db, "carol@example.com", nil, time.Now().Add(-time.Hour))
	seedAccount(t, db, "other@example.com", strPtr("auth0|carol"), time.Now())

	ref, err := svc.Resolve(ctx, model.Credential{SubjectID: "auth0|carol", Email: "carol@example.com"})
	require.NoError(t, err)
	assert.Equal(t, emailMatch.ID, ref.AccountID)
}

func TestResolve_SubjectFallback(t *testing.T) {
	db := newTestDB(t)
	svc := NewIdentityService(db)
	ctx := context.Background()

	// 邮箱没对上，按 subject 找已关联的账号
	linked := seedAccount(t, db, "dave@example.com", strPtr("auth0|dave"), time.Now())

	ref, err := svc.Resolve(ctx, model.Credential{SubjectID: "auth0|dave", Email: "new-mail@example.com"})
	require.NoError(t, err)
	assert.True(t, ref.HasLegacyAccount)
	assert.Equal(t, linked.ID, ref.AccountID)
}

func TestResolve_ProviderOnly(t *testing.T) {
	db := newTestDB(t)
	svc := NewIdentityService(db)
	ctx := context.Background()

	// 既没有邮箱匹配也没有 subject 关联，账本以 subject 为键
	ref, err := svc.Resolve(ctx, model.Credential{SubjectID: "auth0|eve", Email: "eve@example.com"})
	require.NoError(t, err)
	assert.False(t, ref.HasLegacyAccount)
	assert.Equal(t, "auth0|eve", ref.ExternalSubjectID)

	// Resolve 只读，不应该补建账号
	var count int64
	require.NoError(t, db.Model(&model.Account{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEnsureAccount_LazyLink(t *testing.T) {
	db := newTestDB(t)
	svc := NewIdentityService(db)
	ctx := context.Background()

	account := seedAccount(t, db, "frank@example.com", nil, time.Now())

	cred := model.Credential{SubjectID: "auth0|frank", Email: "frank@example.com"}
	ref, err := svc.EnsureAccount(ctx, cred)
	require.NoError(t, err)
	assert.Equal(t, account.ID, ref.AccountID)

	// subject 被懒关联到老账号上
	var reloaded model.Account
	require.NoError(t, db.First(&reloaded, account.ID).Error)
	require.NotNil(t, reloaded.ExternalSubjectID)
	assert.Equal(t, "auth0|frank", *reloaded.ExternalSubjectID)

	// 再登录一次，幂等
	ref2, err := svc.EnsureAccount(ctx, cred)
	require.NoError(t, err)
	assert.Equal(t, ref, ref2)
}

func TestEnsureAccount_KeepsSubjectKeyWithHistory(t *testing.T) {
	db := newTestDB(t)
	svc := NewIdentityService(db)
	ctx := context.Background()

	// 账本里已有以 subject 为键的历史余额，不能切到新建账号的键上
	seedBalance(t, db, model.ExternalAccountRef("auth0|grace"), 120)

	ref, err := svc.EnsureAccount(ctx, model.Credential{SubjectID: "auth0|grace", Email: "grace@example.com"})
	require.NoError(t, err)
	assert.False(t, ref.HasLegacyAccount)
	assert.Equal(t, "auth0|grace", ref.ExternalSubjectID)

	// 没有补建账号
	var count int64
	require.NoError(t, db.Model(&model.Account{}).Count(&count).Error)
	assert.Zero(t, count)

	// 历史余额还能用这个键查到
	assert.Equal(t, int64(120), fetchBalance(t, db, ref).Points)
}

func TestEnsureAccount_CreatesLocalAccount(t *testing.T) {
	db := newTestDB(t)
	svc := NewIdentityService(db)
	ctx := context.Background()

	cred := model.Credential{SubjectID: "auth0|heidi", Email: "heidi@example.com"}

	// 纯外部身份首次登录且无历史余额，补建本地账号
	ref, err := svc.EnsureAccount(ctx, cred)
	require.NoError(t, err)
	assert.True(t, ref.HasLegacyAccount)
	assert.NotZero(t, ref.AccountID)

	// 重复登录不会建第二行
	ref2, err := svc.EnsureAccount(ctx, cred)
	require.NoError(t, err)
	assert.Equal(t, ref.AccountID, ref2.AccountID)

	var count int64
	require.NoError(t, db.Model(&model.Account{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
