package service

import (
	"fmt"
	"testing"
	"time"

	"foodorder/internal/config"
	"foodorder/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestDB 每个测试一个独立的内存库，互不干扰
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&model.Account{},
		&model.LoyaltyBalance{},
		&model.PointsTransaction{},
		&model.Reward{},
		&model.Redemption{},
		&model.Voucher{},
		&model.OutboxMessage{},
	)
	require.NoError(t, err)

	return db
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Business.EarnPointsPerYuan = 1
	cfg.Business.DuplicateWindowSeconds = 60
	cfg.Business.VoucherValidDays = 30
	cfg.Business.RewardCacheSeconds = 300
	cfg.Business.MaxRetryCount = 5
	cfg.Kafka.Topic.LoyaltyEvents = "loyalty-events"
	cfg.Auth.JWTSecret = "test-secret"
	return cfg
}

func seedBalance(t *testing.T, db *gorm.DB, ref model.AccountRef, points int64) *model.LoyaltyBalance {
	t.Helper()

	accountID, subjectID := ref.LedgerKeys()
	balance := &model.LoyaltyBalance{
		AccountID:         accountID,
		ExternalSubjectID: subjectID,
		Points:            points,
		TotalEarned:       points,
	}
	require.NoError(t, db.Create(balance).Error)
	return balance
}

func seedReward(t *testing.T, db *gorm.DB, pointsRequired int64, active bool, expiresAt *time.Time) *model.Reward {
	t.Helper()

	reward := &model.Reward{
		Name:           fmt.Sprintf("满减券-%d", pointsRequired),
		PointsRequired: pointsRequired,
		DiscountType:   model.DiscountTypeAmount,
		DiscountValue:  500,
		IsActive:       active,
		ExpiresAt:      expiresAt,
	}
	require.NoError(t, db.Create(reward).Error)
	if !active {
		// IsActive 带 default:true 标签，零值 false 在 Create 时会被忽略，需显式写入
		require.NoError(t, db.Model(reward).Update("is_active", false).Error)
	}
	return reward
}

func fetchBalance(t *testing.T, db *gorm.DB, ref model.AccountRef) *model.LoyaltyBalance {
	t.Helper()

	var balance model.LoyaltyBalance
	query := db
	if ref.HasLegacyAccount {
		query = query.Where("account_id = ?", ref.AccountID)
	} else {
		query = query.Where("external_subject_id = ?", ref.ExternalSubjectID)
	}
	require.NoError(t, query.First(&balance).Error)
	return &balance
}
