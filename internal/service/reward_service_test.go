package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListActiveRewards(t *testing.T) {
	db := newTestDB(t)
	svc := NewRewardService(db, nil, testConfig())
	ctx := context.Background()

	cheap := seedReward(t, db, 100, true, nil)
	pricey := seedReward(t, db, 500, true, nil)
	seedReward(t, db, 200, false, nil) // 下架

	expired := time.Now().Add(-time.Hour)
	seedReward(t, db, 300, true, &expired)

	rewards, err := svc.ListActiveRewards(ctx)
	require.NoError(t, err)
	require.Len(t, rewards, 2)

	// 按所需积分升序
	assert.Equal(t, cheap.ID, rewards[0].ID)
	assert.Equal(t, pricey.ID, rewards[1].ID)
}
