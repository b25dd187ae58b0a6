package service

import (
	"context"
	"log"
	"time"

	"foodorder/internal/config"
	"foodorder/internal/infrastructure/cache"
	"foodorder/internal/model"
	"foodorder/internal/repository"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// RewardService 奖励目录（只读侧）
// 列表页走 Redis 缓存；兑换事务不经过这里，永远直查数据库
type RewardService struct {
	rewardRepo *repository.RewardRepository
	cache      *cache.RewardCache
}

func NewRewardService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *RewardService {
	s := &RewardService{
		rewardRepo: repository.NewRewardRepository(db),
	}
	// 测试环境不起 Redis，直接回源
	if redisClient != nil {
		s.cache = cache.NewRewardCache(redisClient, time.Duration(cfg.Business.RewardCacheSeconds)*time.Second)
	}
	return s
}

// ListActiveRewards 查询当前可兑换的奖励
// 缓存不可用时直接回源，目录展示不因 Redis 故障不可用
func (s *RewardService) ListActiveRewards(ctx context.Context) ([]*model.Reward, error) {
	if s.cache != nil {
		rewards, err := s.cache.GetActiveRewards(ctx)
		if err != nil {
			log.Printf("读取奖励缓存失败: %v", err)
		}
		if rewards != nil {
			return rewards, nil
		}
	}

	rewards, err := s.rewardRepo.ListActive(ctx, time.Now())
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetActiveRewards(ctx, rewards); err != nil {
			log.Printf("写入奖励缓存失败: %v", err)
		}
	}
	return rewards, nil
}
