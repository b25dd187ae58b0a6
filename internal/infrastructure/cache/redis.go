package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"foodorder/internal/config"
	"foodorder/internal/model"

	"github.com/go-redis/redis/v8"
)

func InitRedis(cfg *config.RedisConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("连接 Redis 失败: %v", err)
	}

	log.Println("Redis 连接成功")
	return client
}

const rewardListKey = "loyalty:rewards:active"

// RewardCache 奖励目录缓存
// 目录读多写少，列表页直接打 Redis；缓存只服务展示，
// 兑换事务内永远直查数据库并加行锁，不信任缓存
type RewardCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRewardCache(client *redis.Client, ttl time.Duration) *RewardCache {
	return &RewardCache{client: client, ttl: ttl}
}

// GetActiveRewards 缓存未命中或解码失败都返回 (nil, nil)，由调用方回源
func (c *RewardCache) GetActiveRewards(ctx context.Context) ([]*model.Reward, error) {
	data, err := c.client.Get(ctx, rewardListKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var rewards []*model.Reward
	if err := json.Unmarshal(data, &rewards); err != nil {
		return nil, nil
	}
	return rewards, nil
}

func (c *RewardCache) SetActiveRewards(ctx context.Context, rewards []*model.Reward) error {
	data, err := json.Marshal(rewards)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, rewardListKey, data, c.ttl).Err()
}
