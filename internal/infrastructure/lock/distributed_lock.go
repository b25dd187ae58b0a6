package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// Redis 分布式锁
// ============================================================================
//
// 兑换本身的正确性完全依赖数据库行锁（多实例部署下这是唯一可信的串行化手段），
// 这把锁不参与兑换链路。它只用于后台定时任务的选主：
// 服务起多个实例时，优惠券过期扫描这类任务只应有一个实例在跑，
// 否则同一批券会被重复处理、日志翻倍。
//
// 加锁：SET key value NX EX timeout（NX 保证互斥，EX 防止持有者崩溃后死锁）
// 释放：Lua 脚本先比对 value 再删除，避免删掉别的实例后来持有的锁
// ============================================================================

var (
	ErrLockFailed = errors.New("获取分布式锁失败")
)

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string        // 锁持有者标识，释放时校验
	expiration time.Duration
}

func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 尝试获取锁（非阻塞）
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock 阻塞式获取锁（带重试）
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁，Lua 保证"比对 value + 删除"的原子性
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// NewJobLock 创建后台任务锁（按任务名维度）
// value 用实例标识，便于排查是哪个实例持有
func NewJobLock(client *redis.Client, jobName, instanceID string, expiration time.Duration) *DistributedLock {
	key := fmt.Sprintf("loyalty:job:lock:%s", jobName)
	return NewDistributedLock(client, key, instanceID, expiration)
}
