package job

import (
	"context"
	"log"
	"time"

	"foodorder/internal/infrastructure/lock"
	"foodorder/internal/repository"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// VoucherExpiryJob 优惠券过期扫描任务
// 把过了有效期还是 ACTIVE 的券置为 EXPIRED。
// 多实例部署时通过 Redis 任务锁选主，同一轮只有一个实例在扫
type VoucherExpiryJob struct {
	db          *gorm.DB
	redisClient *redis.Client
	voucherRepo *repository.VoucherRepository
	instanceID  string
	stopCh      chan struct{}
	interval    time.Duration
	batchSize   int
}

func NewVoucherExpiryJob(db *gorm.DB, redisClient *redis.Client, instanceID string) *VoucherExpiryJob {
	return &VoucherExpiryJob{
		db:          db,
		redisClient: redisClient,
		voucherRepo: repository.NewVoucherRepository(db),
		instanceID:  instanceID,
		stopCh:      make(chan struct{}),
		interval:    time.Minute,
		batchSize:   100,
	}
}

func (j *VoucherExpiryJob) Start(ctx context.Context) {
	log.Println("[VoucherExpiryJob] 优惠券过期扫描任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[VoucherExpiryJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[VoucherExpiryJob] 任务停止")
			return
		case <-ticker.C:
			j.expireVouchers(ctx)
		}
	}
}

func (j *VoucherExpiryJob) Stop() {
	close(j.stopCh)
}

func (j *VoucherExpiryJob) expireVouchers(ctx context.Context) {
	jobLock := lock.NewJobLock(j.redisClient, "voucher_expiry", j.instanceID, 50*time.Second)
	acquired, err := jobLock.TryLock(ctx)
	if err != nil {
		log.Printf("[VoucherExpiryJob] 获取任务锁失败: %v", err)
		return
	}
	if !acquired {
		// 别的实例在扫，本轮跳过
		return
	}
	defer jobLock.Unlock(ctx)

	vouchers, err := j.voucherRepo.ListExpired(ctx, time.Now(), j.batchSize)
	if err != nil {
		log.Printf("[VoucherExpiryJob] 查询过期优惠券失败: %v", err)
		return
	}

	if len(vouchers) == 0 {
		return
	}

	expiredCount := 0
	for _, voucher := range vouchers {
		if err := j.voucherRepo.Expire(ctx, voucher.ID); err != nil {
			// 扫描和核销并发时会走到这里，直接跳过
			continue
		}
		expiredCount++
	}

	log.Printf("[VoucherExpiryJob] 本次置过期 %d 张优惠券", expiredCount)
}
