package handler

import (
	"foodorder/internal/auth"
	"foodorder/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	// 设置 gin 为发布模式（减少日志输出）
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	// 创建处理器
	h := NewHandler(db, rdb, cfg)
	resolver := auth.NewTokenResolver(&cfg.Auth)

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 奖励目录（公开）
		api.GET("/rewards", h.ListRewards)

		// 会话
		api.POST("/auth/session", AuthMiddleware(resolver, true), h.CreateSession)

		// 积分与兑换（需要登录）
		authed := api.Group("", AuthMiddleware(resolver, true))
		{
			loyalty := authed.Group("/loyalty")
			{
				loyalty.GET("/balance", h.GetBalance)
				loyalty.GET("/transactions", h.ListTransactions)
			}

			authed.POST("/rewards/:reward_id/redeem", h.RedeemReward)
			authed.GET("/vouchers", h.ListVouchers)
		}

		// 内部接口（订单/结算协作方）
		internal := api.Group("/internal")
		{
			internal.POST("/orders/complete", h.CompleteOrder)
			internal.POST("/vouchers/consume", h.ConsumeVoucher)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
