package handler

import (
	"errors"
	"strconv"

	"foodorder/internal/config"
	"foodorder/internal/infrastructure/database"
	"foodorder/internal/model"
	"foodorder/internal/repository"
	"foodorder/internal/service"
	"foodorder/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	identityService *service.IdentityService
	ledgerService   *service.LedgerService
	redeemService   *service.RedeemService
	rewardService   *service.RewardService
	voucherService  *service.VoucherService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	return &Handler{
		identityService: service.NewIdentityService(db),
		ledgerService:   service.NewLedgerService(db, cfg),
		redeemService:   service.NewRedeemService(db, cfg),
		rewardService:   service.NewRewardService(db, rdb, cfg),
		voucherService:  service.NewVoucherService(db),
	}
}

// resolveRef 解析当前请求的账户引用，失败时已写好响应
func (h *Handler) resolveRef(c *gin.Context) (model.AccountRef, bool) {
	cred, ok := credentialFrom(c)
	if !ok {
		response.Unauthorized(c, "请先登录")
		return model.AccountRef{}, false
	}

	ref, err := h.identityService.Resolve(c.Request.Context(), cred)
	if err != nil {
		if errors.Is(err, service.ErrUnauthenticated) {
			response.Unauthorized(c, "登录凭证无效")
			return model.AccountRef{}, false
		}
		response.ServerError(c, "身份解析失败")
		return model.AccountRef{}, false
	}
	return ref, true
}

// ============================================================
// 会话相关接口
// ============================================================

// CreateSession 登录/绑定入口
// POST /api/v1/auth/session
// 幂等：邮箱撞上老账号做懒关联；纯外部身份按需补建本地账号
func (h *Handler) CreateSession(c *gin.Context) {
	cred, ok := credentialFrom(c)
	if !ok {
		response.Unauthorized(c, "请先登录")
		return
	}

	ref, err := h.identityService.EnsureAccount(c.Request.Context(), cred)
	if err != nil {
		if errors.Is(err, service.ErrUnauthenticated) {
			response.Unauthorized(c, "登录凭证无效")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"account_ref": ref,
	})
}

// ============================================================
// 积分账本接口
// ============================================================

// GetBalance 查询积分余额
// GET /api/v1/loyalty/balance
func (h *Handler) GetBalance(c *gin.Context) {
	ref, ok := h.resolveRef(c)
	if !ok {
		return
	}

	balance, err := h.ledgerService.GetBalance(c.Request.Context(), ref)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"points":         balance.Points,
		"total_earned":   balance.TotalEarned,
		"total_redeemed": balance.TotalRedeemed,
	})
}

// ListTransactions 查询积分流水
// GET /api/v1/loyalty/transactions?page=1&page_size=10
func (h *Handler) ListTransactions(c *gin.Context) {
	ref, ok := h.resolveRef(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	transactions, total, err := h.ledgerService.ListTransactions(c.Request.Context(), ref, page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":      transactions,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 奖励与兑换接口
// ============================================================

// ListRewards 查询可兑换奖励
// GET /api/v1/rewards
func (h *Handler) ListRewards(c *gin.Context) {
	rewards, err := h.rewardService.ListActiveRewards(c.Request.Context())
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list": rewards,
	})
}

// RedeemReward 积分兑换
// POST /api/v1/rewards/:reward_id/redeem
//
// 【关键点】兑换是积分系统最核心的操作，需要保证：
// 1. 原子性：兑换记录、流水、余额扣减、券签发同成功同失败
// 2. 并发安全：余额行锁串行化同账户的并发兑换
// 3. 防重复提交：60 秒窗口内同账户同奖励只允许一笔未核销兑换
func (h *Handler) RedeemReward(c *gin.Context) {
	rewardID, err := strconv.ParseInt(c.Param("reward_id"), 10, 64)
	if err != nil || rewardID <= 0 {
		response.ParamError(c, "reward_id 参数错误")
		return
	}

	ref, ok := h.resolveRef(c)
	if !ok {
		return
	}

	result, err := h.redeemService.Redeem(c.Request.Context(), ref, rewardID)
	if err != nil {
		h.writeRedeemError(c, err)
		return
	}

	response.Success(c, gin.H{
		"redemption": result.Redemption,
		"reward":     result.Reward,
		"voucher":    result.Voucher,
		"message":    "兑换成功",
	})
}

// writeRedeemError 错误分类
// 业务拒绝一律 400（重试没有意义），锁超时/死锁等瞬时故障 500（可退避重试）
func (h *Handler) writeRedeemError(c *gin.Context, err error) {
	var insufficientErr *service.InsufficientPointsError

	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		response.Unauthorized(c, "请先登录")
	case errors.Is(err, repository.ErrRewardNotFound):
		response.BusinessError(c, response.CodeRewardNotFound, err.Error(), nil)
	case errors.Is(err, service.ErrNoLedgerRecord):
		response.BusinessError(c, response.CodeNoLedgerRecord, err.Error(), nil)
	case errors.As(err, &insufficientErr):
		response.BusinessError(c, response.CodeInsufficientPoints, insufficientErr.Error(), gin.H{
			"required":  insufficientErr.Required,
			"available": insufficientErr.Available,
			"shortfall": insufficientErr.Shortfall(),
		})
	case errors.Is(err, service.ErrDuplicateRedemption):
		response.BusinessError(c, response.CodeDuplicateRedemption, err.Error(), nil)
	case database.IsRetriable(err):
		response.ServerError(c, "系统繁忙，请稍后重试")
	default:
		response.ServerError(c, "兑换失败，请稍后重试")
	}
}

// ============================================================
// 优惠券接口
// ============================================================

// ListVouchers 查询我的优惠券
// GET /api/v1/vouchers?page=1&page_size=10
func (h *Handler) ListVouchers(c *gin.Context) {
	ref, ok := h.resolveRef(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	vouchers, total, err := h.voucherService.ListVouchers(c.Request.Context(), ref, page, pageSize)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"list":      vouchers,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 内部接口（订单/结算协作方调用）
// ============================================================

// CompleteOrderRequest 订单完成通知
// 订单服务知道顾客身份，两个键按当时下单的身份传一个
type CompleteOrderRequest struct {
	OrderNo           string `json:"order_no" binding:"required"`
	OrderAmount       int64  `json:"order_amount" binding:"required,gt=0"` // 订单金额（分）
	AccountID         int64  `json:"account_id"`
	ExternalSubjectID string `json:"external_subject_id"`
}

// CompleteOrder 订单完成返积分
// POST /api/v1/internal/orders/complete
func (h *Handler) CompleteOrder(c *gin.Context) {
	var req CompleteOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	var ref model.AccountRef
	switch {
	case req.AccountID > 0:
		ref = model.LegacyAccountRef(req.AccountID)
	case req.ExternalSubjectID != "":
		ref = model.ExternalAccountRef(req.ExternalSubjectID)
	default:
		response.ParamError(c, "必须提供 account_id 或 external_subject_id")
		return
	}

	result, err := h.ledgerService.CreditForOrder(c.Request.Context(), ref, req.OrderNo, req.OrderAmount)
	if err != nil {
		if database.IsRetriable(err) {
			response.ServerError(c, "系统繁忙，请稍后重试")
			return
		}
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, result)
}

// ConsumeVoucherRequest 优惠券核销请求
type ConsumeVoucherRequest struct {
	Code    string `json:"code" binding:"required"`
	OrderNo string `json:"order_no" binding:"required"`
}

// ConsumeVoucher 结算核销优惠券
// POST /api/v1/internal/vouchers/consume
func (h *Handler) ConsumeVoucher(c *gin.Context) {
	var req ConsumeVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	voucher, err := h.voucherService.Consume(c.Request.Context(), req.Code, req.OrderNo)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrVoucherNotFound),
			errors.Is(err, repository.ErrVoucherNotAvailable):
			response.BusinessError(c, response.CodeVoucherNotAvailable, err.Error(), nil)
		case database.IsRetriable(err):
			response.ServerError(c, "系统繁忙，请稍后重试")
		default:
			response.ServerError(c, err.Error())
		}
		return
	}

	response.Success(c, gin.H{
		"voucher": voucher,
		"message": "核销成功",
	})
}
