package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess      = 0
	CodeParamError   = 400
	CodeUnauthorized = 401
	CodeServerError  = 500
)

// 积分业务错误码
const (
	CodeRewardNotFound      = 2001 // 奖励不存在/已下架/已过期
	CodeNoLedgerRecord      = 2002 // 从未获得过积分，没有积分账户
	CodeInsufficientPoints  = 2003 // 积分不足
	CodeDuplicateRedemption = 2004 // 重复兑换
	CodeVoucherNotAvailable = 2005 // 优惠券不可用
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func ParamError(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{
		Code:    CodeParamError,
		Message: message,
	})
}

func Unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"error": message,
	})
}

// BusinessError 业务拒绝统一走 400
// 重试没有意义，客户端应把 message/data 展示给用户
func BusinessError(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(http.StatusBadRequest, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// ServerError 瞬时/未知错误走 500，客户端可退避重试
func ServerError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, Response{
		Code:    CodeServerError,
		Message: message,
	})
}
