package handler

import (
	"log"
	"strings"
	"time"

	"foodorder/internal/auth"
	"foodorder/internal/model"
	"foodorder/pkg/response"

	"github.com/gin-gonic/gin"
)

const credentialKey = "credential"

// AuthMiddleware 认证中间件
// 从 Authorization: Bearer 或 session cookie 取 token，
// 校验通过把 Credential 放进上下文；required=true 时未认证直接 401，不碰账本
func AuthMiddleware(resolver *auth.TokenResolver, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""

		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}
		if tokenString == "" {
			if cookie, err := c.Cookie("session"); err == nil {
				tokenString = cookie
			}
		}

		if tokenString == "" {
			if required {
				response.Unauthorized(c, "请先登录")
				c.Abort()
				return
			}
			c.Next()
			return
		}

		cred, err := resolver.ResolveCredential(tokenString)
		if err != nil {
			if required {
				response.Unauthorized(c, "登录凭证无效或已过期")
				c.Abort()
				return
			}
			c.Next()
			return
		}

		c.Set(credentialKey, cred)
		c.Next()
	}
}

// credentialFrom 取出中间件解析好的凭证
func credentialFrom(c *gin.Context) (model.Credential, bool) {
	value, exists := c.Get(credentialKey)
	if !exists {
		return model.Credential{}, false
	}
	cred, ok := value.(model.Credential)
	return cred, ok
}

// LoggerMiddleware 日志中间件
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if query != "" {
			path = path + "?" + query
		}

		log.Printf("[HTTP] %d | %13v | %15s | %-7s %s",
			status,
			latency,
			c.ClientIP(),
			c.Request.Method,
			path,
		)
	}
}

// RecoveryMiddleware 恢复中间件，防止 panic 导致服务崩溃
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[PANIC] %v", err)
				c.AbortWithStatusJSON(500, gin.H{
					"code":    500,
					"message": "服务器内部错误",
				})
			}
		}()
		c.Next()
	}
}

// CORSMiddleware 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
