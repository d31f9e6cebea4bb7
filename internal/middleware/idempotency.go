package middleware

import (
	"context"
	"fmt"
	"time"

	"lesson_gate/internal/util"
	"lesson_gate/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type IdempotencyStore interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Idempotency 对带 Idempotency-Key 的提交去重，同一学习者在同一资源上重复投递同一个键返回 409。
// 处理失败（非 2xx）时释放键，客户端可以重试。存储不可用时放行请求
func Idempotency(store IdempotencyStore, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(util.HeaderIdempotencyKey)
		if raw == "" {
			c.Next()
			return
		}
		if len(raw) > 128 {
			util.BadRequest(c, "Idempotency-Key is too long")
			c.Abort()
			return
		}

		key := idempotencyKey(c, raw)

		ctx := c.Request.Context()
		reserved, err := store.Reserve(ctx, key, ttl)
		if err != nil {
			logger.Log.Warn("Idempotency store unavailable",
				zap.Error(err),
				zap.String("request_id", c.GetString(util.RequestIDKey)),
			)
			c.Next()
			return
		}
		if !reserved {
			util.HandleError(c, fmt.Errorf("%w: Idempotency-Key %q already used", util.ErrDuplicate, raw))
			c.Abort()
			return
		}

		c.Next()

		if status := c.Writer.Status(); status < 200 || status >= 300 {
			if err := store.Release(context.WithoutCancel(ctx), key); err != nil {
				logger.Log.Warn("Failed to release idempotency key", zap.Error(err))
			}
		}
	}
}

// idempotencyKey 按学习者、路由和资源 id 划分键空间
func idempotencyKey(c *gin.Context, raw string) string {
	var userID uint
	if user := util.GetUserFromContext(c); user != nil {
		userID = user.UserID
	}
	return fmt.Sprintf("%d:%s:%s:%s", userID, c.FullPath(), c.Param("id"), raw)
}
