package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/ccshuffle/pkg/envelope"
	"go.uber.org/zap"
)

// Recovery はパニックからの回復を行うGinミドルウェアを返す。
// パニック発生時に内容をログに出力し、500エラーのfailエンベロープを返す。
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("パニックから回復しました",
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Any("panic", r),
					zap.Stack("stack"))
				envelope.Abort(c, http.StatusInternalServerError, "内部サーバーエラーが発生しました")
			}
		}()
		c.Next()
	}
}
