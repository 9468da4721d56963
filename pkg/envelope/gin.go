package envelope

import (
	"github.com/gin-gonic/gin"
)

// Write はGinのハンドラからエンベロープをJSONレスポンスとして書き出す。
func Write(c *gin.Context, code int, e Envelope) {
	c.JSON(code, e)
}

// Abort はエンベロープを書き出してハンドラチェーンを中断する。ミドルウェアで使用する。
func Abort(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, Failure(msg))
}
