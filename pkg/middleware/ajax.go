package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/ccshuffle/pkg/ajax"
	"github.com/nao1215/ccshuffle/pkg/envelope"
)

// IsAjax はリクエストがajaxリクエスト（X-Requested-With: XMLHttpRequest）かどうかを返す。
func IsAjax(r *http.Request) bool {
	return r.Header.Get(ajax.RequestedWithHeader) == ajax.RequestedWithValue
}

// RequireAjax はajaxリクエスト以外を400で拒否するGinミドルウェアを返す。
func RequireAjax() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAjax(c.Request) {
			envelope.Abort(c, http.StatusBadRequest, "ajaxリクエストのみ受け付けます")
			return
		}
		c.Next()
	}
}
