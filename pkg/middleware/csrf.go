package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nao1215/ccshuffle/pkg/ajax"
	"github.com/nao1215/ccshuffle/pkg/envelope"
)

// csrfFormField はフォームでCSRFトークンを送信する場合のフィールド名。
const csrfFormField = "csrfmiddlewaretoken"

// csrfCookieMaxAge はcsrftokenクッキーの有効期間（秒）。1年。
const csrfCookieMaxAge = 365 * 24 * 60 * 60

// contextKeyCSRFToken はコンテキストにCSRFトークンを格納するキー。
const contextKeyCSRFToken = "csrf_token"

// CSRFConfig はCSRFミドルウェアの設定。
type CSRFConfig struct {
	// Secure はクッキーにSecure属性を付与するかどうか。
	Secure bool
	// NewToken はトークンを生成する関数。nilの場合はUUIDから生成する。
	NewToken func() string
}

// CSRF はダブルサブミット方式でCSRFトークンを検証するGinミドルウェアを返す。
//
// csrftokenクッキーが無いリクエストには新しいトークンをクッキーで発行する。
// GET/HEAD/OPTIONS/TRACE以外のリクエストでは、X-CSRFTokenヘッダー
// （またはcsrfmiddlewaretokenフォームフィールド）の値がクッキーと一致しなければ403を返す。
// クッキーはクライアントが読み取れるようHttpOnlyを付けない。
func CSRF(cfg CSRFConfig) gin.HandlerFunc {
	newToken := cfg.NewToken
	if newToken == nil {
		newToken = func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")
		}
	}

	return func(c *gin.Context) {
		token, err := c.Cookie(ajax.CSRFCookieName)
		if err != nil || token == "" {
			token = newToken()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(ajax.CSRFCookieName, token, csrfCookieMaxAge, "/", "", cfg.Secure, false)
		}
		c.Set(contextKeyCSRFToken, token)

		if ajax.CSRFSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		sent := c.GetHeader(ajax.CSRFHeaderName)
		if sent == "" {
			sent = c.PostForm(csrfFormField)
		}
		if sent == "" || subtle.ConstantTimeCompare([]byte(sent), []byte(token)) != 1 {
			envelope.Abort(c, http.StatusForbidden, "CSRF検証に失敗しました")
			return
		}
		c.Next()
	}
}

// GetCSRFToken はCSRFミドルウェアが設定したトークンを返す。
func GetCSRFToken(c *gin.Context) string {
	return c.GetString(contextKeyCSRFToken)
}
