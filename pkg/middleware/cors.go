package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/ccshuffle/pkg/ajax"
	"github.com/nao1215/ccshuffle/pkg/envelope"
)

// defaultCORSMaxAge はプリフライト結果のキャッシュ期間のデフォルト値。
const defaultCORSMaxAge = 24 * time.Hour

// corsAllowedHeaders はajaxリクエストで送信されるヘッダー。
var corsAllowedHeaders = []string{
	"Authorization",
	"Content-Type",
	ajax.CSRFHeaderName,
	ajax.RequestedWithHeader,
}

// CORSConfig はCORSミドルウェアの設定。
type CORSConfig struct {
	// AllowedOrigins はクロスオリジンリクエストを許可するオリジン。
	AllowedOrigins []string
	// AllowedMethods は許可するメソッド。空の場合はGETとPOST。
	AllowedMethods []string
	// MaxAge はプリフライト結果のキャッシュ期間。0の場合は24時間。
	MaxAge time.Duration
}

// CORS は許可されたオリジンからのクロスオリジンリクエストにCORSヘッダーを付与するGinミドルウェアを返す。
// csrftokenクッキーを送信できるようAccess-Control-Allow-Credentialsを付与する。
// 許可されていないオリジンからのプリフライトには403のfailを返す。
func CORS(cfg CORSConfig) gin.HandlerFunc {
	origins := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		origins[strings.TrimSuffix(o, "/")] = struct{}{}
	}
	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost}
	}
	allowMethods := strings.Join(methods, ", ") + ", " + http.MethodOptions
	allowHeaders := strings.Join(corsAllowedHeaders, ", ")
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = defaultCORSMaxAge
	}
	maxAgeSeconds := strconv.Itoa(int(maxAge.Seconds()))

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}
		c.Writer.Header().Add("Vary", "Origin")

		_, allowed := origins[origin]
		if allowed {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method != http.MethodOptions || c.GetHeader("Access-Control-Request-Method") == "" {
			c.Next()
			return
		}

		// プリフライト
		if !allowed {
			envelope.Abort(c, http.StatusForbidden, "許可されていないオリジンです")
			return
		}
		c.Header("Access-Control-Allow-Methods", allowMethods)
		c.Header("Access-Control-Allow-Headers", allowHeaders)
		c.Header("Access-Control-Max-Age", maxAgeSeconds)
		c.AbortWithStatus(http.StatusNoContent)
	}
}
