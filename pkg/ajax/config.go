package ajax

import (
	"context"
	"net/http"
)

// HeaderFunc は送信前のリクエストにヘッダーを付与する関数。
type HeaderFunc func(req *http.Request)

// RequestConfig はリクエストごとに適用する設定。
// グローバルな送信前フックの代わりに、Gatewayが保持して各リクエストに適用する。
type RequestConfig struct {
	// Headers は送信前に順に適用されるヘッダー関数。
	Headers []HeaderFunc
}

// apply はリクエストに設定を適用する。
func (c *RequestConfig) apply(req *http.Request) {
	if c == nil {
		return
	}
	for _, h := range c.Headers {
		h(req)
	}
}

// BearerToken はAuthorizationヘッダーにBearerトークンを付与するHeaderFuncを返す。
// tokenが空の場合は何もしない。
func BearerToken(token string) HeaderFunc {
	return func(req *http.Request) {
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
}

// contextKey はコンテキストキーの型。
type contextKey string

// contextKeyRequestConfig はコンテキストにRequestConfigを格納するためのキー。
const contextKeyRequestConfig contextKey = "request_config"

// WithRequestConfig はコンテキストにRequestConfigを設定する。
// 設定されたリクエストではGatewayが保持する設定の代わりにcfgが使われる。
func WithRequestConfig(ctx context.Context, cfg *RequestConfig) context.Context {
	return context.WithValue(ctx, contextKeyRequestConfig, cfg)
}

// requestConfigFrom はコンテキストからRequestConfigを取得する。
func requestConfigFrom(ctx context.Context) (*RequestConfig, bool) {
	cfg, ok := ctx.Value(contextKeyRequestConfig).(*RequestConfig)
	return cfg, ok && cfg != nil
}
