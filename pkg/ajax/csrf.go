package ajax

import (
	"net/http"
	"net/url"
	"strings"
)

const (
	// CSRFCookieName はCSRFトークンを保持するクッキー名。
	CSRFCookieName = "csrftoken"
	// CSRFHeaderName はCSRFトークンを送信するHTTPヘッダー名。
	CSRFHeaderName = "X-CSRFToken"
	// RequestedWithHeader はajaxリクエストであることをサーバーに伝えるヘッダー名。
	RequestedWithHeader = "X-Requested-With"
	// RequestedWithValue はRequestedWithHeaderに設定する値。
	RequestedWithValue = "XMLHttpRequest"
)

// CSRFSafeMethod はCSRF保護が不要なHTTPメソッドかどうかを返す。
func CSRFSafeMethod(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}

// SameOrigin はtargetがoriginと同じスキームとホストを持つかどうかを返す。
// 相対URL（ホストが空）は同一オリジンとみなす。
func SameOrigin(origin, target *url.URL) bool {
	if origin == nil || target == nil {
		return false
	}
	if target.Host == "" {
		return true
	}
	return strings.EqualFold(origin.Scheme, target.Scheme) &&
		strings.EqualFold(canonicalHost(origin), canonicalHost(target))
}

// canonicalHost はデフォルトポートを補ったホストを返す。
func canonicalHost(u *url.URL) string {
	if u.Port() != "" {
		return u.Host
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		return u.Hostname() + ":443"
	case "http":
		return u.Hostname() + ":80"
	}
	return u.Host
}

// CSRFContext はクッキーから読み込んだCSRFトークンを保持する。
// 初期化後は読み取り専用であり、再読み込みはInitializeの再呼び出しでのみ行う。
type CSRFContext struct {
	// Token はCSRFトークン。
	Token string
	// Found はクッキーにトークンが存在したかどうか。
	Found bool
}

// ReadCSRFToken はクッキージャーからoriginに対するCSRFトークンを読み込む。
// クッキーの値はURLデコードして返す。
func ReadCSRFToken(jar http.CookieJar, origin *url.URL) CSRFContext {
	if jar == nil || origin == nil {
		return CSRFContext{}
	}
	for _, c := range jar.Cookies(origin) {
		if c.Name != CSRFCookieName {
			continue
		}
		token, err := url.PathUnescape(c.Value)
		if err != nil {
			token = c.Value
		}
		return CSRFContext{Token: token, Found: true}
	}
	return CSRFContext{}
}

// CSRFHeader は変更系かつ同一オリジンのリクエストにX-CSRFTokenヘッダーを付与するHeaderFuncを返す。
// トークンが空の場合は何もしない。
func CSRFHeader(token string, origin *url.URL) HeaderFunc {
	return func(req *http.Request) {
		if token == "" || CSRFSafeMethod(req.Method) || !SameOrigin(origin, req.URL) {
			return
		}
		req.Header.Set(CSRFHeaderName, token)
	}
}
