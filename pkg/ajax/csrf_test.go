package ajax

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCSRFSafeMethod はCSRF保護が不要なメソッドの判定を検証する。
func TestCSRFSafeMethod(t *testing.T) {
	t.Parallel()

	tests := []struct {
		method string
		want   bool
	}{
		{http.MethodGet, true},
		{http.MethodHead, true},
		{http.MethodOptions, true},
		{http.MethodTrace, true},
		{"get", true},
		{http.MethodPost, false},
		{http.MethodPut, false},
		{http.MethodPatch, false},
		{http.MethodDelete, false},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CSRFSafeMethod(tt.method))
		})
	}
}

// TestSameOrigin は同一オリジン判定を検証する。
func TestSameOrigin(t *testing.T) {
	t.Parallel()

	origin, err := url.Parse("http://example.com")
	require.NoError(t, err)

	tests := []struct {
		name   string
		target string
		want   bool
	}{
		{"同じホスト", "http://example.com/register/", true},
		{"デフォルトポートの明示", "http://example.com:80/register/", true},
		{"大文字のホスト", "http://EXAMPLE.com/", true},
		{"相対URL", "/crawler/", true},
		{"別スキーム", "https://example.com/", false},
		{"別ポート", "http://example.com:8080/", false},
		{"別ホスト", "http://evil.com/", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			target, err := url.Parse(tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, SameOrigin(origin, target))
		})
	}

	t.Run("nilの場合は同一オリジンとみなさないこと", func(t *testing.T) {
		t.Parallel()
		assert.False(t, SameOrigin(nil, origin))
		assert.False(t, SameOrigin(origin, nil))
	})
}

// TestReadCSRFToken はクッキーからのトークン読み込みを検証する。
func TestReadCSRFToken(t *testing.T) {
	t.Parallel()

	origin, err := url.Parse("http://example.com")
	require.NoError(t, err)

	t.Run("csrftokenクッキーの値をURLデコードして読み込めること", func(t *testing.T) {
		t.Parallel()

		jar, err := cookiejar.New(nil)
		require.NoError(t, err)
		jar.SetCookies(origin, []*http.Cookie{
			{Name: "sessionid", Value: "xyz"},
			{Name: CSRFCookieName, Value: "abc%2Bdef"},
		})

		got := ReadCSRFToken(jar, origin)
		assert.Equal(t, CSRFContext{Token: "abc+def", Found: true}, got)
	})

	t.Run("デコードできない値はそのまま使うこと", func(t *testing.T) {
		t.Parallel()

		jar, err := cookiejar.New(nil)
		require.NoError(t, err)
		jar.SetCookies(origin, []*http.Cookie{{Name: CSRFCookieName, Value: "bad%zz"}})

		got := ReadCSRFToken(jar, origin)
		assert.Equal(t, "bad%zz", got.Token)
	})

	t.Run("クッキーが無い場合はFoundがfalseになること", func(t *testing.T) {
		t.Parallel()

		jar, err := cookiejar.New(nil)
		require.NoError(t, err)

		assert.Equal(t, CSRFContext{}, ReadCSRFToken(jar, origin))
		assert.Equal(t, CSRFContext{}, ReadCSRFToken(nil, origin))
	})
}

// TestCSRFHeader はCSRFヘッダー付与の条件を検証する。
func TestCSRFHeader(t *testing.T) {
	t.Parallel()

	origin, err := url.Parse("http://example.com")
	require.NoError(t, err)
	apply := CSRFHeader("token", origin)

	newReq := func(t *testing.T, method, target string) *http.Request {
		t.Helper()
		req, err := http.NewRequest(method, target, nil)
		require.NoError(t, err)
		return req
	}

	t.Run("同一オリジンのPOSTにヘッダーが付与されること", func(t *testing.T) {
		t.Parallel()

		req := newReq(t, http.MethodPost, "http://example.com/register/")
		apply(req)
		assert.Equal(t, "token", req.Header.Get(CSRFHeaderName))
	})

	t.Run("DELETEにもヘッダーが付与されること", func(t *testing.T) {
		t.Parallel()

		req := newReq(t, http.MethodDelete, "http://example.com/x")
		apply(req)
		assert.Equal(t, "token", req.Header.Get(CSRFHeaderName))
	})

	t.Run("GETにはヘッダーが付与されないこと", func(t *testing.T) {
		t.Parallel()

		req := newReq(t, http.MethodGet, "http://example.com/register/")
		apply(req)
		assert.Empty(t, req.Header.Get(CSRFHeaderName))
	})

	t.Run("クロスオリジンのPOSTにはヘッダーが付与されないこと", func(t *testing.T) {
		t.Parallel()

		req := newReq(t, http.MethodPost, "http://evil.com/register/")
		apply(req)
		assert.Empty(t, req.Header.Get(CSRFHeaderName))
	})

	t.Run("トークンが空の場合はヘッダーが付与されないこと", func(t *testing.T) {
		t.Parallel()

		req := newReq(t, http.MethodPost, "http://example.com/register/")
		CSRFHeader("", origin)(req)
		_, ok := req.Header[http.CanonicalHeaderKey(CSRFHeaderName)]
		assert.False(t, ok)
	})
}
