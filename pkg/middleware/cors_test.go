package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// newCORSRouter はCORSミドルウェアを適用したテスト用ルーターを返す。
func newCORSRouter(cfg CORSConfig) *gin.Engine {
	router := gin.New()
	router.Use(CORS(cfg))
	router.GET("/register/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "success"})
	})
	router.POST("/register/", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"status": "success"})
	})
	return router
}

// preflight はプリフライトリクエストを送信する。
func preflight(router *gin.Engine, origin, method string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/register/", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", method)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestCORS はCORSミドルウェアを検証する。
func TestCORS(t *testing.T) {
	t.Parallel()

	allowed := []string{"http://localhost:8000", "https://ccshuffle.example.com/"}

	t.Run("許可されたオリジンのリクエストにCORSヘッダーが付与されること", func(t *testing.T) {
		t.Parallel()

		for _, origin := range []string{"http://localhost:8000", "https://ccshuffle.example.com"} {
			req := httptest.NewRequest(http.MethodGet, "/register/", nil)
			req.Header.Set("Origin", origin)
			w := httptest.NewRecorder()
			newCORSRouter(CORSConfig{AllowedOrigins: allowed}).ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, origin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
			assert.Equal(t, "Origin", w.Header().Get("Vary"))
			assert.Empty(t, w.Header().Get("Access-Control-Allow-Methods"), "プリフライト以外にはメソッドを付与しない")
		}
	})

	t.Run("許可されていないオリジンにはCORSヘッダーが付与されないこと", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/register/", nil)
		req.Header.Set("Origin", "http://evil.example.com")
		w := httptest.NewRecorder()
		newCORSRouter(CORSConfig{AllowedOrigins: allowed}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("Originの無いリクエストはそのまま処理されること", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		newCORSRouter(CORSConfig{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/register/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Vary"))
	})

	t.Run("許可されたオリジンのプリフライトに204が返ること", func(t *testing.T) {
		t.Parallel()

		w := preflight(newCORSRouter(CORSConfig{AllowedOrigins: allowed}), "http://localhost:8000", http.MethodPost)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Authorization, Content-Type, X-CSRFToken, X-Requested-With", w.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("許可するメソッドとキャッシュ期間を指定できること", func(t *testing.T) {
		t.Parallel()

		router := newCORSRouter(CORSConfig{
			AllowedOrigins: allowed,
			AllowedMethods: []string{http.MethodGet},
			MaxAge:         10 * time.Minute,
		})
		w := preflight(router, "http://localhost:8000", http.MethodGet)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "GET, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("許可されていないオリジンのプリフライトに403のfailが返ること", func(t *testing.T) {
		t.Parallel()

		w := preflight(newCORSRouter(CORSConfig{AllowedOrigins: allowed}), "http://evil.example.com", http.MethodPost)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "許可されていないオリジンです", errorMessage(t, w))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}
