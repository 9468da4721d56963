package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestZapLogger はZapLoggerミドルウェアを検証する。
func TestZapLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		wantLevel zapcore.Level
	}{
		{"成功時はInfoで出力されること", http.StatusOK, zapcore.InfoLevel},
		{"クライアントエラーはWarnで出力されること", http.StatusBadRequest, zapcore.WarnLevel},
		{"サーバーエラーはErrorで出力されること", http.StatusInternalServerError, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zap.DebugLevel)
			router := gin.New()
			router.Use(ZapLogger(zap.New(core)))
			router.GET("/crawler/", func(c *gin.Context) {
				c.Set("user_id", "user-1")
				c.Status(tt.status)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/crawler/?cmd=start-jamendo-crawl", nil))

			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			assert.Equal(t, tt.wantLevel, entry.Level)
			fields := entry.ContextMap()
			assert.Equal(t, "/crawler/", fields["path"])
			assert.Equal(t, "cmd=start-jamendo-crawl", fields["query"])
			assert.Equal(t, int64(tt.status), fields["status"])
			assert.Equal(t, "user-1", fields["user_id"])
		})
	}
}
