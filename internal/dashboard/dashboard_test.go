package dashboard

import (
	"context"
	"database/sql"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/ccshuffle/internal/crawler"
	"github.com/nao1215/ccshuffle/pkg/ajax"
	"github.com/nao1215/ccshuffle/pkg/crawl"
	"github.com/nao1215/ccshuffle/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	_ "modernc.org/sqlite"
)

// testSecret はテスト用のJWTシークレット。
const testSecret = "dashboard-test-secret"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

// blockingCrawler はreleaseが閉じられるまでCrawlを返さないクローラー。
type blockingCrawler struct {
	started chan struct{}
	release chan struct{}
	err     error
}

func (b *blockingCrawler) Service() crawl.Service { return crawl.ServiceJamendo }

func (b *blockingCrawler) Crawl(ctx context.Context) (int, error) {
	if b.started != nil {
		close(b.started)
	}
	if b.release != nil {
		select {
		case <-b.release:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return 7, b.err
}

// setupDashboard はクローラーサービスを起動し、それに接続したDashboardを返す。
func setupDashboard(t *testing.T, c crawler.Crawler, superuser bool) *Dashboard {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	s, err := crawler.New(context.Background(), db, crawler.Options{
		JWTSecret: testSecret,
		Crawlers:  []crawler.Crawler{c},
	})
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = s.Close()
	})

	g, err := ajax.New(ts.URL, ajax.WithHTTPClient(ts.Client()))
	require.NoError(t, err)

	token, err := middleware.GenerateJWT(testSecret, "admin-id", "admin", superuser)
	require.NoError(t, err)

	d := New(g, token, nil)
	d.Init()
	return d
}

// TestCrawlJamendo はJamendoのクロール開始を検証する。
func TestCrawlJamendo(t *testing.T) {
	t.Parallel()

	t.Run("クロールが完了すると処理記録が返ること", func(t *testing.T) {
		t.Parallel()

		d := setupDashboard(t, &blockingCrawler{}, true)

		process, err := d.CrawlJamendo(context.Background())
		require.NoError(t, err)
		assert.Equal(t, crawl.ServiceJamendo, process.Service)
		assert.Equal(t, crawl.StatusFinished, process.Status)
		assert.Equal(t, 7, process.TrackCount)
		assert.True(t, d.StartJamendoButton().Enabled())

		processes, err := d.Processes(context.Background(), crawl.ServiceJamendo)
		require.NoError(t, err)
		require.Len(t, processes, 1)
		assert.Equal(t, process.ID, processes[0].ID)
	})

	t.Run("クローラーの失敗はエラーメッセージとして返ること", func(t *testing.T) {
		t.Parallel()

		d := setupDashboard(t, &blockingCrawler{err: errors.New("the jamendo api call failed (bad id)")}, true)

		_, err := d.CrawlJamendo(context.Background())
		require.Error(t, err)
		assert.Equal(t, "the jamendo api call failed (bad id)", err.Error())
		assert.True(t, d.StartJamendoButton().Enabled())

		processes, err := d.Processes(context.Background(), crawl.ServiceJamendo)
		require.NoError(t, err)
		require.Len(t, processes, 1)
		assert.Equal(t, crawl.StatusFailed, processes[0].Status)
	})

	t.Run("管理者でない場合は権限エラーになること", func(t *testing.T) {
		t.Parallel()

		d := setupDashboard(t, &blockingCrawler{}, false)

		_, err := d.CrawlJamendo(context.Background())
		require.Error(t, err)
		assert.Equal(t, "この操作には管理者権限が必要です", err.Error())
	})

	t.Run("実行中は二重に開始できないこと", func(t *testing.T) {
		t.Parallel()

		bc := &blockingCrawler{started: make(chan struct{}), release: make(chan struct{})}
		d := setupDashboard(t, bc, true)

		done := make(chan error, 1)
		go func() {
			_, err := d.CrawlJamendo(context.Background())
			done <- err
		}()

		<-bc.started
		assert.False(t, d.StartJamendoButton().Enabled())
		_, err := d.CrawlJamendo(context.Background())
		assert.ErrorIs(t, err, ErrBusy)

		close(bc.release)
		require.NoError(t, <-done)
		assert.True(t, d.StartJamendoButton().Enabled())
	})
}
