package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/nao1215/ccshuffle/pkg/crawl"
	"github.com/nao1215/ccshuffle/pkg/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jamendoPage はoffsetに応じてresults_count件のトラックを返すレスポンスを生成する。
func jamendoPage(count int) string {
	results := make([]string, count)
	for i := range results {
		results[i] = fmt.Sprintf(`{"id":"%d","name":"track %d"}`, i, i)
	}
	return fmt.Sprintf(`{"headers":{"status":"success","code":0,"error_message":"","warnings":"","results_count":%d},"results":[%s]}`,
		count, strings.Join(results, ","))
}

// newJamendoServer はtotal件のトラックを持つJamendo APIのテストサーバーを起動する。
func newJamendoServer(t *testing.T, total int) (*httptest.Server, *[]string) {
	t.Helper()

	var (
		mu      sync.Mutex
		offsets []string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tracks/", r.URL.Path)
		assert.Equal(t, "client-x", r.URL.Query().Get("client_id"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		mu.Lock()
		offsets = append(offsets, r.URL.Query().Get("offset"))
		mu.Unlock()

		n := min(limit, max(total-offset, 0))
		_, _ = w.Write([]byte(jamendoPage(n)))
	}))
	t.Cleanup(ts.Close)
	return ts, &offsets
}

// TestJamendoCrawler はJamendoCrawlerを検証する。
func TestJamendoCrawler(t *testing.T) {
	t.Parallel()

	t.Run("結果が尽きるまでページングして件数を返すこと", func(t *testing.T) {
		t.Parallel()

		ts, offsets := newJamendoServer(t, 25)
		jc := NewJamendoCrawler(httpclient.New(ts.URL), JamendoConfig{ClientID: "client-x", PageLimit: 10}, nil)

		assert.Equal(t, crawl.ServiceJamendo, jc.Service())
		count, err := jc.Crawl(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 25, count)
		assert.Equal(t, []string{"0", "10", "20"}, *offsets)
	})

	t.Run("件数がページサイズの倍数の場合は空のページで終了すること", func(t *testing.T) {
		t.Parallel()

		ts, offsets := newJamendoServer(t, 20)
		jc := NewJamendoCrawler(httpclient.New(ts.URL), JamendoConfig{ClientID: "client-x", PageLimit: 10}, nil)

		count, err := jc.Crawl(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 20, count)
		assert.Equal(t, []string{"0", "10", "20"}, *offsets)
	})

	t.Run("MaxPagesで取得ページ数が制限されること", func(t *testing.T) {
		t.Parallel()

		ts, offsets := newJamendoServer(t, 100)
		jc := NewJamendoCrawler(httpclient.New(ts.URL), JamendoConfig{ClientID: "client-x", PageLimit: 10, MaxPages: 2}, nil)

		count, err := jc.Crawl(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 20, count)
		assert.Len(t, *offsets, 2)
	})

	t.Run("APIが失敗を返した場合はエラーメッセージを含むエラーになること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"headers":{"status":"failed","code":5,"error_message":"Your credential is not authorized."},"results":[]}`))
		}))
		defer ts.Close()

		jc := NewJamendoCrawler(httpclient.New(ts.URL), JamendoConfig{ClientID: "client-x"}, nil)
		_, err := jc.Crawl(context.Background())
		require.Error(t, err)
		assert.Equal(t, "the jamendo api call failed (Your credential is not authorized.)", err.Error())
	})

	t.Run("headersまたはresultsが無い場合は破損エラーになること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"headers":{"status":"success"}}`))
		}))
		defer ts.Close()

		jc := NewJamendoCrawler(httpclient.New(ts.URL), JamendoConfig{ClientID: "client-x"}, nil)
		_, err := jc.Crawl(context.Background())
		assert.ErrorIs(t, err, ErrJamendoCorrupted)
	})

	t.Run("HTTPエラーの場合はエラーになること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer ts.Close()

		jc := NewJamendoCrawler(httpclient.New(ts.URL), JamendoConfig{ClientID: "client-x"}, nil)
		_, err := jc.Crawl(context.Background())

		var statusErr *httpclient.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	})
}
