package ajax

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nao1215/ccshuffle/pkg/envelope"
	"go.uber.org/zap"
)

// defaultTimeout はトランスポートのデフォルトタイムアウト。
const defaultTimeout = 30 * time.Second

// Gateway はCCShuffleのサーバーへajaxリクエストを発行するクライアント。
// 複数のゴルーチンから同時に使用できる。
type Gateway struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// origin はアプリケーションのオリジン。相対パスはここを基準に解決する。
	origin *url.URL
	// jar はCSRFトークンを読み込むクッキーストア。
	jar http.CookieJar
	// logger は失敗したリクエストを記録するロガー。
	logger *zap.Logger
	// timeout はWithTimeoutで指定されたタイムアウト。0の場合は指定なし。
	timeout time.Duration
	// config は各リクエストに適用する設定。Initializeで差し替えられる。
	config atomic.Pointer[RequestConfig]
	// csrf は最後にInitializeで読み込んだCSRFトークン。
	csrf atomic.Pointer[CSRFContext]
}

// Option はGatewayの生成オプション。
type Option func(*Gateway)

// WithHTTPClient は使用するHTTPクライアントを指定する。
// 渡したクライアントは変更されず、そのコピーが使用される。
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) {
		g.httpClient = c
	}
}

// WithCookieJar はCSRFトークンを読み込むクッキージャーを指定する。
// HTTPクライアントにジャーが無い場合はクライアントにも設定する。
func WithCookieJar(jar http.CookieJar) Option {
	return func(g *Gateway) {
		g.jar = jar
	}
}

// WithLogger はロガーを指定する。
func WithLogger(l *zap.Logger) Option {
	return func(g *Gateway) {
		g.logger = l
	}
}

// WithTimeout はトランスポートのタイムアウトを指定する。
// WithHTTPClientとの指定順序によらず、指定したクライアントのタイムアウトより優先される。
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.timeout = d
	}
}

// New は新しいGatewayを生成する。
// baseURLにはアプリケーションのオリジン（例: "http://localhost:8000"）を指定する。
// 生成直後はCSRFヘッダーを付与しない。Initializeを呼び出すと付与が有効になる。
func New(baseURL string, opts ...Option) (*Gateway, error) {
	origin, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("ベースURLの解析に失敗: %w", err)
	}
	if origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("ベースURLにはスキームとホストが必要です: %q", baseURL)
	}
	origin.Path = strings.TrimSuffix(origin.Path, "/")

	g := &Gateway{origin: origin}
	for _, opt := range opts {
		opt(g)
	}

	client := http.Client{Timeout: defaultTimeout}
	if g.httpClient != nil {
		client = *g.httpClient
	}
	if g.timeout > 0 {
		client.Timeout = g.timeout
	}
	if g.jar == nil {
		g.jar = client.Jar
	}
	if g.jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("クッキージャーの生成に失敗: %w", err)
		}
		g.jar = jar
	}
	if client.Jar == nil {
		client.Jar = g.jar
	}
	g.httpClient = &client
	if g.logger == nil {
		g.logger = zap.NewNop()
	}

	g.config.Store(&RequestConfig{})
	g.csrf.Store(&CSRFContext{})
	return g, nil
}

// Origin はアプリケーションのオリジンを返す。
func (g *Gateway) Origin() *url.URL {
	u := *g.origin
	return &u
}

// Initialize はクッキーストアからCSRFトークンを読み込み、
// 変更系の同一オリジンリクエストにX-CSRFTokenを付与する設定を適用する。
// extraはCSRFヘッダーの後に適用される。
// 複数回呼び出した場合は後の呼び出しの設定で上書きされる。
func (g *Gateway) Initialize(extra ...HeaderFunc) CSRFContext {
	csrf := ReadCSRFToken(g.jar, g.origin)
	if !csrf.Found {
		g.logger.Warn("CSRFトークンのクッキーが見つかりません",
			zap.String("cookie", CSRFCookieName),
			zap.String("origin", g.origin.String()))
	}
	g.csrf.Store(&csrf)
	headers := make([]HeaderFunc, 0, len(extra)+1)
	headers = append(headers, CSRFHeader(csrf.Token, g.origin))
	headers = append(headers, extra...)
	g.config.Store(&RequestConfig{Headers: headers})
	return csrf
}

// CSRF は最後にInitializeで読み込んだCSRFトークンを返す。
func (g *Gateway) CSRF() CSRFContext {
	return *g.csrf.Load()
}

// Get は指定パスにクエリパラメータ付きのGETリクエストを送信し、正規化したエンベロープを返す。
func (g *Gateway) Get(ctx context.Context, path string, query url.Values) envelope.Envelope {
	return g.do(ctx, http.MethodGet, path, query, nil)
}

// Post は指定パスにフォームエンコードしたボディでPOSTリクエストを送信し、正規化したエンベロープを返す。
func (g *Gateway) Post(ctx context.Context, path string, form url.Values) envelope.Envelope {
	if form == nil {
		form = url.Values{}
	}
	return g.do(ctx, http.MethodPost, path, nil, form)
}

// GetAsync はGetを非同期に実行する。
// 返されるチャネルにはエンベロープがちょうど1回送信され、その後クローズされる。
func (g *Gateway) GetAsync(ctx context.Context, path string, query url.Values) <-chan envelope.Envelope {
	return async(func() envelope.Envelope { return g.Get(ctx, path, query) })
}

// PostAsync はPostを非同期に実行する。
// 返されるチャネルにはエンベロープがちょうど1回送信され、その後クローズされる。
func (g *Gateway) PostAsync(ctx context.Context, path string, form url.Values) <-chan envelope.Envelope {
	return async(func() envelope.Envelope { return g.Post(ctx, path, form) })
}

// async はfnを別ゴルーチンで実行し、結果を1回だけ送信するチャネルを返す。
func async(fn func() envelope.Envelope) <-chan envelope.Envelope {
	ch := make(chan envelope.Envelope, 1)
	go func() {
		defer close(ch)
		ch <- fn()
	}()
	return ch
}

// resolve はpathをオリジン基準で解決し、クエリパラメータを付与する。
func (g *Gateway) resolve(path string, query url.Values) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("パスの解析に失敗: %w", err)
	}
	if ref.Host != "" && !SameOrigin(g.origin, ref) {
		return nil, fmt.Errorf("アプリケーションのオリジン以外には送信できません: %s", ref.Redacted())
	}
	if ref.Host == "" && !strings.HasPrefix(ref.Path, "/") {
		ref.Path = "/" + ref.Path
	}
	if ref.Host == "" && g.origin.Path != "" {
		ref.Path = g.origin.Path + ref.Path
	}
	target := g.origin.ResolveReference(ref)
	if len(query) > 0 {
		q := target.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		target.RawQuery = q.Encode()
	}
	return target, nil
}

// do はリクエストを1回だけ送信し、応答をエンベロープに正規化する共通処理。
func (g *Gateway) do(ctx context.Context, method, path string, query, form url.Values) envelope.Envelope {
	env := g.roundTrip(ctx, method, path, query, form)
	if !env.OK() {
		msg, _ := env.ErrorMessage()
		g.logger.Debug("ajaxリクエストが失敗しました",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("kind", string(env.Kind())),
			zap.String("error_msg", msg))
	}
	return env
}

// roundTrip はHTTPリクエストを送信してレスポンスを解析する。
func (g *Gateway) roundTrip(ctx context.Context, method, path string, query, form url.Values) envelope.Envelope {
	target, err := g.resolve(path, query)
	if err != nil {
		return envelope.FromTransportError(err)
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return envelope.FromTransportError(fmt.Errorf("HTTPリクエストの作成に失敗: %w", err))
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestedWithHeader, RequestedWithValue)

	cfg, ok := requestConfigFrom(ctx)
	if !ok {
		cfg = g.config.Load()
	}
	cfg.apply(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return envelope.FromTransportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return envelope.FromTransportError(fmt.Errorf("レスポンスの読み取りに失敗: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// 解析できるボディはエンベロープとして扱い、アプリケーションのメッセージを優先する
		if len(data) > 0 && json.Valid(data) {
			return envelope.Parse(data)
		}
		return envelope.FromTransportError(errors.New(resp.Status))
	}
	return envelope.Parse(data)
}
