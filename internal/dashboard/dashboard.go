package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/nao1215/ccshuffle/pkg/ajax"
	"github.com/nao1215/ccshuffle/pkg/crawl"
	"github.com/nao1215/ccshuffle/pkg/envelope"
	"go.uber.org/zap"
)

// crawlerPath はクローラーサービスのエンドポイント。
const crawlerPath = "/crawler/"

// processesPath は処理記録一覧のエンドポイント。
const processesPath = "/crawler/processes"

// ErrBusy はクロール開始ボタンが実行中で無効になっている場合のエラー。
var ErrBusy = errors.New("クロールは既に実行中です")

// Dashboard はクロール管理ダッシュボード。
type Dashboard struct {
	// gateway はクローラーサービスへのajaxクライアント。
	gateway *ajax.Gateway
	// token はAuthorizationヘッダーに付与するJWT。
	token string
	// startJamendo はJamendoのクロール開始ボタン。
	startJamendo *ajax.Button
	// logger はログ出力先。
	logger *zap.Logger
}

// New は新しいDashboardを生成する。tokenには管理者のJWTを指定する。
func New(gateway *ajax.Gateway, token string, logger *zap.Logger) *Dashboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dashboard{
		gateway:      gateway,
		token:        token,
		startJamendo: ajax.NewButton("start-jamendo-crawling"),
		logger:       logger,
	}
}

// Init はGatewayを初期化し、以降のリクエストにCSRFトークンとJWTを付与する。
func (d *Dashboard) Init() ajax.CSRFContext {
	d.logger.Info("Welcome to the crawling dashboard of ccshuffle :)")
	return d.gateway.Initialize(ajax.BearerToken(d.token))
}

// StartJamendoButton はJamendoのクロール開始ボタンを返す。
func (d *Dashboard) StartJamendoButton() *ajax.Button {
	return d.startJamendo
}

// CrawlJamendo はJamendoのクロールを開始し、処理記録を返す。
// ボタンが無効な間に呼び出された場合はリクエストを送信せずErrBusyを返す。
func (d *Dashboard) CrawlJamendo(ctx context.Context) (*crawl.Process, error) {
	d.logger.Info("User wants to start the jamendo crawling process.")

	env, ran := d.startJamendo.TryRun(func() envelope.Envelope {
		query := url.Values{"command": {crawl.StartCommand(crawl.ServiceJamendo)}}
		return d.gateway.Get(ctx, crawlerPath, query)
	})
	if !ran {
		return nil, ErrBusy
	}
	if !env.OK() {
		d.logger.Warn("An error occurred for the 'start jamendo crawling' request !",
			zap.String("kind", string(env.Kind())), zap.Error(env.Err()))
		return nil, env.Err()
	}

	process, err := envelope.DecodeResult[crawl.Process](env)
	if err != nil {
		return nil, fmt.Errorf("処理記録のデコードに失敗: %w", err)
	}
	d.logger.Info("クロールが完了しました", zap.Stringer("process", process))
	return process, nil
}

// Processes はサービスの処理記録を返す。
func (d *Dashboard) Processes(ctx context.Context, service crawl.Service) ([]crawl.Process, error) {
	env := d.gateway.Get(ctx, processesPath, url.Values{"service": {string(service)}})
	if !env.OK() {
		return nil, env.Err()
	}
	processes, err := envelope.DecodeResult[[]crawl.Process](env)
	if err != nil {
		return nil, fmt.Errorf("処理記録のデコードに失敗: %w", err)
	}
	return *processes, nil
}
