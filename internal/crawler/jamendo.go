package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/nao1215/ccshuffle/pkg/crawl"
	"github.com/nao1215/ccshuffle/pkg/httpclient"
	"go.uber.org/zap"
)

// Crawler は1つの外部サービスをクロールする処理。
type Crawler interface {
	// Service はクロール対象のサービスを返す。
	Service() crawl.Service
	// Crawl はクロールを実行し、取得した楽曲数を返す。
	Crawl(ctx context.Context) (int, error)
}

// ErrJamendoCorrupted はJamendo APIのレスポンスにheadersまたはresultsが無い場合のエラー。
var ErrJamendoCorrupted = errors.New("the response of the jamendo api call is corrupted")

// JamendoConfig はJamendoCrawlerの設定。
type JamendoConfig struct {
	// ClientID はJamendo APIのクライアントID。
	ClientID string
	// PageLimit は1ページあたりの取得件数。
	PageLimit int
	// MaxPages は1回のクロールで取得する最大ページ数。0以下の場合は結果が尽きるまで取得する。
	MaxPages int
}

// JamendoCrawler はJamendo APIから楽曲を取得するクローラー。
type JamendoCrawler struct {
	// client はJamendo APIへのHTTPクライアント。
	client *httpclient.Client
	// cfg はクローラーの設定。
	cfg JamendoConfig
	// logger はログ出力先。
	logger *zap.Logger
}

// NewJamendoCrawler は新しいJamendoCrawlerを生成する。
func NewJamendoCrawler(client *httpclient.Client, cfg JamendoConfig, logger *zap.Logger) *JamendoCrawler {
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = 200
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JamendoCrawler{client: client, cfg: cfg, logger: logger}
}

// Service はクロール対象のサービスを返す。
func (j *JamendoCrawler) Service() crawl.Service {
	return crawl.ServiceJamendo
}

// jamendoHeaders はJamendo APIレスポンスのheaders部。
type jamendoHeaders struct {
	// Status は呼び出し結果（"success" または "failed"）。
	Status string `json:"status"`
	// Code はエラーコード。
	Code int `json:"code"`
	// ErrorMessage は失敗時のエラーメッセージ。
	ErrorMessage string `json:"error_message"`
	// ResultsCount はresultsの件数。
	ResultsCount int `json:"results_count"`
}

// jamendoResponse はJamendo APIのレスポンス。
type jamendoResponse struct {
	// Headers は呼び出し結果のメタ情報。
	Headers *jamendoHeaders `json:"headers"`
	// Results は取得したエンティティ。
	Results []json.RawMessage `json:"results"`
}

// call はJamendo APIを1回呼び出し、成功したレスポンスを返す。
func (j *JamendoCrawler) call(ctx context.Context, qualifier string, params url.Values) (*jamendoResponse, error) {
	params.Set("client_id", j.cfg.ClientID)
	params.Set("format", "json")

	j.logger.Debug("Jamendo APIを呼び出します",
		zap.String("qualifier", qualifier), zap.String("offset", params.Get("offset")))

	var resp jamendoResponse
	if err := j.client.GetJSON(ctx, "/"+qualifier+"/", params, &resp); err != nil {
		return nil, fmt.Errorf("jamendo api call failed: %w", err)
	}
	if resp.Headers == nil || resp.Results == nil {
		return nil, ErrJamendoCorrupted
	}
	if resp.Headers.Status != "success" {
		return nil, fmt.Errorf("the jamendo api call failed (%s)", resp.Headers.ErrorMessage)
	}
	return &resp, nil
}

// Crawl はJamendoのトラックをページ単位で取得し、取得した件数を返す。
func (j *JamendoCrawler) Crawl(ctx context.Context) (int, error) {
	total := 0
	offset := 0
	for page := 0; j.cfg.MaxPages <= 0 || page < j.cfg.MaxPages; page++ {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(j.cfg.PageLimit))
		params.Set("offset", strconv.Itoa(offset))

		resp, err := j.call(ctx, "tracks", params)
		if err != nil {
			return total, err
		}
		if resp.Headers.ResultsCount == 0 || len(resp.Results) == 0 {
			break
		}
		total += len(resp.Results)
		offset += resp.Headers.ResultsCount
		if resp.Headers.ResultsCount < j.cfg.PageLimit {
			break
		}
	}

	j.logger.Info("Jamendoのクロールが完了しました", zap.Int("tracks", total))
	return total, nil
}
