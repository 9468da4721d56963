// Package cli はCCShuffleのコマンドラインクライアントを提供する。
//
// クロール管理ダッシュボードとユーザー登録フォームの操作を
// サブコマンドとして公開する。接続先や認証情報はフラグ・環境変数・設定ファイルから読み込む。
package cli

import (
	"fmt"
	"time"

	"github.com/nao1215/ccshuffle/pkg/ajax"
	"github.com/nao1215/ccshuffle/pkg/config"
	"github.com/nao1215/ccshuffle/pkg/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// requestTimeout は1リクエストあたりのタイムアウト。
const requestTimeout = 30 * time.Second

// app はサブコマンド間で共有する実行時の状態。
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCmd はccshuffleコマンドを生成する。
func NewRootCmd() *cobra.Command {
	a := &app{v: config.NewViper("ccshuffle")}
	var configFile string

	root := &cobra.Command{
		Use:           "ccshuffle",
		Short:         "CCShuffleのクローラーとユーザー登録を操作する",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if configFile != "" {
				a.v.SetConfigFile(configFile)
			}
			return a.load()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "設定ファイルのパス")
	flags.String("base-url", "", "接続先のオリジン（例: http://localhost:8000）")
	flags.String("log-level", "", "ログレベル（debug, info, warn, error）")
	_ = a.v.BindPFlag("base_url", flags.Lookup("base-url"))
	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))

	root.AddCommand(newCrawlCmd(a))
	root.AddCommand(newUsernameAvailableCmd(a))
	root.AddCommand(newValidateCmd(a))
	root.AddCommand(newLoginCmd(a))

	return root
}

// load は設定を読み込んでロガーを生成する。
func (a *app) load() error {
	cfg, err := config.FromViper(a.v)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// newGateway は設定された接続先に対するGatewayを生成する。
func (a *app) newGateway() (*ajax.Gateway, error) {
	g, err := ajax.New(a.cfg.BaseURL,
		ajax.WithLogger(a.logger),
		ajax.WithTimeout(requestTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("接続先の設定が不正です: %w", err)
	}
	return g, nil
}
