// クローラーサービスのエントリポイント。
// 管理者からのajaxリクエストを受けて外部サービスのクロールを実行し、処理記録を保存する。
package main

import (
	"log"

	"github.com/nao1215/ccshuffle/internal/crawler"
	"github.com/nao1215/ccshuffle/pkg/config"
	"github.com/nao1215/ccshuffle/pkg/logging"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load("crawler")
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("ロガーの初期化に失敗: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	server, err := crawler.NewServer(cfg, logger)
	if err != nil {
		logger.Fatal("クローラーサーバーの初期化に失敗", zap.Error(err))
	}
	defer func() { _ = server.Close() }()

	logger.Info("クローラーサービスを起動します", zap.String("port", cfg.Port))
	if err := server.Run(); err != nil {
		logger.Fatal("クローラーサービスの起動に失敗", zap.Error(err))
	}
}
