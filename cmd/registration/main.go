// ユーザー登録サービスのエントリポイント。
// 登録フォームのajaxリクエストを受け付け、管理者向けのJWTを発行する。
package main

import (
	"log"

	"github.com/nao1215/ccshuffle/internal/registration"
	"github.com/nao1215/ccshuffle/pkg/config"
	"github.com/nao1215/ccshuffle/pkg/logging"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load("registration")
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("ロガーの初期化に失敗: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	server, err := registration.NewServer(cfg, logger)
	if err != nil {
		logger.Fatal("登録サーバーの初期化に失敗", zap.Error(err))
	}
	defer func() { _ = server.Close() }()

	logger.Info("登録サービスを起動します", zap.String("port", cfg.Port))
	if err := server.Run(); err != nil {
		logger.Fatal("登録サービスの起動に失敗", zap.Error(err))
	}
}
