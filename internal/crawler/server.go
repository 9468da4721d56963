package crawler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/ccshuffle/pkg/config"
	"github.com/nao1215/ccshuffle/pkg/crawl"
	"github.com/nao1215/ccshuffle/pkg/envelope"
	"github.com/nao1215/ccshuffle/pkg/httpclient"
	"github.com/nao1215/ccshuffle/pkg/middleware"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var (
	// ErrNoCommand はcommandパラメータが無い場合のエラー。
	ErrNoCommand = errors.New("No command is given !") //nolint:staticcheck // クライアントに表示する文言
	// ErrUnknownCommand は未知のコマンドが指定された場合のエラー。
	ErrUnknownCommand = errors.New("The given command is unknown !") //nolint:staticcheck // クライアントに表示する文言
)

// Options はServerの構成要素。
type Options struct {
	// Port はサーバーのリッスンポート。
	Port string
	// JWTSecret はJWT検証用の秘密鍵。
	JWTSecret string
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string
	// Crawlers は実行可能なクローラー。サービスごとに1つ登録する。
	Crawlers []Crawler
	// Logger はログ出力先。nilの場合は出力しない。
	Logger *zap.Logger
}

// Server はクローラーサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// jwtSecret はJWT検証用の秘密鍵。
	jwtSecret string
	// db はSQLiteデータベース接続。
	db *sql.DB
	// store はクロール処理記録のストア。
	store *Store
	// commands はコマンド名からクローラーへの対応。
	commands map[string]Crawler
	// logger はログ出力先。
	logger *zap.Logger
}

// New は既存のデータベース接続からサーバーを生成する。
// マイグレーションを適用してからルーティングを設定する。
func New(ctx context.Context, db *sql.DB, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := initSchema(ctx, db, logger); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.ZapLogger(logger))
	router.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet},
	}))

	s := &Server{
		router:    router,
		port:      opts.Port,
		jwtSecret: opts.JWTSecret,
		db:        db,
		store:     NewStore(db),
		commands:  make(map[string]Crawler, len(opts.Crawlers)),
		logger:    logger,
	}
	for _, c := range opts.Crawlers {
		s.commands[crawl.StartCommand(c.Service())] = c
	}
	s.setupRoutes()

	return s, nil
}

// NewServer は設定からクローラーサーバーを生成する。
// SQLiteデータベースを開き、Jamendoクローラーを登録する。
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	sqlDB, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	client := httpclient.New(cfg.Jamendo.APIURL,
		httpclient.WithRateLimit(cfg.Jamendo.RequestsPerSecond, 1),
		httpclient.WithLogger(logger.Named("jamendo")))
	jamendo := NewJamendoCrawler(client, JamendoConfig{
		ClientID:  cfg.Jamendo.ClientID,
		PageLimit: cfg.Jamendo.PageLimit,
		MaxPages:  cfg.Jamendo.MaxPages,
	}, logger.Named("jamendo"))

	s, err := New(context.Background(), sqlDB, Options{
		Port:           cfg.Port,
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: []string{cfg.FrontendURL},
		Crawlers:       []Crawler{jamendo},
		Logger:         logger,
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// Handler はサーバーのHTTPハンドラーを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close はデータベース接続を閉じる。
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	crawler := s.router.Group("/crawler")
	crawler.Use(middleware.JWTAuth(s.jwtSecret))
	crawler.Use(middleware.RequireSuperuser())
	crawler.Use(middleware.RequireAjax())
	{
		// コマンドの実行
		crawler.GET("/", s.handleCommand())
		// サービスごとの処理記録一覧
		crawler.GET("/processes", s.handleListProcesses())
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "crawler"})
	})
}

// handleCommand はcommandパラメータで指定されたクロールを実行する。
func (s *Server) handleCommand() gin.HandlerFunc {
	return func(c *gin.Context) {
		command, ok := c.GetQuery("command")
		if !ok {
			envelope.Abort(c, http.StatusBadRequest, ErrNoCommand.Error())
			return
		}
		crawler, ok := s.commands[command]
		if !ok {
			envelope.Abort(c, http.StatusBadRequest, ErrUnknownCommand.Error())
			return
		}

		process, err := s.run(c.Request.Context(), crawler)
		if err != nil {
			s.logger.Error("クロールに失敗しました",
				zap.String("command", command), zap.String("process_id", process.ID), zap.Error(err))
			envelope.Write(c, http.StatusInternalServerError, envelope.Failure(err.Error()))
			return
		}

		env, err := envelope.Success(process)
		if err != nil {
			envelope.Abort(c, http.StatusInternalServerError, "レスポンスの生成に失敗しました")
			return
		}
		envelope.Write(c, http.StatusOK, env)
	}
}

// run はクロール処理を記録しながらクローラーを実行する。
// クローラーが失敗した場合は処理をFailedとして記録し、そのエラーを返す。
func (s *Server) run(ctx context.Context, crawler Crawler) (crawl.Process, error) {
	process := crawl.Process{
		Service:       crawler.Service(),
		ExecutionDate: time.Now().UTC(),
		Status:        crawl.StatusRunning,
	}
	if err := s.store.Create(ctx, &process); err != nil {
		return process, err
	}
	s.logger.Info("クロールを開始します", zap.Stringer("process", process))

	count, crawlErr := crawler.Crawl(ctx)
	process.TrackCount = count
	if crawlErr != nil {
		process.Fail(crawlErr)
	} else {
		process.Status = crawl.StatusFinished
	}

	// リクエストがキャンセルされても結果は記録する
	if err := s.store.Update(context.WithoutCancel(ctx), &process); err != nil {
		return process, errors.Join(crawlErr, err)
	}
	return process, crawlErr
}

// handleListProcesses はserviceパラメータのサービスの処理記録を返す。
func (s *Server) handleListProcesses() gin.HandlerFunc {
	return func(c *gin.Context) {
		service, err := crawl.ParseService(c.Query("service"))
		if err != nil {
			envelope.Abort(c, http.StatusBadRequest, err.Error())
			return
		}

		processes, err := s.store.ListByService(c.Request.Context(), service)
		if err != nil {
			s.logger.Error("処理記録の取得に失敗しました", zap.Error(err))
			envelope.Abort(c, http.StatusInternalServerError, "処理記録の取得に失敗しました")
			return
		}

		env, err := envelope.Success(processes)
		if err != nil {
			envelope.Abort(c, http.StatusInternalServerError, "レスポンスの生成に失敗しました")
			return
		}
		envelope.Write(c, http.StatusOK, env)
	}
}
