package registration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/ccshuffle/pkg/account"
	"github.com/nao1215/ccshuffle/pkg/config"
	"github.com/nao1215/ccshuffle/pkg/envelope"
	"github.com/nao1215/ccshuffle/pkg/middleware"
	"go.uber.org/zap"
)

// Options はServerの構成要素。
type Options struct {
	// Port はサーバーのリッスンポート。
	Port string
	// JWTSecret はJWT署名用の秘密鍵。
	JWTSecret string
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string
	// CookieSecure はcsrftokenクッキーにSecure属性を付与するかどうか。
	CookieSecure bool
	// AdminUsername は起動時に登録する管理者のユーザー名。空の場合は登録しない。
	AdminUsername string
	// AdminPassword は管理者のパスワード。
	AdminPassword string
	// PasswordPattern はパスワードのパターン。nilの場合はデフォルトを使用する。
	PasswordPattern *regexp.Regexp
	// BcryptCost はパスワードハッシュのコスト。0の場合はデフォルトを使用する。
	BcryptCost int
	// Logger はログ出力先。nilの場合は出力しない。
	Logger *zap.Logger
}

// Server はユーザー登録サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// jwtSecret はJWT署名用の秘密鍵。
	jwtSecret string
	// db はSQLiteデータベース接続。
	db *sql.DB
	// store はユーザーのストア。
	store *Store
	// validator は登録フォームの入力規則。
	validator *account.Validator
	// logger はログ出力先。
	logger *zap.Logger
}

// New は既存のデータベース接続からサーバーを生成する。
// マイグレーションを適用し、管理者が設定されていれば登録する。
func New(ctx context.Context, db *sql.DB, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := initSchema(ctx, db, logger); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	store := NewStore(db, opts.BcryptCost)
	if opts.AdminUsername != "" {
		created, err := store.EnsureSuperuser(ctx, opts.AdminUsername, opts.AdminPassword)
		if err != nil {
			return nil, fmt.Errorf("管理者の登録に失敗: %w", err)
		}
		if created {
			logger.Info("管理者を登録しました", zap.String("username", opts.AdminUsername))
		}
	}

	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.ZapLogger(logger))
	router.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: opts.AllowedOrigins}))
	router.Use(middleware.CSRF(middleware.CSRFConfig{Secure: opts.CookieSecure}))

	s := &Server{
		router:    router,
		port:      opts.Port,
		jwtSecret: opts.JWTSecret,
		db:        db,
		store:     store,
		validator: account.NewValidator(opts.PasswordPattern),
		logger:    logger,
	}
	s.setupRoutes()

	return s, nil
}

// NewServer は設定から登録サーバーを生成する。
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	sqlDB, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	s, err := New(context.Background(), sqlDB, Options{
		Port:           cfg.Port,
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: []string{cfg.FrontendURL},
		CookieSecure:   cfg.CookieSecure,
		AdminUsername:  cfg.AdminUsername,
		AdminPassword:  cfg.AdminPassword,
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
	register := s.router.Group("/register")
	{
		// 入力規則の取得（csrftokenクッキーの発行を兼ねる）
		register.GET("/", s.handleRules())
		// ユーザー名の利用可否
		register.GET("/username-available", s.handleUsernameAvailable())
		// ユーザー登録
		register.POST("/", s.handleRegister())
	}

	// JWT発行
	s.router.POST("/auth/token", s.handleToken())

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "registration"})
	})
}

// writeSuccess は結果をsuccessのエンベロープで返す。
func writeSuccess(c *gin.Context, code int, result any) {
	env, err := envelope.Success(result)
	if err != nil {
		envelope.Abort(c, http.StatusInternalServerError, "レスポンスの生成に失敗しました")
		return
	}
	envelope.Write(c, code, env)
}

// handleRules は登録フォームの入力規則を返す。
func (s *Server) handleRules() gin.HandlerFunc {
	return func(c *gin.Context) {
		writeSuccess(c, http.StatusOK, s.validator.Rules())
	}
}

// handleUsernameAvailable はusernameパラメータのユーザー名が未登録かどうかを返す。
// 空のユーザー名は利用不可として扱う。
func (s *Server) handleUsernameAvailable() gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.Query("username")
		if username == "" {
			writeSuccess(c, http.StatusOK, false)
			return
		}

		exists, err := s.store.UsernameExists(c.Request.Context(), username)
		if err != nil {
			s.logger.Error("ユーザー名の確認に失敗しました", zap.Error(err))
			envelope.Abort(c, http.StatusInternalServerError, "ユーザー名の確認に失敗しました")
			return
		}
		writeSuccess(c, http.StatusOK, !exists)
	}
}

// handleRegister はフォームを検証してユーザーを登録する。
func (s *Server) handleRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		var form account.Registration
		if err := c.ShouldBind(&form); err != nil {
			envelope.Abort(c, http.StatusBadRequest, "リクエストの形式が不正です")
			return
		}
		if err := s.validator.Registration(form); err != nil {
			envelope.Abort(c, http.StatusBadRequest, err.Error())
			return
		}

		user, err := s.store.Create(c.Request.Context(), form.Username, form.Password1, form.Email, false)
		if errors.Is(err, ErrUsernameTaken) {
			envelope.Abort(c, http.StatusConflict, err.Error())
			return
		}
		if err != nil {
			s.logger.Error("ユーザーの登録に失敗しました", zap.Error(err))
			envelope.Abort(c, http.StatusInternalServerError, "ユーザーの登録に失敗しました")
			return
		}

		s.logger.Info("ユーザーを登録しました", zap.String("user_id", user.ID), zap.String("username", user.Username))
		writeSuccess(c, http.StatusCreated, user)
	}
}

// tokenResponse はJWT発行のレスポンス。
type tokenResponse struct {
	// Token は発行したJWT。
	Token string `json:"token"`
	// Username はユーザー名。
	Username string `json:"username"`
	// Superuser は管理者かどうか。
	Superuser bool `json:"superuser"`
}

// handleToken はユーザー名とパスワードを検証してJWTを発行する。
func (s *Server) handleToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.PostForm("username")
		password := c.PostForm("password")
		if username == "" || password == "" {
			envelope.Abort(c, http.StatusBadRequest, "ユーザー名とパスワードは必須です")
			return
		}

		user, err := s.store.Authenticate(c.Request.Context(), username, password)
		if errors.Is(err, ErrInvalidCredentials) {
			envelope.Abort(c, http.StatusUnauthorized, err.Error())
			return
		}
		if err != nil {
			s.logger.Error("認証に失敗しました", zap.Error(err))
			envelope.Abort(c, http.StatusInternalServerError, "認証に失敗しました")
			return
		}

		token, err := middleware.GenerateJWT(s.jwtSecret, user.ID, user.Username, user.Superuser)
		if err != nil {
			s.logger.Error("JWTの生成に失敗しました", zap.Error(err))
			envelope.Abort(c, http.StatusInternalServerError, "トークンの発行に失敗しました")
			return
		}

		s.logger.Info("トークンを発行しました", zap.String("username", user.Username))
		writeSuccess(c, http.StatusOK, tokenResponse{Token: token, Username: user.Username, Superuser: user.Superuser})
	}
}
