// Package config はviperによる設定の読み込みを提供する。
//
// 設定は デフォルト値 < 設定ファイル < 環境変数 の順に上書きされる。
// 環境変数はCCSHUFFLE_プレフィックスを付けた大文字のキー名
// （例: CCSHUFFLE_JAMENDO_CLIENT_ID）で指定する。
// 互換性のため PORT と JWT_SECRET もそのまま参照する。
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix は環境変数のプレフィックス。
const envPrefix = "CCSHUFFLE"

// Jamendo はJamendo APIクライアントの設定。
type Jamendo struct {
	// ClientID はJamendo APIのクライアントID。
	ClientID string `mapstructure:"client_id"`
	// APIURL はJamendo APIのベースURL。
	APIURL string `mapstructure:"api_url"`
	// RequestsPerSecond は1秒あたりの最大リクエスト数。
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	// PageLimit は1ページあたりの取得件数。
	PageLimit int `mapstructure:"page_limit"`
	// MaxPages は1回のクロールで取得する最大ページ数。
	MaxPages int `mapstructure:"max_pages"`
}

// Config はCCShuffleの各コマンドの設定。
type Config struct {
	// Port はサーバーのリッスンポート。
	Port string `mapstructure:"port"`
	// DatabasePath はSQLiteデータベースのDSN。
	DatabasePath string `mapstructure:"database_path"`
	// JWTSecret はJWT署名用の秘密鍵。
	JWTSecret string `mapstructure:"jwt_secret"`
	// FrontendURL はCORSで許可するフロントエンドのオリジン。
	FrontendURL string `mapstructure:"frontend_url"`
	// LogLevel はログレベル。
	LogLevel string `mapstructure:"log_level"`
	// CookieSecure はcsrftokenクッキーにSecure属性を付与するかどうか。
	CookieSecure bool `mapstructure:"cookie_secure"`
	// AdminUsername は起動時に登録する管理者（superuser）のユーザー名。空の場合は登録しない。
	AdminUsername string `mapstructure:"admin_username"`
	// AdminPassword は管理者のパスワード。
	AdminPassword string `mapstructure:"admin_password"`
	// BaseURL はCLIが接続するCCShuffleのオリジン。
	BaseURL string `mapstructure:"base_url"`
	// Token はCLIがダッシュボードAPIに送信するJWT。
	Token string `mapstructure:"token"`
	// Jamendo はJamendo APIクライアントの設定。
	Jamendo Jamendo `mapstructure:"jamendo"`
}

// NewViper はデフォルト値と環境変数の設定を済ませたviperインスタンスを生成する。
// serviceはデフォルトのデータベースファイル名に使われる。
func NewViper(service string) *viper.Viper {
	v := viper.New()

	v.SetDefault("port", "8000")
	v.SetDefault("database_path", fmt.Sprintf("/data/%s.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", service))
	v.SetDefault("jwt_secret", "dev-secret-key")
	v.SetDefault("frontend_url", "http://localhost:3000")
	v.SetDefault("log_level", "info")
	v.SetDefault("cookie_secure", false)
	v.SetDefault("admin_username", "")
	v.SetDefault("admin_password", "")
	v.SetDefault("base_url", "http://localhost:8000")
	v.SetDefault("token", "")
	v.SetDefault("jamendo.client_id", "")
	v.SetDefault("jamendo.api_url", "https://api.jamendo.com/v3.0")
	v.SetDefault("jamendo.requests_per_second", 2.0)
	v.SetDefault("jamendo.page_limit", 200)
	v.SetDefault("jamendo.max_pages", 5)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("port", envPrefix+"_PORT", "PORT")
	_ = v.BindEnv("jwt_secret", envPrefix+"_JWT_SECRET", "JWT_SECRET")

	v.SetConfigName("ccshuffle")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/ccshuffle")
	return v
}

// FromViper はviperインスタンスから設定を読み込む。
// 設定ファイルが見つからない場合はデフォルト値と環境変数のみを使用する。
func FromViper(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("設定の変換に失敗: %w", err)
	}
	if cfg.Port == "" {
		return nil, errors.New("ポートが設定されていません")
	}
	return &cfg, nil
}

// Load はserviceのデフォルト値と環境変数から設定を読み込む。
func Load(service string) (*Config, error) {
	return FromViper(NewViper(service))
}
