package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/nao1215/ccshuffle/pkg/envelope"
)

// JWTClaims はJWTトークンのクレーム（ペイロード）を表す。
type JWTClaims struct {
	jwt.RegisteredClaims
	// UserID は認証済みユーザーの一意識別子。
	UserID string `json:"user_id"`
	// Username はユーザー名。
	Username string `json:"username"`
	// Superuser はダッシュボードの操作権限を持つかどうか。
	Superuser bool `json:"superuser"`
}

// jwtIssuer はCCShuffleが発行するトークンのissuer。
const jwtIssuer = "ccshuffle"

// tokenLifetime はトークンの有効期間。
const tokenLifetime = 24 * time.Hour

// コンテキストに認証情報を格納するキー。
const (
	contextKeyUserID    = "user_id"
	contextKeyUsername  = "username"
	contextKeySuperuser = "superuser"
)

// GenerateJWT はユーザー情報からJWTトークンを生成する。
// registrationサービスがログイン成功時に呼び出す。
func GenerateJWT(secret, userID, username string, superuser bool) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    jwtIssuer,
			Subject:   userID,
		},
		UserID:    userID,
		Username:  username,
		Superuser: superuser,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// JWTAuth はJWTトークンを検証するGinミドルウェアを返す。
// 検証に成功した場合、コンテキストに "user_id"、"username"、"superuser" を設定する。
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			envelope.Abort(c, http.StatusUnauthorized, "Authorizationヘッダーが必要です")
			return
		}

		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			envelope.Abort(c, http.StatusUnauthorized, "Bearer トークン形式が不正です")
			return
		}

		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(jwtIssuer))
		if err != nil || !token.Valid {
			envelope.Abort(c, http.StatusUnauthorized, "トークンが無効です")
			return
		}

		c.Set(contextKeyUserID, claims.UserID)
		c.Set(contextKeyUsername, claims.Username)
		c.Set(contextKeySuperuser, claims.Superuser)
		c.Next()
	}
}

// RequireSuperuser はsuperuserのみアクセスを許可するGinミドルウェアを返す。
// JWTAuthミドルウェアが事前に適用されている必要がある。
func RequireSuperuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsSuperuser(c) {
			envelope.Abort(c, http.StatusForbidden, "この操作には管理者権限が必要です")
			return
		}
		c.Next()
	}
}

// GetUserID はGinコンテキストからユーザーIDを取得する。
// JWTAuthミドルウェアが事前に適用されている必要がある。
func GetUserID(c *gin.Context) string {
	return c.GetString(contextKeyUserID)
}

// GetUsername はGinコンテキストからユーザー名を取得する。
func GetUsername(c *gin.Context) string {
	return c.GetString(contextKeyUsername)
}

// IsSuperuser は認証済みユーザーがsuperuserかどうかを返す。
func IsSuperuser(c *gin.Context) bool {
	return c.GetBool(contextKeySuperuser)
}
