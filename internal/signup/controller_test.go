package signup

import (
	"context"
	"database/sql"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/ccshuffle/internal/registration"
	"github.com/nao1215/ccshuffle/pkg/account"
	"github.com/nao1215/ccshuffle/pkg/ajax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupController は登録サービスを起動し、それに接続して初期化したControllerを返す。
func setupController(t *testing.T, passwordPattern *regexp.Regexp) *Controller {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	s, err := registration.New(context.Background(), db, registration.Options{
		JWTSecret:       "signup-test-secret",
		AdminUsername:   "admin",
		AdminPassword:   "admin-password",
		PasswordPattern: passwordPattern,
		BcryptCost:      bcrypt.MinCost,
	})
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = s.Close()
	})

	g, err := ajax.New(ts.URL, ajax.WithHTTPClient(ts.Client()))
	require.NoError(t, err)

	c := New(g, nil)
	require.NoError(t, c.Init(context.Background()))
	require.True(t, g.CSRF().Found)
	return c
}

// TestIndicationString はフォームのクラス名を検証する。
func TestIndicationString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", IndicationNone.String())
	assert.Equal(t, "has-success", IndicationValid.String())
	assert.Equal(t, "has-error", IndicationInvalid.String())
	assert.Equal(t, "has-warning", IndicationWarning.String())
}

// TestCheckUsername はユーザー名の検証を検証する。
func TestCheckUsername(t *testing.T) {
	t.Parallel()

	c := setupController(t, nil)
	tests := []struct {
		name     string
		username string
		want     Indication
	}{
		{"未登録で形式が正しい場合はValid", "kevin", IndicationValid},
		{"登録済みの場合はInvalid", "admin", IndicationInvalid},
		{"形式が誤っている場合はInvalid", "kevin haller", IndicationInvalid},
		{"31文字以上はInvalid", "abcdefghijklmnopqrstuvwxyz01234", IndicationInvalid},
		{"空の場合はNone", "", IndicationNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := c.CheckUsername(context.Background(), tt.username)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestCheckPasswords はパスワードの検証を検証する。
func TestCheckPasswords(t *testing.T) {
	t.Parallel()

	t.Run("登録サービスの規則が使われること", func(t *testing.T) {
		t.Parallel()

		c := setupController(t, regexp.MustCompile(`^[a-z]{4,}$`))

		assert.Equal(t, IndicationValid, c.CheckPassword1("abcd"))
		assert.Equal(t, IndicationInvalid, c.CheckPassword1("abc"))
		assert.Equal(t, IndicationInvalid, c.CheckPassword1("ABCD"))
		assert.Equal(t, IndicationInvalid, c.CheckPassword1(""))

		assert.Equal(t, IndicationValid, c.CheckPassword2("abcd", "abcd"))
		assert.Equal(t, IndicationInvalid, c.CheckPassword2("abcd", "abce"))
		assert.Equal(t, IndicationInvalid, c.CheckPassword2("abc", "abc"))
	})
}

// TestCheckEmail はメールアドレスの検証を検証する。
func TestCheckEmail(t *testing.T) {
	t.Parallel()

	c := New(nil, nil)
	assert.Equal(t, IndicationNone, c.CheckEmail(""))
	assert.Equal(t, IndicationValid, c.CheckEmail("kevin.haller@outofbits.com"))
	assert.Equal(t, IndicationWarning, c.CheckEmail("kevin@outofbits"))
}

// TestRegister は登録フォームの送信を検証する。
func TestRegister(t *testing.T) {
	t.Parallel()

	t.Run("登録したユーザーが返り、ユーザー名が使用済みになること", func(t *testing.T) {
		t.Parallel()

		c := setupController(t, nil)
		user, err := c.Register(context.Background(), account.Registration{
			Username:  "amelie@testing",
			Password1: "password",
			Password2: "password",
			Email:     "amelie@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, "amelie@testing", user.Username)
		assert.NotEmpty(t, user.ID)

		available, err := c.IsUsernameAvailable(context.Background(), "amelie@testing")
		require.NoError(t, err)
		assert.False(t, available)
	})

	t.Run("サーバーの検証エラーが返ること", func(t *testing.T) {
		t.Parallel()

		c := setupController(t, nil)
		_, err := c.Register(context.Background(), account.Registration{
			Username:  "kevin",
			Password1: "password",
			Password2: "mismatch",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "パスワードが一致しません")
	})
}
