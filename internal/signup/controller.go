package signup

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sync/atomic"

	"github.com/nao1215/ccshuffle/pkg/account"
	"github.com/nao1215/ccshuffle/pkg/ajax"
	"github.com/nao1215/ccshuffle/pkg/envelope"
	"go.uber.org/zap"
)

const (
	// registerPath は登録サービスのエンドポイント。
	registerPath = "/register/"
	// usernameAvailablePath はユーザー名の利用可否のエンドポイント。
	usernameAvailablePath = "/register/username-available"
)

// ErrBusy は登録の送信中に再度送信された場合のエラー。
var ErrBusy = errors.New("登録を送信中です")

// User は登録されたユーザー。
type User struct {
	// ID はユーザーの一意識別子。
	ID string `json:"id"`
	// Username はユーザー名。
	Username string `json:"username"`
	// Email はメールアドレス。
	Email string `json:"email"`
}

// Controller はユーザー登録フォームのコントローラー。
type Controller struct {
	// gateway は登録サービスへのajaxクライアント。
	gateway *ajax.Gateway
	// validator は入力規則。Initで登録サービスの規則に置き換えられる。
	validator atomic.Pointer[account.Validator]
	// submit は登録ボタン。
	submit *ajax.Button
	// logger はログ出力先。
	logger *zap.Logger
}

// New は新しいControllerを生成する。
func New(gateway *ajax.Gateway, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		gateway: gateway,
		submit:  ajax.NewButton("register"),
		logger:  logger,
	}
	c.validator.Store(account.NewValidator(nil))
	return c
}

// Init は登録サービスから入力規則を取得してGatewayを初期化する。
// 入力規則の取得でcsrftokenクッキーも発行される。
func (c *Controller) Init(ctx context.Context) error {
	env := c.gateway.Get(ctx, registerPath, nil)
	if !env.OK() {
		return fmt.Errorf("入力規則の取得に失敗: %w", env.Err())
	}
	rules, err := envelope.DecodeResult[account.Rules](env)
	if err != nil {
		return fmt.Errorf("入力規則のデコードに失敗: %w", err)
	}
	pattern, err := regexp.Compile(rules.PasswordPattern)
	if err != nil {
		return fmt.Errorf("パスワードのパターンが不正です: %w", err)
	}
	c.validator.Store(account.NewValidator(pattern))

	c.gateway.Initialize()
	return nil
}

// IsUsernameAvailable はユーザー名が未登録かどうかを登録サービスに問い合わせる。
func (c *Controller) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	env := c.gateway.Get(ctx, usernameAvailablePath, url.Values{"username": {username}})
	if !env.OK() {
		return false, env.Err()
	}
	available, err := envelope.DecodeResult[bool](env)
	if err != nil {
		return false, fmt.Errorf("結果のデコードに失敗: %w", err)
	}
	return *available, nil
}

// CheckUsername はユーザー名が未登録で形式が正しいかを検証する。
// 空の場合は問い合わせずにIndicationNoneを返す。
func (c *Controller) CheckUsername(ctx context.Context, username string) (Indication, error) {
	if username == "" {
		return IndicationNone, nil
	}
	available, err := c.IsUsernameAvailable(ctx, username)
	if err != nil {
		c.logger.Warn("ユーザー名の確認に失敗しました", zap.String("username", username), zap.Error(err))
		return IndicationNone, err
	}
	if available && c.validator.Load().Username(username) == nil {
		return IndicationValid, nil
	}
	return IndicationInvalid, nil
}

// CheckPassword1 はパスワードの形式を検証する。
func (c *Controller) CheckPassword1(password1 string) Indication {
	if c.validator.Load().Password(password1) != nil {
		return IndicationInvalid
	}
	return IndicationValid
}

// CheckPassword2 は確認用のパスワードを検証する。
// パスワードと一致し、かつパスワードが正しい場合のみIndicationValidになる。
func (c *Controller) CheckPassword2(password1, password2 string) Indication {
	if password2 == password1 && c.CheckPassword1(password1) == IndicationValid {
		return IndicationValid
	}
	return IndicationInvalid
}

// CheckEmail はメールアドレスの形式を検証する。
// 空の場合はIndicationNone、形式が誤っている場合はIndicationWarningを返す。
func (c *Controller) CheckEmail(email string) Indication {
	if email == "" {
		return IndicationNone
	}
	if c.validator.Load().Email(email) != nil {
		return IndicationWarning
	}
	return IndicationValid
}

// Register は登録フォームを送信する。送信中に再度呼び出された場合はErrBusyを返す。
func (c *Controller) Register(ctx context.Context, form account.Registration) (*User, error) {
	env, ran := c.submit.TryRun(func() envelope.Envelope {
		return c.gateway.Post(ctx, registerPath, url.Values{
			"username":  {form.Username},
			"password1": {form.Password1},
			"password2": {form.Password2},
			"email":     {form.Email},
		})
	})
	if !ran {
		return nil, ErrBusy
	}
	if !env.OK() {
		return nil, env.Err()
	}
	user, err := envelope.DecodeResult[User](env)
	if err != nil {
		return nil, fmt.Errorf("登録結果のデコードに失敗: %w", err)
	}
	c.logger.Info("ユーザーを登録しました", zap.String("username", user.Username))
	return user, nil
}
