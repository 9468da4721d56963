package account

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxUsernameLength はユーザー名の最大文字数。
const MaxUsernameLength = 30

var (
	// UsernamePattern はユーザー名に使用できる文字のパターン。
	UsernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
	// DefaultPasswordPattern はパスワードのデフォルトパターン。8文字以上。
	DefaultPasswordPattern = regexp.MustCompile(`^.{8,}$`)
	// EmailPattern は登録フォームで使用するメールアドレスのパターン。
	EmailPattern = regexp.MustCompile(`(?i)^[-a-z0-9~!$%^&*_=+}{'?]+(\.[-a-z0-9~!$%^&*_=+}{'?]+)*@([a-z0-9_][-a-z0-9_]*(\.[-a-z0-9_]+)*\.(aero|arpa|biz|com|coop|edu|gov|info|int|mil|museum|name|net|org|pro|travel|mobi|[a-z][a-z])|([0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}))(:[0-9]{1,5})?$`)
)

// Registration はユーザー登録フォームの入力。
type Registration struct {
	// Username はユーザー名。
	Username string `form:"username" json:"username" validate:"required,max=30,username"`
	// Password1 はパスワード。
	Password1 string `form:"password1" json:"-" validate:"required,password"`
	// Password2 は確認用のパスワード。
	Password2 string `form:"password2" json:"-" validate:"required,eqfield=Password1"`
	// Email はメールアドレス。任意。
	Email string `form:"email" json:"email" validate:"omitempty,max=2048,email_address"`
}

// fieldLabels はフォームのフィールド名とエラーメッセージでの表示名の対応。
var fieldLabels = map[string]string{
	"username":  "ユーザー名",
	"password1": "パスワード",
	"password2": "パスワード（確認）",
	"email":     "メールアドレス",
}

// FieldError は1つのフィールドの検証エラー。
type FieldError struct {
	// Field はフォームのフィールド名。
	Field string `json:"field"`
	// Message は表示用のメッセージ。
	Message string `json:"message"`
}

// FieldErrors はフォームの検証エラーの一覧。
type FieldErrors []FieldError

// Error はすべてのメッセージを連結して返す。
func (e FieldErrors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Message
	}
	return strings.Join(msgs, " / ")
}

// Rules はクライアントに公開する入力規則。
type Rules struct {
	// UsernamePattern はユーザー名のパターン。
	UsernamePattern string `json:"username_pattern"`
	// UsernameMaxLength はユーザー名の最大文字数。
	UsernameMaxLength int `json:"username_max_length"`
	// PasswordPattern はパスワードのパターン。
	PasswordPattern string `json:"password_pattern"`
}

// Validator は登録フォームの入力規則を検証する。
// 複数のゴルーチンから同時に使用できる。
type Validator struct {
	validate        *validator.Validate
	passwordPattern *regexp.Regexp
}

// NewValidator は新しいValidatorを生成する。
// passwordPatternがnilの場合はDefaultPasswordPatternを使用する。
func NewValidator(passwordPattern *regexp.Regexp) *Validator {
	if passwordPattern == nil {
		passwordPattern = DefaultPasswordPattern
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "username", UsernamePattern)
	mustRegister(v, "password", passwordPattern)
	mustRegister(v, "email_address", EmailPattern)

	return &Validator{validate: v, passwordPattern: passwordPattern}
}

// Rules は入力規則を返す。
func (v *Validator) Rules() Rules {
	return Rules{
		UsernamePattern:   UsernamePattern.String(),
		UsernameMaxLength: MaxUsernameLength,
		PasswordPattern:   v.passwordPattern.String(),
	}
}

// mustRegister は正規表現にマッチするかを検証するタグを登録する。
func mustRegister(v *validator.Validate, tag string, re *regexp.Regexp) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	})
	if err != nil {
		panic(fmt.Sprintf("検証タグ %q の登録に失敗: %v", tag, err))
	}
}

// Registration はフォーム全体を検証する。
// 検証エラーの場合はFieldErrorsを返す。
func (v *Validator) Registration(r Registration) error {
	return toFieldErrors(v.validate.Struct(r))
}

// Username はユーザー名の形式を検証する。空の場合もエラーになる。
func (v *Validator) Username(username string) error {
	return toFieldErrors(v.validate.Var(username, "required,max=30,username"))
}

// Password はパスワードの形式を検証する。空の場合もエラーになる。
func (v *Validator) Password(password string) error {
	return toFieldErrors(v.validate.Var(password, "required,password"))
}

// Email はメールアドレスの形式を検証する。空の場合もエラーになる。
func (v *Validator) Email(email string) error {
	return toFieldErrors(v.validate.Var(email, "required,max=2048,email_address"))
}

// toFieldErrors はvalidatorのエラーを表示用のFieldErrorsに変換する。
func toFieldErrors(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(FieldErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

// message はフィールドエラーの表示用メッセージを返す。
func message(fe validator.FieldError) string {
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = "値"
	}
	switch fe.Tag() {
	case "required":
		return label + "は必須です"
	case "max":
		return fmt.Sprintf("%sは%s文字以内で入力してください", label, fe.Param())
	case "username":
		return "ユーザー名には英数字と . @ + - _ のみ使用できます"
	case "password":
		return "パスワードの形式が不正です"
	case "eqfield":
		return "パスワードが一致しません"
	case "email_address":
		return "メールアドレスの形式が不正です"
	}
	return label + "が不正です"
}
