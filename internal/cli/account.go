package cli

import (
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/fatih/color"
	"github.com/nao1215/ccshuffle/internal/signup"
	"github.com/nao1215/ccshuffle/pkg/envelope"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// usernameCheckConcurrency はユーザー名の同時問い合わせ数の上限。
const usernameCheckConcurrency = 4

// tokenPath はJWT発行のエンドポイント。
const tokenPath = "/auth/token"

// tokenResult はJWT発行の結果。
type tokenResult struct {
	Token     string `json:"token"`
	Username  string `json:"username"`
	Superuser bool   `json:"superuser"`
}

// newUsernameAvailableCmd はusername-availableコマンドを生成する。
func newUsernameAvailableCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "username-available NAME...",
		Short: "ユーザー名が未登録かどうかを確認する",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.newGateway()
			if err != nil {
				return err
			}
			ctrl := signup.New(g, a.logger)

			results := make([]bool, len(args))
			eg, ctx := errgroup.WithContext(cmd.Context())
			eg.SetLimit(usernameCheckConcurrency)
			for i, name := range args {
				eg.Go(func() error {
					available, err := ctrl.IsUsernameAvailable(ctx, name)
					if err != nil {
						return fmt.Errorf("%s: %w", name, err)
					}
					results[i] = available
					return nil
				})
			}
			if err := eg.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, name := range args {
				fmt.Fprintf(out, "%s\t%t\n", name, results[i])
			}
			return nil
		},
	}
}

// newValidateCmd はvalidateコマンドを生成する。
func newValidateCmd(a *app) *cobra.Command {
	var username, password1, password2, email string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "登録フォームの入力を登録サービスの規則で検証する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := a.newGateway()
			if err != nil {
				return err
			}
			ctrl := signup.New(g, a.logger)
			if err := ctrl.Init(cmd.Context()); err != nil {
				return err
			}

			usernameIndication, err := ctrl.CheckUsername(cmd.Context(), username)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printIndication(out, "username", usernameIndication)
			printIndication(out, "password1", ctrl.CheckPassword1(password1))
			printIndication(out, "password2", ctrl.CheckPassword2(password1, password2))
			printIndication(out, "email", ctrl.CheckEmail(email))
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "ユーザー名")
	cmd.Flags().StringVar(&password1, "password1", "", "パスワード")
	cmd.Flags().StringVar(&password2, "password2", "", "確認用のパスワード")
	cmd.Flags().StringVar(&email, "email", "", "メールアドレス")
	return cmd
}

// printIndication はフィールドの検証状態を1行で出力する。
func printIndication(out io.Writer, field string, i signup.Indication) {
	label := i.String()
	switch i {
	case signup.IndicationValid:
		label = color.New(color.FgGreen).Sprint(label)
	case signup.IndicationInvalid:
		label = color.New(color.FgRed).Sprint(label)
	case signup.IndicationWarning:
		label = color.New(color.FgYellow).Sprint(label)
	case signup.IndicationNone:
		label = "-"
	}
	fmt.Fprintf(out, "%s\t%s\n", field, label)
}

// newLoginCmd はloginコマンドを生成する。
func newLoginCmd(a *app) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "登録サービスで認証してJWTを表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if username == "" || password == "" {
				return errors.New("--username と --password は必須です")
			}
			g, err := a.newGateway()
			if err != nil {
				return err
			}
			// 入力規則の取得でcsrftokenクッキーを受け取る
			if err := signup.New(g, a.logger).Init(cmd.Context()); err != nil {
				return err
			}

			env := g.Post(cmd.Context(), tokenPath, url.Values{
				"username": {username},
				"password": {password},
			})
			if !env.OK() {
				return fmt.Errorf("認証に失敗: %w", env.Err())
			}
			res, err := envelope.DecodeResult[tokenResult](env)
			if err != nil {
				return fmt.Errorf("トークンのデコードに失敗: %w", err)
			}
			a.logger.Debug("トークンを取得しました", zap.String("username", res.Username))
			fmt.Fprintln(cmd.OutOrStdout(), res.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "ユーザー名")
	cmd.Flags().StringVar(&password, "password", "", "パスワード")
	return cmd
}
