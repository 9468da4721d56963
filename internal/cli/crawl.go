package cli

import (
	"errors"
	"fmt"

	"github.com/nao1215/ccshuffle/internal/dashboard"
	"github.com/nao1215/ccshuffle/pkg/crawl"
	"github.com/spf13/cobra"
)

// errNoToken はJWTが設定されていない場合のエラー。
var errNoToken = errors.New("トークンが指定されていません（--token または CCSHUFFLE_TOKEN）")

// newCrawlCmd はcrawlコマンドを生成する。
func newCrawlCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "クロール管理ダッシュボードを操作する",
	}
	cmd.PersistentFlags().String("token", "", "管理者のJWT")
	_ = a.v.BindPFlag("token", cmd.PersistentFlags().Lookup("token"))

	cmd.AddCommand(newCrawlJamendoCmd(a))
	cmd.AddCommand(newCrawlProcessesCmd(a))
	return cmd
}

// newDashboard は設定からDashboardを生成して初期化する。
func (a *app) newDashboard() (*dashboard.Dashboard, error) {
	if a.cfg.Token == "" {
		return nil, errNoToken
	}
	g, err := a.newGateway()
	if err != nil {
		return nil, err
	}
	d := dashboard.New(g, a.cfg.Token, a.logger)
	d.Init()
	return d, nil
}

// newCrawlJamendoCmd はcrawl jamendoコマンドを生成する。
func newCrawlJamendoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "jamendo",
		Short: "Jamendoのクロールを開始する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := a.newDashboard()
			if err != nil {
				return err
			}
			process, err := d.CrawlJamendo(cmd.Context())
			if err != nil {
				return fmt.Errorf("クロールに失敗: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), process)
			return nil
		},
	}
}

// newCrawlProcessesCmd はcrawl processesコマンドを生成する。
func newCrawlProcessesCmd(a *app) *cobra.Command {
	var service string

	cmd := &cobra.Command{
		Use:   "processes",
		Short: "クロールの処理記録を新しい順に表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := crawl.ParseService(service)
			if err != nil {
				return err
			}
			d, err := a.newDashboard()
			if err != nil {
				return err
			}
			processes, err := d.Processes(cmd.Context(), svc)
			if err != nil {
				return fmt.Errorf("処理記録の取得に失敗: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(processes) == 0 {
				fmt.Fprintln(out, "処理記録はありません")
				return nil
			}
			for _, p := range processes {
				fmt.Fprintln(out, p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&service, "service", string(crawl.ServiceJamendo), "対象のサービス")
	return cmd
}
