// Package dashboard はクロール管理ダッシュボードのクライアントを提供する。
//
// 管理者がクローラーサービスへajaxリクエストを送信してクロールを開始し、
// 処理記録を参照するために使用する。クロール開始ボタンは実行中に無効化され、
// 二重に開始されることはない。
package dashboard
