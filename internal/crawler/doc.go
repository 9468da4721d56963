// Package crawler はクローラーサービスの内部実装を提供する。
//
// 管理者ダッシュボードからajaxで呼び出され、外部の音楽サービスから
// クリエイティブ・コモンズ楽曲をクロールする。クロール処理の実行記録は
// SQLiteに保存され、サービスごとに一覧できる。
//
// 主な機能:
//   - コマンドによるクロールの開始（start-jamendo-crawl）
//   - サービスごとのクロール処理記録の取得
//
// レスポンスはすべてheader/resultのエンベロープ形式で返す。
package crawler
