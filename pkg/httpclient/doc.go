// Package httpclient は外部APIを呼び出すJSON用のHTTPクライアントを提供する。
//
// クローラーがJamendo APIなどの外部サービスからデータを取得する際に使用する。
// クエリパラメータの付与、レート制限、失敗時のログ出力を共通化する。
package httpclient
