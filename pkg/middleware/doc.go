// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// JWT認証トークンの検証、CSRFトークンの検証、ajaxリクエストの判定、
// リクエストログ、パニックリカバリ、CORS設定など、
// CCShuffleの各サービスで共通して使用するミドルウェアを含む。
// エラーはすべてenvelopeのfail形式で返す。
package middleware
