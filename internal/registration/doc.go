// Package registration はユーザー登録サービスの内部実装を提供する。
//
// 登録フォームからajaxで呼び出される。変更系のリクエストは
// csrftokenクッキーとX-CSRFTokenヘッダーの一致で保護する。
//
// 主な機能:
//   - 入力規則の取得とCSRFクッキーの発行（GET /register/）
//   - ユーザー名の利用可否の確認（GET /register/username-available）
//   - ユーザー登録（POST /register/）
//   - ダッシュボード用のJWT発行（POST /auth/token）
package registration
