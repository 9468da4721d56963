// Package account はユーザー登録フォームの入力規則を提供する。
//
// 同じ規則を登録サービス（サーバー側の検証）と登録フォームの
// コントローラー（入力中の表示）の両方で使用する。
package account
