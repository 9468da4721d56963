// Package signup はユーザー登録フォームのコントローラーを提供する。
//
// 入力中の各フィールドを登録サービスの入力規則で検証し、
// フォームに表示する状態（Indication）を返す。
package signup
