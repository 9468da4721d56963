// Package envelope はajax通信で使用するレスポンスエンベロープを提供する。
//
// サーバーからのすべての応答は {"header": {"status", "error_msg"}, "result"} の
// 形式に正規化される。クライアント側はParseで受信したボディを解釈し、
// サーバー側はSuccess/FailureとWriteでエンベロープを返す。
// 不正な形式の応答やトランスポートエラーも必ずfailのエンベロープに変換され、
// 黙って捨てられることはない。
package envelope
