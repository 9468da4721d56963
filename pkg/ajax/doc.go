// Package ajax はCCShuffleのサーバーと通信するリクエストゲートウェイを提供する。
//
// GET/POSTリクエストを発行し、変更系の同一オリジンリクエストにはクッキーから
// 読み込んだCSRFトークンをX-CSRFTokenヘッダーとして付与する。
// すべての応答はenvelope.Envelopeに正規化して呼び出し側に渡す。
// リトライは行わず、1回の失敗はそのままfailとして返す。
//
// CSRFヘッダーの付与はグローバルなフックではなく、Gatewayが保持する
// RequestConfigによって明示的に行う。
package ajax
