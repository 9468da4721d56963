package envelope

import (
	"encoding/json"
	"fmt"
)

// Parse は受信したレスポンスボディをエンベロープに正規化する。
//
// JSONとして解釈できないボディはトランスポートエラーとして扱う。
// headerまたはresultが欠落している場合、header.statusが未知の場合は
// 固定のメッセージを持つfailになる。それ以外は宣言されたステータスを採用し、
// resultはそのまま保持する。エラーメッセージはfailの場合のみ保持する。
func Parse(body []byte) Envelope {
	if !json.Valid(body) {
		return FromTransportError(fmt.Errorf("parsererror: %q is not valid JSON", truncate(body, 64)))
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		// 配列や文字列など、オブジェクト以外のJSON
		return newFail(KindMalformed, MessageCorrupted)
	}

	headerRaw, hasHeader := raw["header"]
	resultRaw, hasResult := raw["result"]
	if !hasHeader || !hasResult {
		return newFail(KindMalformed, MessageCorrupted)
	}

	var header map[string]json.RawMessage
	if err := json.Unmarshal(headerRaw, &header); err != nil || header == nil {
		return newFail(KindMalformed, MessageCorrupted)
	}

	var status Status
	if err := json.Unmarshal(header["status"], &status); err != nil || !status.Valid() {
		return newFail(KindUnknownStatus, MessageUnknownStatus)
	}

	env := Envelope{status: status, result: normalizeResult(resultRaw)}
	if status == StatusFail {
		env.kind = KindApplication
		env.errorMessage = headerMessage(header)
	}
	return env
}

// IsEnvelope はボディがheaderとresultを持つJSONオブジェクトかどうかを返す。
func IsEnvelope(body []byte) bool {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return false
	}
	_, hasHeader := raw["header"]
	_, hasResult := raw["result"]
	return hasHeader && hasResult
}

// headerMessage はheaderからエラーメッセージを取り出す。
// error_msgを優先し、無ければerror_messageを参照する。どちらも無ければnilを返す。
func headerMessage(header map[string]json.RawMessage) *string {
	for _, key := range []string{"error_msg", "error_message"} {
		v, ok := header[key]
		if !ok {
			continue
		}
		var msg *string
		if err := json.Unmarshal(v, &msg); err != nil || msg == nil {
			continue
		}
		return msg
	}
	return nil
}

// truncate は診断メッセージ用にボディを指定長で切り詰める。
func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}
