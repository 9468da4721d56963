package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Status はレスポンスの成否を表す。
type Status string

const (
	// StatusSuccess はリクエストが成功したことを表す。
	StatusSuccess Status = "success"
	// StatusFail はリクエストが失敗したことを表す。
	StatusFail Status = "fail"
)

// Valid はステータスが既知のリテラルかどうかを返す。
func (s Status) Valid() bool {
	return s == StatusSuccess || s == StatusFail
}

// 不正な形式のレスポンスに対して使用する固定の診断メッセージ。
const (
	// MessageCorrupted はheaderまたはresultが欠落している場合のメッセージ。
	MessageCorrupted = "the response is corrupted. The header or result entry is missing."
	// MessageUnknownStatus はheader.statusが未知のリテラルである場合のメッセージ。
	MessageUnknownStatus = "the status of the response is unknown."
)

// Kind は失敗の分類を表す。ログ出力専用であり、公開されるエンベロープの形には影響しない。
type Kind string

const (
	// KindNone は失敗していないことを表す。
	KindNone Kind = ""
	// KindTransport はネットワークエラー、タイムアウト、HTTPエラーを表す。
	KindTransport Kind = "transport"
	// KindMalformed はheaderまたはresultが欠落したレスポンスを表す。
	KindMalformed Kind = "malformed"
	// KindUnknownStatus は未知のステータスリテラルを表す。
	KindUnknownStatus Kind = "unknown_status"
	// KindApplication はアプリケーションが返したfailを表す。
	KindApplication Kind = "application"
)

// Envelope は正規化されたレスポンスを表す。
// 生成後は変更できず、値として受け渡す。
type Envelope struct {
	// status はレスポンスの成否。
	status Status
	// errorMessage は失敗時の診断メッセージ。成功時は常にnil。
	errorMessage *string
	// result は呼び出し側が形を決める任意のペイロード。nullの場合はnil。
	result json.RawMessage
	// kind は失敗の分類。
	kind Kind
}

// Status はエンベロープのステータスを返す。
func (e Envelope) Status() Status {
	return e.status
}

// OK はステータスがsuccessかどうかを返す。
func (e Envelope) OK() bool {
	return e.status == StatusSuccess
}

// ErrorMessage は失敗時の診断メッセージを返す。メッセージが無い場合はfalseを返す。
func (e Envelope) ErrorMessage() (string, bool) {
	if e.errorMessage == nil {
		return "", false
	}
	return *e.errorMessage, true
}

// Result はresultフィールドの生のJSONを返す。nullまたは欠落時はnilを返す。
// 返されるスライスはコピーであり、変更してもエンベロープには影響しない。
func (e Envelope) Result() json.RawMessage {
	if e.result == nil {
		return nil
	}
	return bytes.Clone(e.result)
}

// Kind は失敗の分類を返す。呼び出し側はこの値で分岐せず、ログ出力にのみ使用すること。
func (e Envelope) Kind() Kind {
	return e.kind
}

// Err は失敗したエンベロープをerrorとして返す。成功時はnilを返す。
func (e Envelope) Err() error {
	if e.OK() {
		return nil
	}
	if msg, ok := e.ErrorMessage(); ok && msg != "" {
		return errors.New(msg)
	}
	return errors.New("request failed")
}

// Success は成功のエンベロープを生成する。resultはJSONにシリアライズされる。
func Success(result any) (Envelope, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return Envelope{}, fmt.Errorf("resultのシリアライズに失敗: %w", err)
	}
	return Envelope{status: StatusSuccess, result: normalizeResult(raw)}, nil
}

// Failure はアプリケーションエラーを表すfailのエンベロープを生成する。
func Failure(msg string) Envelope {
	return newFail(KindApplication, msg)
}

// FromTransportError はトランスポート層のエラーをfailのエンベロープに変換する。
// メッセージにはエラーの説明がそのまま使われ、resultは常にnullとなる。
func FromTransportError(err error) Envelope {
	msg := "unknown transport error"
	if err != nil {
		msg = err.Error()
	}
	return newFail(KindTransport, msg)
}

// newFail は指定した分類とメッセージでfailのエンベロープを生成する。
func newFail(kind Kind, msg string) Envelope {
	return Envelope{status: StatusFail, errorMessage: &msg, kind: kind}
}

// normalizeResult はJSONのnullをnilに揃え、それ以外はコピーを返す。
func normalizeResult(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return bytes.Clone(trimmed)
}

// wireHeader はワイヤ上のheaderオブジェクト。
type wireHeader struct {
	Status   Status  `json:"status"`
	ErrorMsg *string `json:"error_msg,omitempty"`
}

// wireEnvelope はワイヤ上のエンベロープ。
type wireEnvelope struct {
	Header wireHeader      `json:"header"`
	Result json.RawMessage `json:"result"`
}

// MarshalJSON はエンベロープをワイヤ形式にシリアライズする。
func (e Envelope) MarshalJSON() ([]byte, error) {
	status := e.status
	if status == "" {
		status = StatusFail
	}
	result := e.result
	if result == nil {
		result = json.RawMessage("null")
	}
	return json.Marshal(wireEnvelope{
		Header: wireHeader{Status: status, ErrorMsg: e.errorMessage},
		Result: result,
	})
}

// DecodeResult はエンベロープのresultを指定された型にデシリアライズする。
// failのエンベロープやresultがnullの場合はエラーを返す。
func DecodeResult[T any](e Envelope) (*T, error) {
	if err := e.Err(); err != nil {
		return nil, err
	}
	if e.result == nil {
		return nil, errors.New("resultが空です")
	}
	var v T
	if err := json.Unmarshal(e.result, &v); err != nil {
		return nil, fmt.Errorf("resultのデシリアライズに失敗: %w", err)
	}
	return &v, nil
}
