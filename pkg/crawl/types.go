package crawl

import (
	"fmt"
	"strings"
	"time"
)

// Service はクロール対象のサービスを表す。
type Service string

const (
	// ServiceJamendo はJamendoを表す。
	ServiceJamendo Service = "Jamendo"
	// ServiceSoundcloud はSoundcloudを表す。
	ServiceSoundcloud Service = "Soundcloud"
	// ServiceCCMixter はccMixterを表す。
	ServiceCCMixter Service = "CCMixter"
	// ServiceGeneral はサービスに依存しない処理を表す。
	ServiceGeneral Service = "GENERAL"
)

// ParseService は文字列をServiceに変換する。
func ParseService(s string) (Service, error) {
	switch v := Service(s); v {
	case ServiceJamendo, ServiceSoundcloud, ServiceCCMixter, ServiceGeneral:
		return v, nil
	}
	return "", fmt.Errorf("未知のサービスです: %q", s)
}

// StartCommand はサービスのクロールを開始するコマンド名を返す（例: start-jamendo-crawl）。
func StartCommand(service Service) string {
	return "start-" + strings.ToLower(string(service)) + "-crawl"
}

// Status はクロール処理の状態を表す。
type Status string

const (
	// StatusPlanned は実行予定を表す。
	StatusPlanned Status = "Planned"
	// StatusRunning は実行中を表す。
	StatusRunning Status = "Running"
	// StatusFinished は正常終了を表す。
	StatusFinished Status = "Finished"
	// StatusFailed は異常終了を表す。
	StatusFailed Status = "Failed"
)

// Process は1回のクロール処理の記録を表す。
type Process struct {
	// ID は処理の一意識別子（UUID）。
	ID string `json:"id,omitempty"`
	// Service はクロール対象のサービス。
	Service Service `json:"service"`
	// ExecutionDate は処理の実行日時。
	ExecutionDate time.Time `json:"execution_date"`
	// Status は処理の状態。
	Status Status `json:"status"`
	// Exception は異常終了時のエラー内容。正常時はnil。
	Exception *string `json:"exception"`
	// TrackCount は処理中に取得した楽曲数。
	TrackCount int `json:"track_count,omitempty"`
}

// String は処理をログ向けの文字列で返す。
func (p Process) String() string {
	return fmt.Sprintf("%s (%s - %s)", p.ExecutionDate.Format(time.RFC3339), p.Service, p.Status)
}

// Fail は処理を異常終了として記録する。
func (p *Process) Fail(err error) {
	msg := err.Error()
	p.Status = StatusFailed
	p.Exception = &msg
}
