package ajax

import (
	"sync/atomic"

	"github.com/nao1215/ccshuffle/pkg/envelope"
)

// Control はリクエスト中に無効化されるUI部品を表す。
type Control interface {
	// Disable は部品を無効化する。
	Disable()
	// Enable は部品を有効化する。
	Enable()
}

// Guard はctrlを無効化してからactionを実行し、完了後に必ず有効化する。
// actionがパニックした場合も有効化してからパニックを伝播する。
func Guard(ctrl Control, action func() envelope.Envelope) envelope.Envelope {
	ctrl.Disable()
	defer ctrl.Enable()
	return action()
}

// Button はリクエストを発行するボタンを表す。複数のゴルーチンから同時に使用できる。
type Button struct {
	// name はログ等で使用するボタンの識別名。
	name string
	// busy はリクエスト実行中（無効化中）かどうか。
	busy atomic.Bool
}

// NewButton は新しいボタンを生成する。
func NewButton(name string) *Button {
	return &Button{name: name}
}

// Name はボタンの識別名を返す。
func (b *Button) Name() string {
	return b.name
}

// Disable はボタンを無効化する。
func (b *Button) Disable() {
	b.busy.Store(true)
}

// Enable はボタンを有効化する。
func (b *Button) Enable() {
	b.busy.Store(false)
}

// Enabled はボタンが有効かどうかを返す。
func (b *Button) Enabled() bool {
	return !b.busy.Load()
}

// TryRun はボタンが有効な場合のみ無効化してactionを実行し、完了後に有効化する。
// 既に実行中の場合はactionを実行せずfalseを返す。二重送信の防止に使用する。
func (b *Button) TryRun(action func() envelope.Envelope) (envelope.Envelope, bool) {
	if !b.busy.CompareAndSwap(false, true) {
		return envelope.Envelope{}, false
	}
	defer b.Enable()
	return action(), true
}
