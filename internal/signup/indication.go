package signup

// Indication はフォームのフィールドに表示する検証状態。
type Indication int

const (
	// IndicationNone は表示なしを表す。
	IndicationNone Indication = iota
	// IndicationValid は入力が正しいことを表す。
	IndicationValid
	// IndicationInvalid は入力が誤っていることを表す。
	IndicationInvalid
	// IndicationWarning は入力が誤っている可能性があることを表す。
	IndicationWarning
)

// String はフォームのクラス名を返す。
func (i Indication) String() string {
	switch i {
	case IndicationValid:
		return "has-success"
	case IndicationInvalid:
		return "has-error"
	case IndicationWarning:
		return "has-warning"
	}
	return ""
}
