package tape

// Choice records which operands of a min or max were observed to matter.
// Values combine with bitwise OR, so accumulating choices over many
// evaluations moves monotonically toward ChoiceBoth.
type Choice uint8

const (
	ChoiceUnknown Choice = 0
	ChoiceLeft    Choice = 1 << 0
	ChoiceRight   Choice = 1 << 1
	ChoiceBoth           = ChoiceLeft | ChoiceRight
)

func (c Choice) String() string {
	switch c {
	case ChoiceUnknown:
		return "unknown"
	case ChoiceLeft:
		return "left"
	case ChoiceRight:
		return "right"
	case ChoiceBoth:
		return "both"
	default:
		return "invalid"
	}
}

// Decision records a min or max removed by simplification.
type Decision struct {
	Position Slot   // position in the full, unsimplified tape
	Choice   Choice // the branch that was kept
}
