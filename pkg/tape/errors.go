package tape

import (
	"errors"
	"fmt"
)

var (
	// ErrBadSlot is returned when a record refers to a slot that is not
	// earlier in the tape, or the root is out of range.
	ErrBadSlot = errors.New("bad tape slot")
	// ErrChoiceCount is returned when a choice slice does not have one
	// entry per min/max record.
	ErrChoiceCount = errors.New("choice count does not match tape")
	// ErrBadRecord is returned for records whose op cannot appear on a tape.
	ErrBadRecord = errors.New("bad tape record")
)

// SlotError locates a structural defect in a tape.
type SlotError struct {
	Pos Slot
	Msg string
	Err error
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("tape: $%d: %s", e.Pos, e.Msg)
}

func (e *SlotError) Unwrap() error { return e.Err }
