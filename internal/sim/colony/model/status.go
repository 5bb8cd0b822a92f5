package model

import "fmt"

// Status is the result of a façade action. Rejections are ordinary values the caller
// branches on; they never cross the boundary as errors.
type Status int

const (
	OK Status = iota
	ErrNotInRange
	ErrNotEnough
	ErrFull
	ErrInvalidTarget
	ErrBusy
	ErrNoPath
	ErrLevelTooLow
	ErrTooMany
)

var statusNames = map[Status]string{
	OK:               "OK",
	ErrNotInRange:    "ERR_NOT_IN_RANGE",
	ErrNotEnough:     "ERR_NOT_ENOUGH",
	ErrFull:          "ERR_FULL",
	ErrInvalidTarget: "ERR_INVALID_TARGET",
	ErrBusy:          "ERR_BUSY",
	ErrNoPath:        "ERR_NO_PATH",
	ErrLevelTooLow:   "ERR_RCL_NOT_ENOUGH",
	ErrTooMany:       "ERR_FULL_CONSTRUCTION",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("STATUS_%d", int(s))
}
