package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Loop routing/state.
	ErrBusy     = "E_BUSY"
	ErrStopping = "E_STOPPING"

	// Command layer.
	ErrBadRequest     = "E_BAD_REQUEST"
	ErrUnknownCommand = "E_UNKNOWN_COMMAND"
	ErrNoLayout       = "E_NO_LAYOUT"
	ErrInvalidTarget  = "E_INVALID_TARGET"
	ErrInternal       = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBusy:            {},
	ErrStopping:        {},
	ErrBadRequest:      {},
	ErrUnknownCommand:  {},
	ErrNoLayout:        {},
	ErrInvalidTarget:   {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
