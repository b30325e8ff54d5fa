package protocol

// ERROR codes. Gameplay failures (range, capacity, lost pickup races) are
// silent no-ops and never produce one of these.
const (
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"

	ErrAuthFailed       = "E_AUTH_FAILED"
	ErrDuplicateSession = "E_DUPLICATE_SESSION"
	ErrBadState         = "E_BAD_STATE"
	ErrBadRequest       = "E_BAD_REQUEST"

	ErrInternal = "E_INTERNAL"
)

// closing codes are followed by the server closing the connection.
var codes = map[string]bool{
	ErrProtoBadRequest:  false,
	ErrProtoVersion:     false,
	ErrAuthFailed:       true,
	ErrDuplicateSession: true,
	ErrBadState:         false,
	ErrBadRequest:       false,
	ErrInternal:         false,
}

func IsKnownCode(code string) bool {
	_, ok := codes[code]
	return ok
}

// Closes reports whether the server hangs up after sending code.
func Closes(code string) bool { return codes[code] }

func NewError(code, message string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, Code: code, Message: message}
}
