package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCodes(t *testing.T) {
	for _, c := range []string{ErrProtoBadRequest, ErrProtoVersion, ErrAuthFailed, ErrDuplicateSession, ErrBadState, ErrBadRequest, ErrInternal} {
		assert.True(t, IsKnownCode(c), c)
	}
	assert.False(t, IsKnownCode(""))
	assert.False(t, IsKnownCode("E_FULL"))

	assert.True(t, Closes(ErrAuthFailed))
	assert.True(t, Closes(ErrDuplicateSession))
	assert.False(t, Closes(ErrProtoVersion))
}

func TestNewError(t *testing.T) {
	e := NewError(ErrAuthFailed, "bad token")
	assert.Equal(t, ErrorMsg{Type: TypeError, ProtocolVersion: Version, Code: ErrAuthFailed, Message: "bad token"}, e)
}
