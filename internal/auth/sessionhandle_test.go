package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionHandleRoundTrip(t *testing.T) {
	codec := NewSessionHandleCodec("test-secret")

	handle, err := codec.Encode("session-123")
	require.NoError(t, err)
	require.NotEmpty(t, handle)

	sessionID, err := codec.Decode(handle)
	require.NoError(t, err)
	assert.Equal(t, "session-123", sessionID)
}

func TestSessionHandleRejectsGarbage(t *testing.T) {
	codec := NewSessionHandleCodec("test-secret")

	for _, handle := range []string{"", "garbage", "a.b.c"} {
		_, err := codec.Decode(handle)
		assert.Error(t, err, "handle %q", handle)
	}
}

func TestSessionHandleRejectsForeignSignature(t *testing.T) {
	codec := NewSessionHandleCodec("test-secret")
	other := NewSessionHandleCodec("other-secret")

	handle, err := other.Encode("session-123")
	require.NoError(t, err)

	_, err = codec.Decode(handle)
	assert.Error(t, err)
}
