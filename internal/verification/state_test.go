package verification

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_PersistedValues(t *testing.T) {
	assert.Equal(t, 0, int(StateDefault))
	assert.Equal(t, 1, int(StateVerified))
	assert.Equal(t, 2, int(StateNoLongerVerified))
}

func TestParseState(t *testing.T) {
	tests := []struct {
		in   string
		want State
	}{
		{"default", StateDefault},
		{"verified", StateVerified},
		{"Verified", StateVerified},
		{" no-longer-verified ", StateNoLongerVerified},
		{"unverified", StateNoLongerVerified},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseState(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseState("trusted")
	assert.Error(t, err)
}

func TestState_StringRoundTrips(t *testing.T) {
	for _, s := range []State{StateDefault, StateVerified, StateNoLongerVerified} {
		parsed, err := ParseState(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	assert.Equal(t, "State(7)", State(7).String())
	assert.False(t, State(7).IsValid())
}

func TestState_JSON(t *testing.T) {
	data, err := json.Marshal(StateNoLongerVerified)
	require.NoError(t, err)
	assert.JSONEq(t, `"no-longer-verified"`, string(data))

	_, err = json.Marshal(State(9))
	assert.Error(t, err)
}
