package syncchan

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_StateChangeWireShape(t *testing.T) {
	data, err := Encode(StateChange("t1", 0, true))
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))

	assert.Equal(t, "TIMER_STATE_CHANGE", fields["type"])
	assert.Equal(t, "t1", fields["taskId"])
	assert.Equal(t, 0.0, fields["remainingTime"])
	assert.Equal(t, true, fields["isPaused"])
	assert.NotContains(t, fields, "actualTime")
}

func TestEncode_CompletionWireShape(t *testing.T) {
	data, err := Encode(Completion("t1", 60))
	require.NoError(t, err)

	assert.JSONEq(t, `{"type":"TASK_COMPLETE","taskId":"t1","actualTime":60}`, string(data))
}

func TestEncode_CarriesSurfaceSession(t *testing.T) {
	data, err := Encode(StateChange("t1", 57, false).From("s1"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"TIMER_STATE_CHANGE","taskId":"t1","surfaceId":"s1","remainingTime":57,"isPaused":false}`, string(data))

	msg, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "s1", msg.SurfaceID)
	assert.Equal(t, StateChange("t1", 57, false).From("s1"), msg)
}

func TestDecode_AcceptsBrowserPayload(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"TIMER_STATE_CHANGE","taskId":"abc","remainingTime":1375,"isPaused":false}`))
	require.NoError(t, err)

	assert.Equal(t, StateChange("abc", 1375, false), msg)
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		target  error
	}{
		{"unknown type", `{"type":"THEME_CHANGED","taskId":"t1"}`, ErrUnknownType},
		{"missing task id", `{"type":"TASK_COMPLETE","actualTime":5}`, ErrInvalidMessage},
		{"negative remaining", `{"type":"TIMER_STATE_CHANGE","taskId":"t1","remainingTime":-1}`, ErrInvalidMessage},
		{"not json", `nope`, ErrInvalidMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.payload))
			assert.ErrorIs(t, err, tt.target)
		})
	}
}
