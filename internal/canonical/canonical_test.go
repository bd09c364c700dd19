package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"bool", false, `false`},
		{"empty key list", []string{}, `[]`},
		{"key list", []string{"build-123", "deps-"}, `["build-123","deps-"]`},
		{"no html escaping", "a<b>&c", `"a<b>&c"`},
		{"decomposed kept", "cafe\u0301", "\"cafe\u0301\""},
		{"composed kept", "caf\u00e9", "\"caf\u00e9\""},
		{"sorted object", map[string]any{"b": 1, "a": true}, `{"a":true,"b":1}`},
		{"nested", []any{"x", map[string]any{"k": []string{"v"}}}, `["x",{"k":["v"]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalRejects(t *testing.T) {
	_, err := Marshal(nil)
	require.Error(t, err)

	_, err = Marshal(1.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats are forbidden")

	_, err = Marshal(map[string]any{"k": struct{}{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `object["k"]`)
}

func TestCommandValue(t *testing.T) {
	v, err := CommandValue("build-123")
	require.NoError(t, err)
	assert.Equal(t, "build-123", v)

	v, err = CommandValue("")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	v, err = CommandValue(false)
	require.NoError(t, err)
	assert.Equal(t, "false", v)

	v, err = CommandValue([]string{})
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestCommandValueKeepsKeyBytes(t *testing.T) {
	for _, key := range []string{"cafe\u0301-1", "caf\u00e9-1"} {
		single, err := CommandValue(key)
		require.NoError(t, err)
		list, err := CommandValue([]string{key})
		require.NoError(t, err)

		assert.Equal(t, key, single)
		assert.Equal(t, `["`+single+`"]`, list)
	}
}
