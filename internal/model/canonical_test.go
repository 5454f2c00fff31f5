package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"no html escape", "<a&b>", `"<a&b>"`},
		{"int", 42, "42"},
		{"int64", int64(-7), "-7"},
		{"bool", true, "true"},
		{"rows", [][]string{{"1", "2"}, {"3"}}, `[["1","2"],["3"]]`},
		{"empty rows", [][]string{}, `[]`},
		{"object", map[string]any{"b": 1, "a": []any{"x", false}}, `{"a":["x",false],"b":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(out))
		})
	}
}

func TestMarshalCanonicalRejects(t *testing.T) {
	_, err := MarshalCanonical(1.5)
	assert.Error(t, err)
	_, err = MarshalCanonical(nil)
	assert.Error(t, err)
	_, err = MarshalCanonical(map[string]any{"a": nil})
	assert.Error(t, err)
}

func TestValuesHashStable(t *testing.T) {
	h1, err := ValuesHash([][]string{{"1", "2"}})
	require.NoError(t, err)
	h2, err := ValuesHash([][]string{{"1", "2"}})
	require.NoError(t, err)
	h3, err := ValuesHash([][]string{{"1"}, {"2"}})
	require.NoError(t, err)

	assert.Len(t, h1, 64)
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}
