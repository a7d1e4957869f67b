package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basilisk/internal/basic"
)

func TestDecodeParsesValuesAndRestorePoints(t *testing.T) {
	raw := []byte(`{
		"values": [
			{"type": {"base": "INTEGER"}, "num": 42},
			{"type": {"base": "STRING"}, "str": "hello"}
		],
		"restorePoints": [
			{"label": "L1", "index": 1},
			{"line": 100, "index": 0}
		]
	}`)

	r, err := Decode(raw)
	require.NoError(t, err)
	require.Len(t, r.Values, 2)
	assert.Equal(t, basic.Integer, r.Values[0].Type.Base)
	assert.Equal(t, 42.0, r.Values[0].Num)
	assert.Equal(t, "hello", r.Values[1].Str)

	idx, ok := r.IndexForLabel("L1")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	idx, ok = r.IndexForLine(100)
	assert.True(t, ok)
	assert.Equal(t, 0, idx)

	_, ok = r.IndexForLabel("missing")
	assert.False(t, ok)
	_, ok = r.IndexForLine(999)
	assert.False(t, ok)
}

func TestDecodeEmptyResult(t *testing.T) {
	r, err := Decode([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, r.Values)
	assert.Empty(t, r.RestorePoints)
}

func TestDecodeInvalidJSON(t *testing.T) {
	_, err := Decode([]byte(`[[[`))
	assert.Error(t, err)
}
