package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePopulatesEveryKind(t *testing.T) {
	raw := []byte(`{
		"variables": [{"name": "X", "type": {"base": "INTEGER"}, "storage": "GLOBAL"}],
		"arrays": [{"name": "A", "elemType": {"base": "DOUBLE"}, "dimensions": 1, "isGlobal": true}],
		"functions": [{"name": "Foo", "isFunction": true, "returnType": {"base": "INTEGER"}, "params": [{"name": "n", "type": {"base": "INTEGER"}}]}],
		"types": [{"name": "Point", "fields": [{"name": "X", "type": {"base": "INTEGER"}}, {"name": "Y", "type": {"base": "INTEGER"}}]}]
	}`)

	tab, err := Decode(raw)
	require.NoError(t, err)

	v, ok := tab.Variable("X")
	require.True(t, ok)
	assert.Equal(t, StorageGlobal, v.Storage)

	a, ok := tab.Array("A")
	require.True(t, ok)
	assert.True(t, a.IsGlobal)

	f, ok := tab.Function("Foo")
	require.True(t, ok)
	require.Len(t, f.Params, 1)
	assert.Equal(t, "n", f.Params[0].Name)

	s, ok := tab.Type("Point")
	require.True(t, ok)
	assert.Len(t, s.Fields, 2)
}

func TestDecodeEmptyPayloadYieldsEmptyTable(t *testing.T) {
	tab, err := Decode([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, tab.Variables())
	assert.Empty(t, tab.Arrays())
	assert.Empty(t, tab.Functions())
	assert.Empty(t, tab.Types())
}

func TestDecodeInvalidJSONReturnsError(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	assert.Error(t, err)
}
