package basic

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseTypeClassification(t *testing.T) {
	assert.True(t, Integer.IsNumeric())
	assert.True(t, Integer.IsInteger())
	assert.False(t, Integer.IsFloat())
	assert.True(t, UInteger.IsUnsigned())
	assert.False(t, Integer.IsUnsigned())
	assert.True(t, Double.IsFloat())
	assert.True(t, Double.IsNumeric())
	assert.False(t, Double.IsInteger())
	assert.True(t, String.IsString())
	assert.True(t, Unicode.IsString())
	assert.False(t, UserDefined.IsNumeric())
}

func TestBaseTypeStringRoundTrip(t *testing.T) {
	for _, bt := range []BaseType{Byte, UByte, Short, UShort, Integer, UInteger, Single, Long, ULong, Double, String, Unicode, UserDefined, Object, Void} {
		assert.Equal(t, bt, ParseBaseType(bt.String()))
	}
	assert.Equal(t, Unknown, ParseBaseType("NOT_A_REAL_TYPE"))
	assert.Equal(t, "UNKNOWN", BaseType(999).String())
}

func TestTypeDescriptorString(t *testing.T) {
	assert.Equal(t, "INTEGER", TypeDescriptor{Base: Integer}.String())
	assert.Equal(t, "USER_DEFINED(Point)", TypeDescriptor{Base: UserDefined, UDTName: "Point"}.String())
}

func TestTypeDescriptorEqual(t *testing.T) {
	a := TypeDescriptor{Base: UserDefined, UDTName: "Point"}
	b := TypeDescriptor{Base: UserDefined, UDTName: "Point"}
	c := TypeDescriptor{Base: UserDefined, UDTName: "Rect"}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.True(t, TypeDescriptor{Base: Integer}.Equal(TypeDescriptor{Base: Integer, UDTName: "ignored"}))
}

func TestTypeDescriptorJSONRoundTrip(t *testing.T) {
	d := TypeDescriptor{Base: UserDefined, UDTName: "Point"}
	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"base":"USER_DEFINED","udtName":"Point"}`, string(raw))

	var out TypeDescriptor
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, d, out)
}

func TestTypeDescriptorUnmarshalUnknownBaseDefaultsToUnknown(t *testing.T) {
	var out TypeDescriptor
	require.NoError(t, json.Unmarshal([]byte(`{"base":"NOPE"}`), &out))
	assert.Equal(t, Unknown, out.Base)
}
