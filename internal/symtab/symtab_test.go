package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"basilisk/internal/basic"
)

func TestStorageClassStringRoundTrip(t *testing.T) {
	for _, sc := range []StorageClass{StorageLocal, StorageParam, StorageShared, StorageGlobal} {
		assert.Equal(t, sc, ParseStorageClass(sc.String()))
	}
	assert.Equal(t, StorageLocal, ParseStorageClass("GARBAGE"))
}

func TestSymbolTableLookupsRoundTrip(t *testing.T) {
	tab := New()
	tab.AddVariable(&VariableSymbol{Name: "X", Type: basic.TypeDescriptor{Base: basic.Integer}, Storage: StorageGlobal})
	tab.AddArray(&ArraySymbol{Name: "A", ElemType: basic.TypeDescriptor{Base: basic.Double}, Dimensions: 2, IsGlobal: true})
	tab.AddFunction(&FunctionSymbol{Name: "Foo", IsFunction: true, ReturnType: basic.TypeDescriptor{Base: basic.Integer}})
	tab.AddType(&TypeSymbol{Name: "Point", Fields: []FieldSymbol{{Name: "X", Type: basic.TypeDescriptor{Base: basic.Integer}}}})

	v, ok := tab.Variable("X")
	assert.True(t, ok)
	assert.Equal(t, StorageGlobal, v.Storage)

	a, ok := tab.Array("A")
	assert.True(t, ok)
	assert.Equal(t, 2, a.Dimensions)

	f, ok := tab.Function("Foo")
	assert.True(t, ok)
	assert.True(t, f.IsFunction)

	s, ok := tab.Type("Point")
	assert.True(t, ok)
	assert.Len(t, s.Fields, 1)

	_, ok = tab.Variable("Missing")
	assert.False(t, ok)
}

func TestSymbolTableBulkAccessorsReturnEverythingAdded(t *testing.T) {
	tab := New()
	tab.AddVariable(&VariableSymbol{Name: "A"})
	tab.AddVariable(&VariableSymbol{Name: "B"})
	tab.AddFunction(&FunctionSymbol{Name: "F"})

	assert.Len(t, tab.Variables(), 2)
	assert.Len(t, tab.Functions(), 1)
	assert.Empty(t, tab.Arrays())
	assert.Empty(t, tab.Types())
}
