package symtab

import "encoding/json"

// wirePayload mirrors the external Symbol Table JSON document (spec.md
// section 6): flat lists rather than the maps the in-memory SymbolTable
// indexes by name, since map key order is not a wire concern.
type wirePayload struct {
	Variables []*VariableSymbol `json:"variables"`
	Arrays    []*ArraySymbol    `json:"arrays"`
	Functions []*FunctionSymbol `json:"functions"`
	Types     []*TypeSymbol     `json:"types"`
}

// Decode parses the external Symbol Table JSON payload into a
// SymbolTable ready for lookup.
func Decode(raw []byte) (*SymbolTable, error) {
	var w wirePayload
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	t := New()
	for _, v := range w.Variables {
		t.AddVariable(v)
	}
	for _, a := range w.Arrays {
		t.AddArray(a)
	}
	for _, f := range w.Functions {
		t.AddFunction(f)
	}
	for _, s := range w.Types {
		t.AddType(s)
	}
	return t, nil
}
