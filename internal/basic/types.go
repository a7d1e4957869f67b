// Package basic defines the BASIC base type system shared by the AST,
// symbol table, and code generator: the BaseType enumeration and the
// TypeDescriptor pair (base type + optional UDT name) that the
// semantic layer attaches to every typed node.
package basic

import (
	"encoding/json"
	"fmt"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// BaseType enumerates the primitive and composite types the backend
// must lower. Order matches spec.md section 4.2's mapping table.
type BaseType int

// TypeDescriptor pairs a BaseType with the UDT name when BaseType is
// UserDefined. UDTName is empty for every other BaseType.
type TypeDescriptor struct {
	Base    BaseType
	UDTName string
}

// ---------------------
// ----- Constants -----
// ---------------------

const (
	Byte BaseType = iota
	UByte
	Short
	UShort
	Integer
	UInteger
	Single
	Long
	ULong
	Double
	String
	Unicode
	UserDefined
	Object
	Void
	Unknown
)

// -------------------
// ----- Globals -----
// -------------------

// baseTypeNames provides print-friendly names for BaseType, mirroring the
// index-aligned string table convention used throughout the codebase.
var baseTypeNames = [...]string{
	"BYTE",
	"UBYTE",
	"SHORT",
	"USHORT",
	"INTEGER",
	"UINTEGER",
	"SINGLE",
	"LONG",
	"ULONG",
	"DOUBLE",
	"STRING",
	"UNICODE",
	"USER_DEFINED",
	"OBJECT",
	"VOID",
	"UNKNOWN",
}

// ---------------------
// ----- Functions -----
// ---------------------

// String returns the BASIC-level textual name of t.
func (t BaseType) String() string {
	if t < 0 || int(t) >= len(baseTypeNames) {
		return "UNKNOWN"
	}
	return baseTypeNames[t]
}

// IsNumeric reports whether t is one of the signed/unsigned integer or
// floating point base types.
func (t BaseType) IsNumeric() bool {
	switch t {
	case Byte, UByte, Short, UShort, Integer, UInteger, Single, Long, ULong, Double:
		return true
	default:
		return false
	}
}

// IsInteger reports whether t is an integral BaseType (signed or unsigned).
func (t BaseType) IsInteger() bool {
	switch t {
	case Byte, UByte, Short, UShort, Integer, UInteger, Long, ULong:
		return true
	default:
		return false
	}
}

// IsFloat reports whether t is SINGLE or DOUBLE.
func (t BaseType) IsFloat() bool {
	return t == Single || t == Double
}

// IsUnsigned reports whether t is one of the unsigned integer variants.
func (t BaseType) IsUnsigned() bool {
	switch t {
	case UByte, UShort, UInteger, ULong:
		return true
	default:
		return false
	}
}

// IsString reports whether t is a reference-counted string-like type.
func (t BaseType) IsString() bool {
	return t == String || t == Unicode
}

// String returns a print-friendly representation of a TypeDescriptor,
// including the UDT name when relevant.
func (d TypeDescriptor) String() string {
	if d.Base == UserDefined && d.UDTName != "" {
		return fmt.Sprintf("%s(%s)", d.Base.String(), d.UDTName)
	}
	return d.Base.String()
}

// baseTypeByName is the inverse of baseTypeNames, built once for
// ParseBaseType.
var baseTypeByName = func() map[string]BaseType {
	m := make(map[string]BaseType, len(baseTypeNames))
	for i, n := range baseTypeNames {
		m[n] = BaseType(i)
	}
	return m
}()

// ParseBaseType resolves the textual name the external symbol table/AST
// payload uses (spec.md section 6's JSON wire shape) back into a
// BaseType, defaulting to Unknown for anything unrecognized.
func ParseBaseType(name string) BaseType {
	if t, ok := baseTypeByName[name]; ok {
		return t
	}
	return Unknown
}

// wireTypeDescriptor mirrors the external {base, udtName} JSON shape a
// TypeDescriptor decodes from.
type wireTypeDescriptor struct {
	Base    string `json:"base"`
	UDTName string `json:"udtName,omitempty"`
}

// MarshalJSON renders a TypeDescriptor as the external wire shape.
func (d TypeDescriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireTypeDescriptor{Base: d.Base.String(), UDTName: d.UDTName})
}

// UnmarshalJSON parses the external wire shape into a TypeDescriptor.
func (d *TypeDescriptor) UnmarshalJSON(b []byte) error {
	var w wireTypeDescriptor
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	d.Base = ParseBaseType(w.Base)
	d.UDTName = w.UDTName
	return nil
}

// Equal reports whether two TypeDescriptors describe the same type.
func (d TypeDescriptor) Equal(o TypeDescriptor) bool {
	if d.Base != o.Base {
		return false
	}
	if d.Base == UserDefined {
		return d.UDTName == o.UDTName
	}
	return true
}
