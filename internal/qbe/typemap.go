// Package qbe implements the IL Builder (C1), the BASIC<->QBE Type
// Mapper (C2), and the Name Mangler (C3) described in spec.md section 4.
// Every other component emits QBE text exclusively through a *Builder;
// no package outside qbe touches the output buffer directly.
package qbe

import (
	"fmt"

	"basilisk/internal/basic"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Type is a QBE base type character: w, l, s or d. The empty Type
// denotes void (a SUB's return type, or a statement with no result).
type Type string

// Layout describes the size and alignment in bytes of a lowered
// BASIC type, as required to allocate stack slots and compute UDT
// field offsets (spec.md section 4.2, section 3 invariant 5).
type Layout struct {
	QBE   Type
	Size  int
	Align int
}

// FieldLayout describes one field of a lowered UDT: its QBE type, byte
// offset within the record, and (for nested UDTs) the name to resolve
// recursively.
type FieldLayout struct {
	Name    string
	Desc    basic.TypeDescriptor
	Layout  Layout
	Offset  int
}

// UDTLayout is the fully computed, flattened layout of a UDT.
type UDTLayout struct {
	Name          string
	Fields        []FieldLayout
	Size          int
	Align         int
	SIMDEligible  bool
}

// ---------------------
// ----- Constants -----
// ---------------------

// QBE base type characters, per spec.md section 6's dialect.
const (
	TWord   Type = "w"
	TLong   Type = "l"
	TSingle Type = "s"
	TDouble Type = "d"
	TVoid   Type = ""
)

// simdAlign is the alignment/padding imposed on a UDT flagged SIMD-eligible.
const simdAlign = 16

// -------------------
// ----- Globals -----
// -------------------

// layoutOf maps every basic.BaseType to its scalar Layout, per the
// table in spec.md section 4.2. STRING/UNICODE/USER_DEFINED/OBJECT are
// pointer-sized; USER_DEFINED's Layout here is only the pointer-layout
// placeholder used when a UDT value is boxed behind a reference - the
// real, field-expanded layout for a UDT-by-value comes from LayoutUDT.
var layoutOf = map[basic.BaseType]Layout{
	basic.Byte:        {TWord, 1, 1},
	basic.UByte:       {TWord, 1, 1},
	basic.Short:       {TWord, 2, 2},
	basic.UShort:      {TWord, 2, 2},
	basic.Integer:     {TWord, 4, 4},
	basic.UInteger:    {TWord, 4, 4},
	basic.Single:      {TSingle, 4, 4},
	basic.Long:        {TLong, 8, 8},
	basic.ULong:       {TLong, 8, 8},
	basic.Double:      {TDouble, 8, 8},
	basic.String:      {TLong, 8, 8},
	basic.Unicode:     {TLong, 8, 8},
	basic.UserDefined: {TLong, 8, 8},
	basic.Object:      {TLong, 8, 8},
	basic.Void:        {TVoid, 0, 0},
}

// rank assigns the arithmetic-promotion rank from spec.md section 4.2:
// DOUBLE > SINGLE > LONG > INTEGER > SHORT > BYTE. Unsigned variants
// share their signed counterpart's rank.
var rank = map[basic.BaseType]int{
	basic.Byte:     0,
	basic.UByte:    0,
	basic.Short:    1,
	basic.UShort:   1,
	basic.Integer:  2,
	basic.UInteger: 2,
	basic.Long:     3,
	basic.ULong:    3,
	basic.Single:   4,
	basic.Double:   5,
}

// returnSuffix gives the shadow-local suffix for a FUNCTION's
// return-via-assignment slot, per spec.md section 4.2.
var returnSuffix = map[basic.BaseType]string{
	basic.Integer:  "_INT",
	basic.UInteger: "_INT",
	basic.Long:     "_LONG",
	basic.ULong:    "_LONG",
	basic.Short:    "_SHORT",
	basic.UShort:   "_SHORT",
	basic.Byte:     "_BYTE",
	basic.UByte:    "_BYTE",
	basic.Single:   "_FLOAT",
	basic.Double:   "_DOUBLE",
	basic.String:   "_STRING",
	basic.Unicode:  "_STRING",
}

// ---------------------
// ----- Functions -----
// ---------------------

// LayoutOf returns the scalar Layout of a BaseType. UDTs should be
// resolved through LayoutUDT/the caller's symbol table lookup first;
// LayoutOf on basic.UserDefined returns the pointer-sized placeholder.
func LayoutOf(t basic.BaseType) Layout {
	if l, ok := layoutOf[t]; ok {
		return l
	}
	return layoutOf[basic.Void]
}

// QBEType returns the QBE type character for a BaseType (empty for VOID).
func QBEType(t basic.BaseType) Type {
	return LayoutOf(t).QBE
}

// AllocSize picks the QBE alloc alignment (4, 8 or 16) for a requested
// byte size, per spec.md section 4.1's heuristic: size<=4->4, size<=8->8,
// else 8 unless the caller explicitly asks for 16 (SIMD-eligible UDTs).
func AllocSize(size int, want16 bool) int {
	if want16 {
		return 16
	}
	switch {
	case size <= 4:
		return 4
	case size <= 8:
		return 8
	default:
		return 8
	}
}

// padTo rounds offset up to the next multiple of align.
func padTo(offset, align int) int {
	if align <= 1 {
		return offset
	}
	rem := offset % align
	if rem == 0 {
		return offset
	}
	return offset + (align - rem)
}

// FieldSource describes one UDT field as presented by the symbol table,
// ahead of layout: its name and its type. A nested UDT field (Desc.Base
// is UserDefined) is resolved through the UDTResolver passed to
// LayoutUDT.
type FieldSource struct {
	Name string
	Desc basic.TypeDescriptor
}

// UDTResolver looks up a named UDT's already-computed layout, enabling
// recursive (flat, non-boxed) nested-UDT expansion per spec.md 4.2.
type UDTResolver func(name string) (*UDTLayout, bool)

// LayoutUDT computes the flattened field-by-field layout of a UDT named
// name, given its fields in source order and a resolver for any nested
// UDT fields. SIMD-eligible UDTs are padded/aligned to 16 bytes, per
// spec.md section 3 invariant 5.
func LayoutUDT(name string, fields []FieldSource, simdEligible bool, resolve UDTResolver) (*UDTLayout, error) {
	u := &UDTLayout{Name: name, SIMDEligible: simdEligible}
	offset := 0
	maxAlign := 1

	for _, f := range fields {
		var fl Layout
		if f.Desc.Base == basic.UserDefined {
			nested, ok := resolve(f.Desc.UDTName)
			if !ok {
				return nil, fmt.Errorf("qbe: unknown nested UDT %q referenced by field %q of %q", f.Desc.UDTName, f.Name, name)
			}
			fl = Layout{QBE: TLong, Size: nested.Size, Align: nested.Align}
		} else {
			fl = LayoutOf(f.Desc.Base)
		}
		offset = padTo(offset, fl.Align)
		u.Fields = append(u.Fields, FieldLayout{Name: f.Name, Desc: f.Desc, Layout: fl, Offset: offset})
		offset += fl.Size
		if fl.Align > maxAlign {
			maxAlign = fl.Align
		}
	}

	if simdEligible {
		maxAlign = simdAlign
		if maxAlign < simdAlign {
			maxAlign = simdAlign
		}
	}
	size := padTo(offset, maxAlign)
	if simdEligible {
		size = padTo(size, simdAlign)
	}

	u.Size = size
	u.Align = maxAlign
	return u, nil
}

// PromotedType implements spec.md section 4.2's arithmetic-promotion rule
// for a binary operation between operand types t1 and t2: STRING beats
// everything (concatenation path), otherwise widest-rank wins, defaulting
// to INTEGER for mixes that share the lowest rank.
func PromotedType(t1, t2 basic.BaseType) basic.BaseType {
	if t1.IsString() || t2.IsString() {
		return basic.String
	}
	r1, ok1 := rank[t1]
	r2, ok2 := rank[t2]
	if !ok1 && !ok2 {
		return basic.Integer
	}
	if !ok1 {
		return t2
	}
	if !ok2 {
		return t1
	}
	if r1 >= r2 {
		if r1 == 0 && r2 == 0 {
			return basic.Integer
		}
		return t1
	}
	return t2
}

// ReturnSlotSuffix returns the shadow-local suffix for a FUNCTION's
// return-via-assignment slot name (spec.md section 4.2). The CFG emitter
// does not use it: it keeps a FUNCTION's return value in an alloc'd
// stack slot. VOID/UNKNOWN and any type missing from the
// table yield the empty suffix (bare function name).
func ReturnSlotSuffix(t basic.BaseType) string {
	return returnSuffix[t]
}
