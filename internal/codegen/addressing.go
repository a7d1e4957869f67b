package codegen

import (
	"fmt"
	"strings"

	"basilisk/internal/ast"
	"basilisk/internal/basic"
	"basilisk/internal/qbe"
	"basilisk/internal/symtab"
)

// arrayDescLengthOffset is the byte offset of the element-count field
// within a 64-byte array descriptor block (spec.md section 4.7 step 8:
// "arrays as zeroed descriptor blocks of 64 bytes"); the base pointer
// occupies the first 8 bytes, the element count the next 4.
const arrayDescLengthOffset = 8

// VariableAddress returns the QBE address operand for a scalar
// variable: either a global data symbol or a local stack-slot temp.
//
// Locals are allocated lazily, on first address request, rather than
// via an up-front per-function scan: the external SymbolTable records
// each variable's storage class but not which routine a local belongs
// to, so there is no reliable way to pre-enumerate "every symbol in
// this function's scope" (the phrase spec.md section 4.6 uses for
// entry-block allocation) without that ownership link. Parameters and
// FOR-loop slots are the exception: both are bound explicitly at the
// point they are known (entry-block parameter storing, FOR-init),
// which covers the two cases spec.md calls out by name.
func (c *Context) VariableAddress(name string, t basic.TypeDescriptor) string {
	normalized := NormalizeVarName(name, t.Base)
	if addr, ok := c.Slot(normalized); ok {
		return addr
	}
	if c.Mangler.IsShared(name) {
		return c.Mangler.Global(name)
	}
	if sym, ok := c.Symbols.Variable(name); ok && sym.Storage == symtab.StorageGlobal {
		return c.Mangler.Global(name)
	}
	addr := c.Builder.EmitAlloc(qbe.LayoutOf(t.Base).Size, false)
	c.initializeSlot(addr, t)
	c.BindSlot(normalized, addr)
	return addr
}

// initializeSlot zero-initializes a freshly allocated local slot,
// matching the entry-block initialization spec.md section 4.6
// describes for non-parameter locals.
func (c *Context) initializeSlot(addr string, t basic.TypeDescriptor) {
	switch t.Base {
	case basic.String, basic.Unicode:
		c.Builder.EmitStore(qbe.TLong, "0", addr)
	case basic.UserDefined:
		if udt, ok := c.ResolveUDT(t.UDTName); ok && udt.Size > 8 {
			c.Shim.Memset(addr, udt.Size)
		} else {
			c.Builder.EmitStore(qbe.TLong, "0", addr)
		}
	case basic.Object:
		c.Builder.EmitStore(qbe.QBEType(t.Base), "0", addr)
	default:
		c.Builder.EmitStore(qbe.QBEType(t.Base), qbe.ConstantInt(0), addr)
	}
}

// LoadVariable loads a scalar variable's current value (spec.md section
// 4.5.1 "Load").
func (c *Context) LoadVariable(name string, t basic.TypeDescriptor) string {
	addr := c.VariableAddress(name, t)
	qt := qbe.QBEType(t.Base)
	return c.Builder.EmitLoad(qt, addr)
}

// StoreVariable stores value into a scalar variable, applying the
// STRING retain/release discipline of spec.md section 4.5.1. movedOwnership
// should be true when the caller already transferred ownership of
// value (e.g. a freshly-concatenated string), suppressing the extra
// retain.
func (c *Context) StoreVariable(name string, t basic.TypeDescriptor, value string, movedOwnership bool) {
	addr := c.VariableAddress(name, t)
	qt := qbe.QBEType(t.Base)
	if t.Base == basic.String || t.Base == basic.Unicode {
		old := c.Builder.EmitLoad(qt, addr)
		c.Shim.Release(old)
		c.Builder.EmitStore(qt, value, addr)
		if !movedOwnership {
			c.Shim.Retain(value)
		}
		return
	}
	if t.Base == basic.UserDefined {
		c.CopyUDT(t.UDTName, value, addr)
		return
	}
	c.Builder.EmitStore(qt, value, addr)
}

// serializeIndex renders an index-expression list into the
// deterministic cache key spec.md section 4.5.2 describes, or reports
// ok=false when any index contains a function call (too complex to
// serialize deterministically, so the access must bypass the cache).
func serializeIndex(indices []ast.Expression) (string, bool) {
	var sb strings.Builder
	for i, idx := range indices {
		if i > 0 {
			sb.WriteByte(',')
		}
		s, ok := serializeExprKey(idx)
		if !ok {
			return "", false
		}
		sb.WriteString(s)
	}
	return sb.String(), true
}

func serializeExprKey(e ast.Expression) (string, bool) {
	switch n := e.(type) {
	case *ast.NumberLiteral:
		if n.IsFloat {
			return fmt.Sprintf("%g", n.FloatValue), true
		}
		return fmt.Sprintf("%d", n.IntValue), true
	case *ast.VariableExpression:
		return "v:" + n.Name, true
	case *ast.BinaryExpression:
		l, ok := serializeExprKey(n.Left)
		if !ok {
			return "", false
		}
		r, ok := serializeExprKey(n.Right)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("(%s%d%s)", l, n.Op, r), true
	case *ast.UnaryExpression:
		o, ok := serializeExprKey(n.Operand)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("u%d(%s)", n.Op, o), true
	default:
		// FunctionCallExpression, MethodCallExpression, IIFExpression, or
		// anything else unpredictable in its side effects: never cached.
		return "", false
	}
}

// ArrayElementAddress computes the address of element at the given
// indices of array arrayName (spec.md section 4.5.2). The element-base
// cache is consulted first; a miss computes and (when the index was
// serializable) stores the result.
func (c *Context) ArrayElementAddress(arrayName string, elemType basic.TypeDescriptor, dimensions int, indices []ast.Expression) string {
	cacheKey, cacheable := "", false
	if serialized, ok := serializeIndex(indices); ok {
		cacheKey = serialized
		cacheable = true
		if addr, hit := c.Cache().lookup(arrayName, cacheKey); hit {
			return addr
		}
	}

	descAddr, ok := c.ArrayDescriptor(arrayName)
	if !ok {
		descAddr = c.Mangler.ArrayDescriptorGlobal(arrayName)
	}
	// The descriptor's first field is the base pointer to element
	// storage (spec.md section 4.5.2: "base is read from the array
	// descriptor at runtime, not the descriptor's symbol itself").
	base := c.Builder.EmitLoad(qbe.TLong, descAddr)

	layout := qbe.LayoutOf(elemType.Base)
	elemSize := layout.Size

	var flatIndex string
	if len(indices) == 0 {
		flatIndex = "0"
	} else {
		flatIndex = c.emitIndexValue(indices[0])
		// Additional dimensions beyond the first are out of scope for the
		// flat descriptor layout this backend targets; multi-dimensional
		// BASIC arrays are linearized by the frontend before reaching the
		// CFG, so only the leading index is expected here in practice.
		for _, extra := range indices[1:] {
			_ = c.emitIndexValue(extra)
		}
	}

	if c.Opts.BoundsCheck {
		// The descriptor's second field holds the array's element count
		// (arrayDescLengthOffset bytes in); BASIC arrays are 0-based once
		// linearized, so the lower bound is always 0.
		upperAddr := c.Builder.EmitBinary(qbe.TLong, "add", descAddr, qbe.ConstantInt(arrayDescLengthOffset))
		upper := c.Builder.EmitLoad(qbe.TWord, upperAddr)
		c.Shim.ArrayBoundsCheck(flatIndex, "0", upper)
	}

	offset := c.Builder.EmitBinary(qbe.TWord, "mul", flatIndex, qbe.ConstantInt(int64(elemSize)))
	offsetL := c.Builder.EmitConvert(qbe.TWord, qbe.TLong, offset)
	addr := c.Builder.EmitBinary(qbe.TLong, "add", base, offsetL)

	if cacheable {
		c.Cache().store(arrayName, cacheKey, addr)
	}
	return addr
}

func (c *Context) emitIndexValue(e ast.Expression) string {
	v := c.EmitExpression(e)
	return c.Builder.EmitConvert(qbe.QBEType(e.InferredType().Base), qbe.TWord, v)
}

// MemberAddress computes the address of a UDT field given the base
// struct's address and the field's resolved layout.
func (c *Context) MemberAddress(baseAddr string, offset int) string {
	if offset == 0 {
		return baseAddr
	}
	return c.Builder.EmitBinary(qbe.TLong, "add", baseAddr, qbe.ConstantInt(int64(offset)))
}

// CopyUDT performs the field-by-field copy of spec.md section 4.5.3:
// for each field in source order, load-then-store at the field's type,
// applying the STRING retain/release discipline and recursing into
// nested UDT fields.
func (c *Context) CopyUDT(typeName string, srcBase, dstBase string) {
	layout, ok := c.ResolveUDT(typeName)
	if !ok {
		c.Builder.EmitComment("ERROR: CopyUDT: unknown type %s", typeName)
		return
	}
	for _, f := range layout.Fields {
		srcAddr := c.MemberAddress(srcBase, f.Offset)
		dstAddr := c.MemberAddress(dstBase, f.Offset)
		if f.Desc.Base == basic.UserDefined {
			c.CopyUDT(f.Desc.UDTName, srcAddr, dstAddr)
			continue
		}
		qt := f.Layout.QBE
		val := c.Builder.EmitLoad(qt, srcAddr)
		if f.Desc.Base == basic.String || f.Desc.Base == basic.Unicode {
			old := c.Builder.EmitLoad(qt, dstAddr)
			c.Shim.Release(old)
			c.Builder.EmitStore(qt, val, dstAddr)
			c.Shim.Retain(val)
			continue
		}
		c.Builder.EmitStore(qt, val, dstAddr)
	}
}
