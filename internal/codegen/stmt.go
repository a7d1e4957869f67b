package codegen

import (
	"basilisk/internal/ast"
	"basilisk/internal/basic"
	"basilisk/internal/qbe"
)

// EmitStatement is C5's public statement entry point (spec.md section
// 4.5.4). RETURN, ON_GOTO, ON_GOSUB, and ON_CALL are consumed by the
// CFG emitter's terminator logic instead of appearing here (spec.md
// section 4.6 "Emit body statements (skipping any RETURN, ON_GOTO,
// ON_GOSUB) - those are consumed by the terminator"); if one reaches
// this dispatch anyway it is a malformed-CFG situation handled by the
// default diagnostic branch.
func (c *Context) EmitStatement(s ast.Statement) {
	c.Cache().clear()

	switch n := s.(type) {
	case *ast.LetStatement:
		c.emitLet(n)
	case *ast.PrintStatement:
		c.emitPrint(n)
	case *ast.InputStatement:
		c.emitInput(n)
	case *ast.ReadStatement:
		c.emitRead(n)
	case *ast.RestoreStatement:
		c.emitRestore(n)
	case *ast.SliceAssignStatement:
		c.emitSliceAssign(n)
	case *ast.IfStatement, *ast.WhileStatement, *ast.DoStatement:
		// Condition evaluation for these is only performed by the
		// dedicated loop-header helpers the CFG emitter calls directly
		// (spec.md section 4.5.4); the bare statement carries no other
		// side effect of its own.
	case *ast.ForStatement:
		c.emitForInit(n)
	case *ast.EndStatement:
		c.Shim.End()
	case *ast.DimStatement:
		c.emitDim(n)
	case *ast.ReDimStatement:
		c.emitReDim(n)
	case *ast.EraseStatement:
		c.emitErase(n)
	case *ast.LocalStatement:
		c.emitLocal(n)
	case *ast.CallStatement:
		c.emitCall(n)
	case *ast.SharedStatement:
		for _, name := range n.Names {
			c.Mangler.AddSharedVariable(name)
		}
	default:
		c.Builder.EmitComment("WARNING: emitStatement: unexpected node reached C5 (kind %d) - should have been consumed by the CFG terminator", s.Kind())
	}
}

func (c *Context) emitLet(n *ast.LetStatement) {
	lhsType := n.LHS.InferredType()
	rhs := c.EmitExpressionAs(n.RHS, lhsType)
	c.storeInto(n.LHS, lhsType, rhs, false)
}

// storeInto writes value to the address denoted by lvalue lhs, applying
// the same STRING/UDT discipline StoreVariable uses for plain
// variables.
func (c *Context) storeInto(lhs ast.Expression, t basic.TypeDescriptor, value string, movedOwnership bool) {
	switch n := lhs.(type) {
	case *ast.VariableExpression:
		c.StoreVariable(n.Name, t, value, movedOwnership)
		c.Cache().invalidateName(n.Name)
	case *ast.ArrayAccessExpression:
		sym, ok := c.Symbols.Array(n.ArrayName)
		if !ok {
			c.Builder.EmitComment("ERROR: unknown array %s", n.ArrayName)
			return
		}
		addr := c.ArrayElementAddress(n.ArrayName, sym.ElemType, sym.Dimensions, n.Indices)
		qt := qbe.QBEType(t.Base)
		if t.Base == basic.String || t.Base == basic.Unicode {
			old := c.Builder.EmitLoad(qt, addr)
			c.Shim.Release(old)
			c.Builder.EmitStore(qt, value, addr)
			if !movedOwnership {
				c.Shim.Retain(value)
			}
		} else if t.Base == basic.UserDefined {
			c.CopyUDT(t.UDTName, value, addr)
		} else {
			c.Builder.EmitStore(qt, value, addr)
		}
		c.Cache().invalidateName(n.ArrayName)
	case *ast.MemberAccessExpression:
		addr := c.addressOfExpression(n)
		qt := qbe.QBEType(t.Base)
		if t.Base == basic.String || t.Base == basic.Unicode {
			old := c.Builder.EmitLoad(qt, addr)
			c.Shim.Release(old)
			c.Builder.EmitStore(qt, value, addr)
			if !movedOwnership {
				c.Shim.Retain(value)
			}
		} else if t.Base == basic.UserDefined {
			c.CopyUDT(t.UDTName, value, addr)
		} else {
			c.Builder.EmitStore(qt, value, addr)
		}
	default:
		c.Builder.EmitComment("ERROR: LET target is not an lvalue")
	}
}

func (c *Context) emitPrint(n *ast.PrintStatement) {
	trailingSep := false
	for _, item := range n.Items {
		trailingSep = item.Sep != ""
		t := item.Value.InferredType().Base
		v := c.EmitExpression(item.Value)
		switch {
		case t.IsInteger():
			c.Shim.PrintInt(v, t)
		case t == basic.Single:
			c.Shim.PrintSingle(v)
		case t == basic.Double:
			c.Shim.PrintDouble(v)
		case t == basic.String || t == basic.Unicode:
			c.Shim.PrintString(v)
		default:
			c.Builder.EmitComment("WARNING: PRINT of unsupported type")
		}
		switch item.Sep {
		case ",":
			c.Shim.PrintTab()
		case ";":
			// no separator output
		}
	}
	if !trailingSep {
		c.Shim.PrintNewline()
	}
}

func (c *Context) emitInput(n *ast.InputStatement) {
	if n.Prompt != "" {
		label := c.Builder.Pool().Register(n.Prompt)
		c.Shim.PrintString(label)
	}
	for _, target := range n.Targets {
		t := target.InferredType()
		var v string
		switch t.Base {
		case basic.String, basic.Unicode:
			v = c.Shim.InputString()
		case basic.Single:
			v = c.Shim.InputSingle()
		case basic.Double:
			v = c.Shim.InputDouble()
		default:
			v = c.Shim.InputInt()
		}
		c.storeInto(target, t, v, true)
	}
}

func (c *Context) emitRead(n *ast.ReadStatement) {
	for _, target := range n.Targets {
		t := target.InferredType()
		ptr := dataPointerSymbol
		idx := c.Builder.EmitLoad(qbe.TWord, ptr)
		entryAddr := c.Builder.EmitBinary(qbe.TLong, "add", dataStartSymbol,
			c.Builder.EmitBinary(qbe.TLong, "mul", c.Builder.EmitConvert(qbe.TWord, qbe.TLong, idx), qbe.ConstantInt(dataEntrySizeBytes)))
		payloadAddr := c.Builder.EmitBinary(qbe.TLong, "add", entryAddr, qbe.ConstantInt(8))
		var v string
		if t.Base == basic.String || t.Base == basic.Unicode {
			v = c.Builder.EmitLoad(qbe.TLong, payloadAddr)
		} else {
			raw := c.Builder.EmitLoad(qbe.TLong, payloadAddr)
			v = c.Builder.EmitConvert(qbe.TLong, qbe.QBEType(t.Base), raw)
		}
		c.storeInto(target, t, v, true)
		next := c.Builder.EmitBinary(qbe.TWord, "add", idx, "1")
		c.Builder.EmitStore(qbe.TWord, next, ptr)
	}
}

func (c *Context) emitRestore(n *ast.RestoreStatement) {
	ptr := dataPointerSymbol
	index := 0
	if n.Label != "" {
		if i, ok := c.Data.IndexForLabel(n.Label); ok {
			index = i
		} else {
			c.Builder.EmitComment("WARNING: RESTORE %s: no matching DATA restore point", n.Label)
		}
	} else if n.Line_ != 0 {
		if i, ok := c.Data.IndexForLine(n.Line_); ok {
			index = i
		} else {
			c.Builder.EmitComment("WARNING: RESTORE %d: no matching DATA restore point", n.Line_)
		}
	}
	c.Builder.EmitStore(qbe.TWord, qbe.ConstantInt(int64(index)), ptr)
}

func (c *Context) emitSliceAssign(n *ast.SliceAssignStatement) {
	targetAddr := c.addressOfExpression(n.Target)
	from := c.EmitExpressionAs(n.From, basic.TypeDescriptor{Base: basic.Integer})
	to := c.EmitExpressionAs(n.To, basic.TypeDescriptor{Base: basic.Integer})
	value := c.EmitExpressionAs(n.Value, basic.TypeDescriptor{Base: basic.String})
	c.Builder.EmitCall(qbe.TVoid, "$string_slice_assign", []qbe.Arg{
		{Type: qbe.TLong, Value: targetAddr},
		{Type: qbe.TWord, Value: from},
		{Type: qbe.TWord, Value: to},
		{Type: qbe.TLong, Value: value},
	})
}

// emitForInit evaluates and stores a FOR loop's initial value, limit,
// and step into their slots (spec.md section 4.5.4); the condition
// test and increment are emitted separately by the CFG emitter's
// loop-header/For_Increment handling.
func (c *Context) emitForInit(n *ast.ForStatement) {
	normalized := NormalizeVarName(n.Variable, n.VarType.Base)
	loopAddr := c.VariableAddress(n.Variable, n.VarType)
	c.BindSlot(normalized, loopAddr)

	initVal := c.EmitExpressionAs(n.Initial, n.VarType)
	c.Builder.EmitStore(qbe.QBEType(n.VarType.Base), initVal, loopAddr)

	limitAddr := c.Builder.EmitAlloc(qbe.LayoutOf(n.VarType.Base).Size, false)
	c.BindSlot(normalized+"_limit", limitAddr)
	limitVal := c.EmitExpressionAs(n.Limit, n.VarType)
	c.Builder.EmitStore(qbe.QBEType(n.VarType.Base), limitVal, limitAddr)

	stepAddr := c.Builder.EmitAlloc(qbe.LayoutOf(n.VarType.Base).Size, false)
	c.BindSlot(normalized+"_step", stepAddr)
	var stepVal string
	if n.Step != nil {
		stepVal = c.EmitExpressionAs(n.Step, n.VarType)
	} else {
		stepVal = qbe.ConstantInt(1)
	}
	c.Builder.EmitStore(qbe.QBEType(n.VarType.Base), stepVal, stepAddr)
}

func (c *Context) emitDim(n *ast.DimStatement) {
	for _, d := range n.Decls {
		c.allocArray(d)
	}
}

func (c *Context) emitReDim(n *ast.ReDimStatement) {
	if !n.Preserve {
		descAddr, ok := c.ArrayDescriptor(n.Decl.Name)
		if !ok {
			descAddr = c.Mangler.ArrayDescriptorGlobal(n.Decl.Name)
		}
		c.Shim.ArrayFree(descAddr)
	}
	c.allocArray(n.Decl)
}

func (c *Context) allocArray(d ast.DimDeclaration) {
	descAddr, ok := c.ArrayDescriptor(d.Name)
	if !ok {
		descAddr = c.Mangler.ArrayDescriptorGlobal(d.Name)
		c.BindArrayDescriptor(d.Name, descAddr)
	}
	total := "1"
	for i, dim := range d.Dims {
		v := c.EmitExpressionAs(dim, basic.TypeDescriptor{Base: basic.Integer})
		if i == 0 {
			total = v
		} else {
			total = c.Builder.EmitBinary(qbe.TWord, "mul", total, v)
		}
	}
	elemSize := qbe.LayoutOf(d.Typ.Base).Size
	c.Shim.ArrayAlloc(descAddr, qbe.ConstantInt(int64(elemSize)), total)
}

func (c *Context) emitErase(n *ast.EraseStatement) {
	for _, name := range n.Names {
		descAddr, ok := c.ArrayDescriptor(name)
		if !ok {
			descAddr = c.Mangler.ArrayDescriptorGlobal(name)
		}
		c.Shim.ArrayFree(descAddr)
	}
}

func (c *Context) emitLocal(n *ast.LocalStatement) {
	normalized := NormalizeVarName(n.Name, n.Typ.Base)
	layout := qbe.LayoutOf(n.Typ.Base)
	addr := c.Builder.EmitAlloc(layout.Size, false)
	c.BindSlot(normalized, addr)
	switch n.Typ.Base {
	case basic.String, basic.Unicode:
		c.Builder.EmitStore(qbe.TLong, "0", addr)
	case basic.UserDefined:
		if udt, ok := c.ResolveUDT(n.Typ.UDTName); ok && udt.Size > 8 {
			c.Shim.Memset(addr, udt.Size)
		}
	case basic.Object:
		// OBJECT locals are reference slots; zero-initialized like numerics.
		c.Builder.EmitStore(qbe.QBEType(n.Typ.Base), "0", addr)
	default:
		c.Builder.EmitStore(qbe.QBEType(n.Typ.Base), qbe.ConstantInt(0), addr)
	}
}

func (c *Context) emitCall(n *ast.CallStatement) {
	sym, ok := c.Symbols.Function(n.Name)
	args := make([]qbe.Arg, 0, len(n.Args))
	for i, a := range n.Args {
		var t basic.TypeDescriptor
		if ok && i < len(sym.Params) {
			t = sym.Params[i].Type
		} else {
			t = a.InferredType()
		}
		v := c.EmitExpressionAs(a, t)
		args = append(args, qbe.Arg{Type: qbe.QBEType(t.Base), Value: v})
	}
	c.Builder.EmitCall(qbe.TVoid, c.Mangler.Sub(n.Name), args)
}
