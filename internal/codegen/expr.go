package codegen

import (
	"basilisk/internal/ast"
	"basilisk/internal/basic"
	"basilisk/internal/qbe"
)

// EmitExpression is C5's public expression entry point: it dispatches
// on the AST expression kind and returns the QBE temp holding the
// result (spec.md section 4.5).
func (c *Context) EmitExpression(e ast.Expression) string {
	switch n := e.(type) {
	case *ast.NumberLiteral:
		return c.emitNumberLiteral(n)
	case *ast.StringLiteral:
		return c.emitStringLiteral(n)
	case *ast.VariableExpression:
		return c.LoadVariable(n.Name, n.Typ)
	case *ast.ArrayAccessExpression:
		return c.emitArrayAccess(n)
	case *ast.MemberAccessExpression:
		return c.emitMemberAccess(n)
	case *ast.BinaryExpression:
		return c.emitBinary(n)
	case *ast.UnaryExpression:
		return c.emitUnary(n)
	case *ast.FunctionCallExpression:
		return c.emitFunctionCall(n)
	case *ast.IIFExpression:
		return c.emitIIF(n)
	case *ast.MethodCallExpression:
		return c.emitMethodCall(n)
	default:
		c.Builder.EmitComment("ERROR: emitExpression: unhandled expression node")
		return "0"
	}
}

// EmitExpressionAs lowers e and coerces the result to expectedType
// (spec.md section 4.5's `emitExpressionAs` composition).
func (c *Context) EmitExpressionAs(e ast.Expression, expectedType basic.TypeDescriptor) string {
	v := c.EmitExpression(e)
	from := qbe.QBEType(e.InferredType().Base)
	to := qbe.QBEType(expectedType.Base)
	if from == to {
		return v
	}
	return c.Builder.EmitConvert(from, to, v)
}

func (c *Context) emitNumberLiteral(n *ast.NumberLiteral) string {
	qt := qbe.QBEType(n.Typ.Base)
	if n.IsFloat {
		return qbe.ConstantFloat(qt, n.FloatValue)
	}
	return qbe.ConstantInt(n.IntValue)
}

// emitStringLiteral registers the literal in the pool and yields a
// runtime descriptor (spec.md section 4.5 "the literal path stays
// zero-copy where possible" - the raw pool label is used directly as
// the copy source; callers that need a heap-style descriptor wrap it
// via Shim.Literal).
func (c *Context) emitStringLiteral(n *ast.StringLiteral) string {
	label := c.Builder.Pool().Register(n.Value)
	return label
}

func (c *Context) emitArrayAccess(n *ast.ArrayAccessExpression) string {
	sym, ok := c.Symbols.Array(n.ArrayName)
	if !ok {
		c.Builder.EmitComment("ERROR: unknown array %s", n.ArrayName)
		return "0"
	}
	addr := c.ArrayElementAddress(n.ArrayName, sym.ElemType, sym.Dimensions, n.Indices)
	return c.Builder.EmitLoad(qbe.QBEType(sym.ElemType.Base), addr)
}

func (c *Context) emitMemberAccess(n *ast.MemberAccessExpression) string {
	baseType := n.Base.InferredType()
	baseAddr := c.addressOfExpression(n.Base)
	layout, ok := c.ResolveUDT(baseType.UDTName)
	if !ok {
		c.Builder.EmitComment("ERROR: unknown UDT %s", baseType.UDTName)
		return "0"
	}
	for _, f := range layout.Fields {
		if f.Name == n.Field {
			addr := c.MemberAddress(baseAddr, f.Offset)
			return c.Builder.EmitLoad(f.Layout.QBE, addr)
		}
	}
	c.Builder.EmitComment("ERROR: unknown field %s.%s", baseType.UDTName, n.Field)
	return "0"
}

// addressOfExpression returns the address of an lvalue expression
// (variable, array element, or member access), for use as a UDT/member
// base. Anything else is not a valid lvalue; this never happens given
// a well-formed AST.
func (c *Context) addressOfExpression(e ast.Expression) string {
	switch n := e.(type) {
	case *ast.VariableExpression:
		return c.VariableAddress(n.Name, n.Typ)
	case *ast.ArrayAccessExpression:
		sym, ok := c.Symbols.Array(n.ArrayName)
		if !ok {
			c.Builder.EmitComment("ERROR: unknown array %s", n.ArrayName)
			return "0"
		}
		return c.ArrayElementAddress(n.ArrayName, sym.ElemType, sym.Dimensions, n.Indices)
	case *ast.MemberAccessExpression:
		baseAddr := c.addressOfExpression(n.Base)
		layout, ok := c.ResolveUDT(n.Base.InferredType().UDTName)
		if !ok {
			return baseAddr
		}
		for _, f := range layout.Fields {
			if f.Name == n.Field {
				return c.MemberAddress(baseAddr, f.Offset)
			}
		}
		return baseAddr
	default:
		c.Builder.EmitComment("ERROR: expression is not an lvalue")
		return "0"
	}
}

func binaryCategory(op ast.BinaryOperator) string {
	switch op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
		return "arith"
	case ast.OpEq, ast.OpNeq, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return "compare"
	case ast.OpAnd, ast.OpOr, ast.OpXor:
		return "logical"
	case ast.OpConcat:
		return "concat"
	default:
		return "arith"
	}
}

func relOpFor(op ast.BinaryOperator) qbe.RelOp {
	switch op {
	case ast.OpEq:
		return qbe.RelEq
	case ast.OpNeq:
		return qbe.RelNe
	case ast.OpLt:
		return qbe.RelLt
	case ast.OpLe:
		return qbe.RelLe
	case ast.OpGt:
		return qbe.RelGt
	default:
		return qbe.RelGe
	}
}

func (c *Context) emitBinary(n *ast.BinaryExpression) string {
	leftType := n.Left.InferredType().Base
	rightType := n.Right.InferredType().Base

	if n.Op == ast.OpConcat || leftType == basic.String || rightType == basic.String {
		lhs := c.EmitExpression(n.Left)
		rhs := c.EmitExpression(n.Right)
		if n.Op == ast.OpConcat {
			return c.Shim.Concat(lhs, rhs)
		}
		// String relational ops lower to a three-way runtime compare
		// whose result is then tested against zero for the requested
		// relation (spec.md section 4.5 "Comparison").
		cmp := c.Shim.Compare(lhs, rhs)
		result, err := c.Builder.EmitCompare(relOpFor(n.Op), qbe.TWord, cmp, "0")
		if err != nil {
			return "0"
		}
		return result
	}

	promoted := qbe.PromotedType(leftType, rightType)
	pt := qbe.QBEType(promoted)
	lhs := c.EmitExpressionAs(n.Left, basic.TypeDescriptor{Base: promoted})
	rhs := c.EmitExpressionAs(n.Right, basic.TypeDescriptor{Base: promoted})

	switch binaryCategory(n.Op) {
	case "compare":
		result, err := c.Builder.EmitCompare(relOpFor(n.Op), pt, lhs, rhs)
		if err != nil {
			return "0"
		}
		return result
	case "logical":
		var mnem string
		switch n.Op {
		case ast.OpAnd:
			mnem = "and"
		case ast.OpOr:
			mnem = "or"
		default:
			mnem = "xor"
		}
		return c.Builder.EmitBinary(qbe.TWord, mnem, lhs, rhs)
	default:
		var mnem string
		switch n.Op {
		case ast.OpAdd:
			mnem = "add"
		case ast.OpSub:
			mnem = "sub"
		case ast.OpMul:
			mnem = "mul"
		case ast.OpDiv:
			mnem = "div"
		default:
			mnem = "rem"
		}
		return c.Builder.EmitBinary(pt, mnem, lhs, rhs)
	}
}

func (c *Context) emitUnary(n *ast.UnaryExpression) string {
	operandType := n.Operand.InferredType().Base
	qt := qbe.QBEType(operandType)
	v := c.EmitExpression(n.Operand)
	switch n.Op {
	case ast.OpNeg:
		return c.Builder.EmitUnaryNeg(qt, v)
	case ast.OpNot:
		return c.Builder.EmitBinary(qbe.TWord, "xor", v, "-1")
	default: // OpCoerce
		target := qbe.QBEType(n.Typ.Base)
		return c.Builder.EmitConvert(qt, target, v)
	}
}

func (c *Context) emitFunctionCall(n *ast.FunctionCallExpression) string {
	sym, ok := c.Symbols.Function(n.Name)
	if !ok {
		c.Builder.EmitComment("ERROR: unknown function %s", n.Name)
		return "0"
	}
	args := make([]qbe.Arg, 0, len(n.Args))
	for i, a := range n.Args {
		var argType basic.TypeDescriptor
		if i < len(sym.Params) {
			argType = sym.Params[i].Type
		} else {
			argType = a.InferredType()
		}
		v := c.EmitExpressionAs(a, argType)
		args = append(args, qbe.Arg{Type: qbe.QBEType(argType.Base), Value: v})
	}
	name := c.Mangler.Function(n.Name)
	if sym.IsDefFn {
		name = c.Mangler.DefFn(n.Name)
	}
	return c.Builder.EmitCall(qbe.QBEType(sym.ReturnType.Base), name, args)
}

// emitIIF lowers BASIC's inline-if ternary via a common stack slot, per
// spec.md section 4.5: both branches store into the slot, then a
// single merged load reads the result.
func (c *Context) emitIIF(n *ast.IIFExpression) string {
	cond := c.EmitExpression(n.Condition)
	resultType := qbe.QBEType(n.Typ.Base)
	slot := c.Builder.EmitAlloc(qbe.LayoutOf(n.Typ.Base).Size, false)

	trueLabel := c.Builder.NewUniqueLabel("iif_true")
	falseLabel := c.Builder.NewUniqueLabel("iif_false")
	mergeLabel := c.Builder.NewUniqueLabel("iif_merge")

	c.Builder.EmitJnz(cond, trueLabel, falseLabel)

	c.Builder.EmitLabel(trueLabel)
	tv := c.EmitExpressionAs(n.WhenTrue, n.Typ)
	c.Builder.EmitStore(resultType, tv, slot)
	c.Builder.EmitJump(mergeLabel)

	c.Builder.EmitLabel(falseLabel)
	fv := c.EmitExpressionAs(n.WhenFalse, n.Typ)
	c.Builder.EmitStore(resultType, fv, slot)
	c.Builder.EmitJump(mergeLabel)

	c.Builder.EmitLabel(mergeLabel)
	return c.Builder.EmitLoad(resultType, slot)
}

// emitMethodCall evaluates the receiver as a pointer and dispatches to
// a statically-known function (spec.md section 4.5 "Method call").
func (c *Context) emitMethodCall(n *ast.MethodCallExpression) string {
	recvAddr := c.addressOfExpression(n.Receiver)
	args := make([]qbe.Arg, 0, len(n.Args)+1)
	args = append(args, qbe.Arg{Type: qbe.TLong, Value: recvAddr})
	for _, a := range n.Args {
		v := c.EmitExpression(a)
		args = append(args, qbe.Arg{Type: qbe.QBEType(a.InferredType().Base), Value: v})
	}
	name := c.Mangler.Function(n.Receiver.InferredType().UDTName + "_" + n.Method)
	result := c.Builder.EmitCall(qbe.QBEType(n.Typ.Base), name, args)
	if result == "" {
		// Void method call: there is no result temp, so "0" stands in
		// for the value. The call itself emits no ret, so it adds no
		// terminator to the block.
		return "0"
	}
	return result
}
