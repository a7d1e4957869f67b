package codegen

import (
	"sort"

	"basilisk/internal/ast"
	"basilisk/internal/basic"
	"basilisk/internal/cfg"
	"basilisk/internal/qbe"
	"basilisk/internal/symtab"
)

// GenerateRoutine drives C6 for one routine: main, a SUB, or a
// FUNCTION (spec.md section 4.6). name is the BASIC routine name
// ("" for main); sym is nil for main.
func (c *Context) GenerateRoutine(name string, g *cfg.ControlFlowGraph, sym *symtab.FunctionSymbol, isMain bool) {
	paramNames := g.Parameters
	var scope *FunctionScope
	var returnType basic.TypeDescriptor
	var qbeParams []qbe.Param

	switch {
	case isMain:
		scope = EnterFunctionScope(c.Mangler, "main", paramNames)
		c.EnterRoutine("main", false, true, basic.TypeDescriptor{Base: basic.Integer})
		c.Builder.OpenFunction(true, "$main", qbe.TWord, nil)
	default:
		scope = EnterFunctionScope(c.Mangler, name, paramNames)
		isFunction := sym != nil && sym.IsFunction
		if sym != nil {
			returnType = sym.ReturnType
		}
		c.EnterRoutine(name, isFunction, false, returnType)
		qbeRet := qbe.TVoid
		if isFunction {
			qbeRet = qbe.QBEType(returnType.Base)
		}
		for i, p := range paramNames {
			var pt basic.TypeDescriptor
			if sym != nil && i < len(sym.Params) {
				pt = sym.Params[i].Type
			}
			qbeParams = append(qbeParams, qbe.Param{Type: qbe.QBEType(pt.Base), Name: c.Mangler.Local(p)})
		}
		symbolName := c.Mangler.Sub(name)
		if isFunction {
			symbolName = c.Mangler.Function(name)
		}
		// FUNCTIONs are exported like main; SUBs are not (spec.md section
		// 6's output grammar shows `export function <rt> $func_<name>`
		// but a bare `$sub_<name>(...)`).
		c.Builder.OpenFunction(isFunction, symbolName, qbeRet, qbeParams)
	}
	defer scope.Exit()
	defer c.Builder.CloseFunction()

	if !isMain && c.IsFunction() {
		slot := c.Builder.EmitAlloc(qbe.LayoutOf(returnType.Base).Size, false)
		c.SetReturnSlot(slot)
	}

	// Emission order is the full block-ID-order list, not a reachability
	// walk: some blocks (GOSUB targets, ON GOTO targets) are reachable
	// only via a computed jump and would otherwise be pruned, which
	// would leave a dangling reference with no label (spec.md section
	// 4.6 step 2; resolves open question 6 in favor of keeping every
	// block).
	for i := range g.Blocks {
		c.emitBlock(g, &g.Blocks[i], sym, paramNames, qbeParams)
	}
}

func (c *Context) emitBlock(g *cfg.ControlFlowGraph, block *cfg.BasicBlock, sym *symtab.FunctionSymbol, paramNames []string, qbeParams []qbe.Param) {
	label := qbe.BlockLabel(block.Id)
	if !c.MarkLabelEmitted(label) {
		c.Builder.EmitComment("WARNING: block %s emitted more than once", label)
	}
	c.Builder.EmitLabel(label)
	c.Builder.ResetTerminatorTracking()

	if block.Id == g.EntryID {
		c.emitEntryParamBinding(sym, paramNames, qbeParams)
	}

	if block.IsLoopHeader {
		c.emitLoopHeaderCondition(g, block)
	}
	if isForIncrementBlock(block) {
		c.emitForIncrement(g, block)
	}

	sawEnd := false
	var terminatorStmt ast.Statement
	for _, s := range block.Statements {
		switch s.Kind() {
		case ast.KindReturn, ast.KindOnGoto, ast.KindOnGosub, ast.KindOnCall:
			terminatorStmt = s
			continue
		case ast.KindEnd:
			c.EmitStatement(s)
			sawEnd = true
			continue
		}
		c.EmitStatement(s)
	}

	if sawEnd {
		return
	}

	if ret, ok := terminatorStmt.(*ast.ReturnStatement); ok && ret.Value != nil {
		v := c.EmitExpressionAs(ret.Value, c.ReturnType())
		c.Builder.EmitStore(qbe.QBEType(c.ReturnType().Base), v, c.ReturnSlot())
	}

	switch t := terminatorStmt.(type) {
	case *ast.OnGotoStatement:
		c.emitOnGoto(g, block, t)
		return
	case *ast.OnGosubStatement:
		c.emitOnGosub(g, block, t)
		return
	case *ast.OnCallStatement:
		c.emitOnCall(g, block, t)
		return
	}

	c.emitEdgeTerminator(g, block)
}

func (c *Context) emitEntryParamBinding(sym *symtab.FunctionSymbol, paramNames []string, qbeParams []qbe.Param) {
	for i, p := range paramNames {
		var pt basic.TypeDescriptor
		if sym != nil && i < len(sym.Params) {
			pt = sym.Params[i].Type
		}
		normalized := NormalizeVarName(p, pt.Base)
		slot := c.Builder.EmitAlloc(qbe.LayoutOf(pt.Base).Size, false)
		c.Builder.EmitStore(qbe.QBEType(pt.Base), qbeParams[i].Name, slot)
		c.BindSlot(normalized, slot)
	}
}

func isForIncrementBlock(block *cfg.BasicBlock) bool {
	return block.Label == "For_Increment"
}

// findForStatement walks predecessors looking for the For_Init block
// that holds the originating ForStatement (spec.md section 4.6: "find
// the associated loop statement... by walking to the predecessor
// For_Init block where the statement lives").
func findForStatement(g *cfg.ControlFlowGraph, block *cfg.BasicBlock) *ast.ForStatement {
	visited := make(map[int]bool)
	queue := append([]int{}, block.Predecessors...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		b := g.Block(id)
		if b == nil {
			continue
		}
		for _, s := range b.Statements {
			if f, ok := s.(*ast.ForStatement); ok {
				return f
			}
		}
		queue = append(queue, b.Predecessors...)
	}
	return nil
}

func (c *Context) emitLoopHeaderCondition(g *cfg.ControlFlowGraph, block *cfg.BasicBlock) {
	switch block.Label {
	case "While_Header":
		for _, s := range block.Statements {
			if w, ok := s.(*ast.WhileStatement); ok {
				cond := c.EmitExpression(w.Condition)
				c.StashLoopCond(cond)
				return
			}
		}
	case "Do_Header":
		for _, s := range block.Statements {
			if d, ok := s.(*ast.DoStatement); ok && d.Condition != nil {
				cond := c.EmitExpression(d.Condition)
				if d.ConditionKind == ast.DoUntilPre || d.ConditionKind == ast.DoUntilPost {
					cond = c.Builder.EmitBinary(qbe.TWord, "xor", cond, "-1")
				}
				c.StashLoopCond(cond)
				return
			}
		}
	case "For_Header":
		f := findForStatement(g, block)
		if f == nil {
			c.Builder.EmitComment("WARNING: For_Header with no reachable FOR statement")
			return
		}
		normalized := NormalizeVarName(f.Variable, f.VarType.Base)
		loopAddr, _ := c.Slot(normalized)
		limitAddr, _ := c.Slot(normalized + "_limit")
		stepAddr, _ := c.Slot(normalized + "_step")
		qt := qbe.QBEType(f.VarType.Base)
		loopVal := c.Builder.EmitLoad(qt, loopAddr)
		limitVal := c.Builder.EmitLoad(qt, limitAddr)

		descending := isNegativeConstantStep(f.Step)
		var rel qbe.RelOp
		if descending {
			rel = qbe.RelGe
		} else {
			rel = qbe.RelLe
		}
		if f.Step == nil || isConstantStep(f.Step) {
			cond, _ := c.Builder.EmitCompare(rel, qt, loopVal, limitVal)
			c.StashLoopCond(cond)
			return
		}
		// Step is not a compile-time constant: compute an ascending/
		// descending flag at init time and branch accordingly (spec.md
		// section 4.5.4).
		stepVal := c.Builder.EmitLoad(qt, stepAddr)
		zero := qbe.ConstantInt(0)
		ascFlag, _ := c.Builder.EmitCompare(qbe.RelGe, qt, stepVal, zero)
		ascCond, _ := c.Builder.EmitCompare(qbe.RelLe, qt, loopVal, limitVal)
		descCond, _ := c.Builder.EmitCompare(qbe.RelGe, qt, loopVal, limitVal)
		notAsc := c.Builder.EmitBinary(qbe.TWord, "xor", ascFlag, "1")
		descTerm := c.Builder.EmitBinary(qbe.TWord, "and", notAsc, descCond)
		ascTerm := c.Builder.EmitBinary(qbe.TWord, "and", ascFlag, ascCond)
		cond := c.Builder.EmitBinary(qbe.TWord, "or", ascTerm, descTerm)
		c.StashLoopCond(cond)
	}
}

func isConstantStep(e ast.Expression) bool {
	if e == nil {
		return true
	}
	_, ok := e.(*ast.NumberLiteral)
	return ok
}

func isNegativeConstantStep(e ast.Expression) bool {
	n, ok := e.(*ast.NumberLiteral)
	if !ok {
		return false
	}
	if n.IsFloat {
		return n.FloatValue < 0
	}
	return n.IntValue < 0
}

func (c *Context) emitForIncrement(g *cfg.ControlFlowGraph, block *cfg.BasicBlock) {
	f := findForStatement(g, block)
	if f == nil {
		c.Builder.EmitComment("WARNING: For_Increment with no reachable FOR statement")
		return
	}
	normalized := NormalizeVarName(f.Variable, f.VarType.Base)
	loopAddr, _ := c.Slot(normalized)
	stepAddr, _ := c.Slot(normalized + "_step")
	qt := qbe.QBEType(f.VarType.Base)
	loopVal := c.Builder.EmitLoad(qt, loopAddr)
	stepVal := c.Builder.EmitLoad(qt, stepAddr)
	next := c.Builder.EmitBinary(qt, "add", loopVal, stepVal)
	c.Builder.EmitStore(qt, next, loopAddr)
}

// emitEdgeTerminator implements spec.md section 4.6 steps 3-9: the
// terminator shape driven purely by a block's out-edges.
func (c *Context) emitEdgeTerminator(g *cfg.ControlFlowGraph, block *cfg.BasicBlock) {
	edges := g.SuccessorsOf(block.Id)

	if len(edges) == 0 {
		switch {
		case c.IsMain():
			c.Builder.EmitRetValue("0")
		case c.IsFunction():
			v := c.Builder.EmitLoad(qbe.QBEType(c.ReturnType().Base), c.ReturnSlot())
			c.Builder.EmitRetValue(v)
		default:
			c.Builder.EmitRet()
		}
		return
	}

	for _, e := range edges {
		if e.Kind == cfg.EdgeCall {
			var returnPoint *cfg.CFGEdge
			for i := range edges {
				if edges[i].Kind == cfg.EdgeFallthrough || edges[i].Kind == cfg.EdgeJump {
					returnPoint = &edges[i]
					break
				}
			}
			if returnPoint == nil {
				c.Builder.EmitComment("ERROR: GOSUB call edge with no return-point edge")
				c.Builder.EmitJump(qbe.BlockLabel(e.To))
				return
			}
			c.emitGosubPush(returnPoint.To)
			c.Builder.EmitJump(qbe.BlockLabel(e.To))
			return
		}
	}

	for _, e := range edges {
		if e.Kind == cfg.EdgeReturn {
			c.emitGosubReturnDispatch(g)
			return
		}
	}

	if len(edges) == 1 {
		switch edges[0].Kind {
		case cfg.EdgeFallthrough, cfg.EdgeJump:
			c.Builder.EmitJump(qbe.BlockLabel(edges[0].To))
			return
		}
	}

	if len(edges) == 2 {
		var trueEdge, falseEdge *cfg.CFGEdge
		for i := range edges {
			switch edges[i].Kind {
			case cfg.EdgeConditionalTrue:
				trueEdge = &edges[i]
			case cfg.EdgeConditionalFalse:
				falseEdge = &edges[i]
			}
		}
		if trueEdge != nil && falseEdge != nil {
			cond := c.conditionForBlock(block)
			c.Builder.EmitJnz(cond, qbe.BlockLabel(trueEdge.To), qbe.BlockLabel(falseEdge.To))
			return
		}
	}

	if len(edges) > 2 {
		c.emitGenericSwitch(block, edges)
		return
	}

	c.Builder.EmitComment("WARNING: emitBlock: unrecognized terminator shape, falling through to first edge")
	c.Builder.EmitJump(qbe.BlockLabel(edges[0].To))
}

// conditionForBlock returns the condition temp a two-way terminator
// should branch on: the value a loop header stashed, or the result of
// the last IfStatement in the block, or a literal 1 with a warning
// (spec.md section 4.6 step 7).
func (c *Context) conditionForBlock(block *cfg.BasicBlock) string {
	if stashed := c.TakeLoopCond(); stashed != "" {
		return stashed
	}
	for i := len(block.Statements) - 1; i >= 0; i-- {
		if ifs, ok := block.Statements[i].(*ast.IfStatement); ok {
			return c.EmitExpression(ifs.Condition)
		}
	}
	c.Builder.EmitComment("WARNING: no condition found for conditional terminator, defaulting to true")
	return "1"
}

func (c *Context) emitGenericSwitch(block *cfg.BasicBlock, edges []cfg.CFGEdge) {
	sorted := append([]cfg.CFGEdge{}, edges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Label < sorted[j].Label })
	labels := make([]string, len(sorted))
	for i, e := range sorted {
		labels[i] = qbe.BlockLabel(e.To)
	}
	cond := c.conditionForBlock(block)
	c.Builder.EmitSwitch(cond, labels[:len(labels)-1], labels[len(labels)-1])
}

// ----- GOSUB return stack -----

// emitGosubPush pushes returnBlockID onto the GOSUB return stack,
// bounds-checking the stack pointer first (spec.md section 9 open
// question 1): a bare write would treat overflow as a silent contract
// violation, but this backend inserts an explicit check and calls the
// runtime error hook rather than corrupting adjacent globals.
func (c *Context) emitGosubPush(returnBlockID int) {
	sp := c.Builder.EmitLoad(qbe.TWord, gosubStackPointerSym)
	depth := c.Opts.GosubStackDepth
	if depth <= 0 {
		depth = 16
	}
	overflow, _ := c.Builder.EmitCompare(qbe.RelGe, qbe.TWord, sp, qbe.ConstantInt(int64(depth)))
	okLabel := c.Builder.NewUniqueLabel("gosub_push_ok")
	overflowLabel := c.Builder.NewUniqueLabel("gosub_overflow")
	c.Builder.EmitJnz(overflow, overflowLabel, okLabel)

	c.Builder.EmitLabel(overflowLabel)
	msg := c.Builder.Pool().Register("GOSUB stack overflow")
	c.Shim.RuntimeError(qbe.ConstantInt(1), msg)
	c.Builder.EmitJump(okLabel)

	c.Builder.EmitLabel(okLabel)
	slotOffset := c.Builder.EmitBinary(qbe.TLong, "mul", c.Builder.EmitConvert(qbe.TWord, qbe.TLong, sp), qbe.ConstantInt(4))
	slotAddr := c.Builder.EmitBinary(qbe.TLong, "add", gosubStackSymbol, slotOffset)
	c.Builder.EmitStore(qbe.TWord, qbe.ConstantInt(int64(returnBlockID)), slotAddr)
	next := c.Builder.EmitBinary(qbe.TWord, "add", sp, "1")
	c.Builder.EmitStore(qbe.TWord, next, gosubStackPointerSym)
}

// emitGosubReturnDispatch pops the GOSUB return stack and jumps to the
// recorded return block via a sorted comparison chain (spec.md section
// 4.6 step 5).
func (c *Context) emitGosubReturnDispatch(g *cfg.ControlFlowGraph) {
	sp := c.Builder.EmitLoad(qbe.TWord, gosubStackPointerSym)
	prev := c.Builder.EmitBinary(qbe.TWord, "sub", sp, "1")
	c.Builder.EmitStore(qbe.TWord, prev, gosubStackPointerSym)
	slotOffset := c.Builder.EmitBinary(qbe.TLong, "mul", c.Builder.EmitConvert(qbe.TWord, qbe.TLong, prev), qbe.ConstantInt(4))
	slotAddr := c.Builder.EmitBinary(qbe.TLong, "add", gosubStackSymbol, slotOffset)
	target := c.Builder.EmitLoad(qbe.TWord, slotAddr)

	ids := make([]int, 0, len(g.GosubReturnBlocks))
	for id := range g.GosubReturnBlocks {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	errLabel := c.Builder.NewUniqueLabel("return_error")
	for _, id := range ids {
		cmp, _ := c.Builder.EmitCompare(qbe.RelEq, qbe.TWord, target, qbe.ConstantInt(int64(id)))
		nextLabel := c.Builder.NewUniqueLabel("gosub_return_check")
		c.Builder.EmitJnz(cmp, qbe.BlockLabel(id), nextLabel)
		c.Builder.EmitLabel(nextLabel)
	}
	c.Builder.EmitJump(errLabel)
	c.Builder.EmitLabel(errLabel)
	c.Builder.EmitComment("ERROR: GOSUB return to unknown block")
	c.Builder.EmitRetValue("0")
}

// ----- Computed dispatch: ON GOTO / ON GOSUB / ON CALL -----

func (c *Context) emitOnGoto(g *cfg.ControlFlowGraph, block *cfg.BasicBlock, s *ast.OnGotoStatement) {
	selector := c.EmitExpressionAs(s.Selector, basic.TypeDescriptor{Base: basic.Integer})
	idx := c.Builder.EmitBinary(qbe.TWord, "sub", selector, "1")

	caseLabels := make([]string, len(s.Targets))
	for i, t := range s.Targets {
		if t == "" {
			caseLabels[i] = ""
			continue
		}
		if id, ok := findBlockByLabel(g, t); ok {
			caseLabels[i] = qbe.BlockLabel(id)
		}
	}
	defaultLabel := c.defaultEdgeLabel(g, block)
	c.Builder.EmitSwitch(idx, caseLabels, defaultLabel)
}

func (c *Context) emitOnGosub(g *cfg.ControlFlowGraph, block *cfg.BasicBlock, s *ast.OnGosubStatement) {
	selector := c.EmitExpressionAs(s.Selector, basic.TypeDescriptor{Base: basic.Integer})
	idx := c.Builder.EmitBinary(qbe.TWord, "sub", selector, "1")
	defaultLabel := c.defaultEdgeLabel(g, block)
	returnPoint := returnPointFor(g, block)

	trampolines := make([]string, len(s.Targets))
	type pending struct {
		label  string
		target int
	}
	var toEmit []pending
	for i, t := range s.Targets {
		if t == "" {
			trampolines[i] = defaultLabel
			continue
		}
		targetID, ok := findBlockByLabel(g, t)
		if !ok {
			trampolines[i] = defaultLabel
			continue
		}
		tramp := c.Builder.NewUniqueLabel("on_gosub_trampoline")
		trampolines[i] = tramp
		toEmit = append(toEmit, pending{tramp, targetID})
	}
	c.Builder.EmitSwitch(idx, trampolines, defaultLabel)
	for _, p := range toEmit {
		c.Builder.EmitLabel(p.label)
		c.emitGosubPush(returnPoint)
		c.Builder.EmitJump(qbe.BlockLabel(p.target))
	}
}

func (c *Context) emitOnCall(g *cfg.ControlFlowGraph, block *cfg.BasicBlock, s *ast.OnCallStatement) {
	selector := c.EmitExpressionAs(s.Selector, basic.TypeDescriptor{Base: basic.Integer})
	idx := c.Builder.EmitBinary(qbe.TWord, "sub", selector, "1")
	continuation := c.defaultEdgeLabel(g, block)

	args := make([]qbe.Arg, 0, len(s.Args))
	for _, a := range s.Args {
		v := c.EmitExpression(a)
		args = append(args, qbe.Arg{Type: qbe.QBEType(a.InferredType().Base), Value: v})
	}

	trampolines := make([]string, len(s.Names))
	type pending struct {
		label   string
		subName string
	}
	var toEmit []pending
	for i, n := range s.Names {
		if n == "" {
			trampolines[i] = continuation
			continue
		}
		tramp := c.Builder.NewUniqueLabel("on_call_trampoline")
		trampolines[i] = tramp
		toEmit = append(toEmit, pending{tramp, n})
	}
	c.Builder.EmitSwitch(idx, trampolines, continuation)
	for _, p := range toEmit {
		c.Builder.EmitLabel(p.label)
		c.Builder.EmitCall(qbe.TVoid, c.Mangler.Sub(p.subName), args)
		c.Builder.EmitJump(continuation)
	}
}

// defaultEdgeLabel resolves the default/continuation target for a
// computed-dispatch block: the edge explicitly labeled "default", or
// (if none) the FALLTHROUGH edge (spec.md section 4.6 "ON GOTO").
func (c *Context) defaultEdgeLabel(g *cfg.ControlFlowGraph, block *cfg.BasicBlock) string {
	edges := g.SuccessorsOf(block.Id)
	for _, e := range edges {
		if e.Label == "default" {
			return qbe.BlockLabel(e.To)
		}
	}
	for _, e := range edges {
		if e.Kind == cfg.EdgeFallthrough {
			return qbe.BlockLabel(e.To)
		}
	}
	if len(edges) > 0 {
		return qbe.BlockLabel(edges[0].To)
	}
	return c.Builder.NewUniqueLabel("unreachable_default")
}

// returnPointFor resolves the post-statement continuation block for an
// ON GOSUB trampoline: the same default/fallthrough edge a plain GOSUB
// would push (spec.md section 4.6 "ON GOSUB").
func returnPointFor(g *cfg.ControlFlowGraph, block *cfg.BasicBlock) int {
	edges := g.SuccessorsOf(block.Id)
	for _, e := range edges {
		if e.Kind == cfg.EdgeFallthrough {
			return e.To
		}
	}
	if len(edges) > 0 {
		return edges[0].To
	}
	return block.Id
}

func findBlockByLabel(g *cfg.ControlFlowGraph, label string) (int, bool) {
	for i := range g.Blocks {
		if g.Blocks[i].Label == label {
			return g.Blocks[i].Id, true
		}
	}
	return 0, false
}
