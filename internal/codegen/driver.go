package codegen

import (
	"fmt"
	"math"

	"basilisk/internal/ast"
	"basilisk/internal/basic"
	"basilisk/internal/cfg"
	"basilisk/internal/data"
	"basilisk/internal/qbe"
	"basilisk/internal/symtab"
)

// GenerateProgram drives the Program Driver (C7): the single top-level
// entry point that turns a whole program's external inputs into one
// QBE IL string (spec.md section 4.7). It owns nothing across calls -
// every invocation gets a fresh Context, Builder, and Mangler, so two
// programs can be generated back to back (or from separate goroutines,
// each with its own Context) without interference.
func GenerateProgram(program *ast.Program, programCFG *cfg.ProgramCFG, symbols *symtab.SymbolTable, dataResult *data.Result, opts Options) string {
	c := NewContext(symbols, dataResult, opts)
	b := c.Builder

	collectStrings(program, programCFG, dataResult, b.Pool())

	emitFileHeader(b)
	emitRuntimeDeclComment(b)
	b.Raw(b.Pool().EmitBulk())
	b.EmitBlank()

	emitGosubStackGlobals(b, opts)
	b.EmitBlank()

	if len(dataResult.Values) > 0 {
		emitDataSegment(c, dataResult)
		b.EmitBlank()
	}

	emitGlobals(c, symbols)
	b.EmitBlank()

	c.GenerateRoutine("", programCFG.MainCFG, nil, true)

	for _, rc := range programCFG.FunctionCFGs {
		sym, _ := symbols.Function(rc.Name)
		c.GenerateRoutine(rc.Name, rc.CFG, sym, false)
	}

	b.Raw(b.Pool().EmitLate())

	return b.String()
}

// ----- step 2: string collection pass -----

// collectStrings walks every statement reachable from the program root
// and every routine CFG, plus the flattened DATA values, registering
// every string literal into pool before any function body is emitted
// (spec.md section 4.7 step 2). Doing this as a dedicated pre-pass,
// ahead of the real emission walk, keeps pool-label assignment in
// source order regardless of which routine's codegen happens to touch
// a given literal first.
func collectStrings(program *ast.Program, programCFG *cfg.ProgramCFG, dataResult *data.Result, pool *qbe.StringPool) {
	if program != nil {
		for _, s := range program.Statements {
			collectStringsStmt(s, pool)
		}
	}
	if programCFG != nil {
		if programCFG.MainCFG != nil {
			collectStringsCFG(programCFG.MainCFG, pool)
		}
		for _, rc := range programCFG.FunctionCFGs {
			collectStringsCFG(rc.CFG, pool)
		}
	}
	for _, v := range dataResult.Values {
		if v.Type.Base == basic.String || v.Type.Base == basic.Unicode {
			pool.Register(v.Str)
		}
	}
}

func collectStringsCFG(g *cfg.ControlFlowGraph, pool *qbe.StringPool) {
	if g == nil {
		return
	}
	for _, block := range g.Blocks {
		for _, s := range block.Statements {
			collectStringsStmt(s, pool)
		}
	}
}

func collectStringsStmt(s ast.Statement, pool *qbe.StringPool) {
	switch n := s.(type) {
	case *ast.LetStatement:
		collectStringsExpr(n.LHS, pool)
		collectStringsExpr(n.RHS, pool)
	case *ast.PrintStatement:
		for _, item := range n.Items {
			collectStringsExpr(item.Value, pool)
		}
	case *ast.InputStatement:
		if n.Prompt != "" {
			pool.Register(n.Prompt)
		}
		for _, t := range n.Targets {
			collectStringsExpr(t, pool)
		}
	case *ast.ReadStatement:
		for _, t := range n.Targets {
			collectStringsExpr(t, pool)
		}
	case *ast.SliceAssignStatement:
		collectStringsExpr(n.Target, pool)
		collectStringsExpr(n.From, pool)
		collectStringsExpr(n.To, pool)
		collectStringsExpr(n.Value, pool)
	case *ast.IfStatement:
		collectStringsExpr(n.Condition, pool)
	case *ast.WhileStatement:
		collectStringsExpr(n.Condition, pool)
	case *ast.DoStatement:
		collectStringsExpr(n.Condition, pool)
	case *ast.ForStatement:
		collectStringsExpr(n.Initial, pool)
		collectStringsExpr(n.Limit, pool)
		collectStringsExpr(n.Step, pool)
	case *ast.ReturnStatement:
		collectStringsExpr(n.Value, pool)
	case *ast.DimStatement:
		for _, d := range n.Decls {
			for _, dim := range d.Dims {
				collectStringsExpr(dim, pool)
			}
		}
	case *ast.ReDimStatement:
		for _, dim := range n.Decl.Dims {
			collectStringsExpr(dim, pool)
		}
	case *ast.CallStatement:
		for _, a := range n.Args {
			collectStringsExpr(a, pool)
		}
	case *ast.OnGotoStatement:
		collectStringsExpr(n.Selector, pool)
	case *ast.OnGosubStatement:
		collectStringsExpr(n.Selector, pool)
	case *ast.OnCallStatement:
		collectStringsExpr(n.Selector, pool)
		for _, a := range n.Args {
			collectStringsExpr(a, pool)
		}
	case *ast.CaseClause:
		for _, v := range n.Values {
			collectStringsExpr(v, pool)
		}
	}
}

func collectStringsExpr(e ast.Expression, pool *qbe.StringPool) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *ast.StringLiteral:
		pool.Register(n.Value)
	case *ast.BinaryExpression:
		collectStringsExpr(n.Left, pool)
		collectStringsExpr(n.Right, pool)
	case *ast.UnaryExpression:
		collectStringsExpr(n.Operand, pool)
	case *ast.ArrayAccessExpression:
		for _, idx := range n.Indices {
			collectStringsExpr(idx, pool)
		}
	case *ast.MemberAccessExpression:
		collectStringsExpr(n.Base, pool)
	case *ast.FunctionCallExpression:
		for _, a := range n.Args {
			collectStringsExpr(a, pool)
		}
	case *ast.IIFExpression:
		collectStringsExpr(n.Condition, pool)
		collectStringsExpr(n.WhenTrue, pool)
		collectStringsExpr(n.WhenFalse, pool)
	case *ast.MethodCallExpression:
		collectStringsExpr(n.Receiver, pool)
		for _, a := range n.Args {
			collectStringsExpr(a, pool)
		}
	}
}

// ----- step 3/4: header comments -----

func emitFileHeader(b *qbe.Builder) {
	b.EmitComment("generated QBE IL - do not edit by hand")
	b.EmitBlank()
}

// emitRuntimeDeclComment documents the external C runtime ABI this
// output calls into (spec.md section 6); the symbols themselves are
// resolved at link time, so this is informational only.
func emitRuntimeDeclComment(b *qbe.Builder) {
	b.EmitComment("runtime ABI (resolved externally at link time):")
	b.EmitComment("  string_{concat,len,chr,asc,mid,left,right,ucase,lcase,compare,assign,clone,retain,release}")
	b.EmitComment("  rt_print_{int,float,double,string,newline,tab}, rt_input_{int,float,double,string}")
	b.EmitComment("  rt_{abs,sqr,sin,cos,tan,int,rnd,timer}")
	b.EmitComment("  rt_array_{alloc,free,bounds_check}, rt_{end,runtime_error}, memset")
	b.EmitBlank()
}

// ----- step 6: GOSUB return stack globals -----

func emitGosubStackGlobals(b *qbe.Builder, opts Options) {
	depth := opts.GosubStackDepth
	if depth <= 0 {
		depth = 16
	}
	words := make([]string, depth)
	for i := range words {
		words[i] = "0"
	}
	b.EmitDataWords(true, gosubStackSymbol, qbe.TWord, words)
	b.EmitDataWords(true, gosubStackPointerSym, qbe.TWord, []string{"0"})
}

// ----- step 7: DATA segment -----

// emitDataSegment lowers the flattened DATA-result values into one
// contiguous data object laid out at the 16-byte stride emitRead/
// emitRestore assume (spec.md section 4.7 step 7): each entry is a tag
// word (0=int, 1=double, 2=string) followed by 4 bytes of padding and
// an 8-byte payload. All entries share a single `data` object (rather
// than one object per entry) because QBE gives no adjacency or
// ordering guarantee across separate data definitions, and
// emitRead/emitRestore's `dataStartSymbol + idx*16` pointer arithmetic
// requires every entry to sit at a fixed offset inside the same block.
//
// The label/line restore-point maps spec.md names are resolved entirely
// at compile time by emitRestore (via data.Result.IndexForLabel/
// IndexForLine), so they need no runtime representation; they are
// recorded here as comments for readability rather than as live data,
// resolving an otherwise-open question about their runtime shape.
func emitDataSegment(c *Context, dataResult *data.Result) {
	b := c.Builder
	b.EmitComment("DATA segment: %d value(s)", len(dataResult.Values))
	fields := make([]string, 0, len(dataResult.Values)*3)
	for _, v := range dataResult.Values {
		tag, payload := dataEntryTagAndPayload(c, v)
		fields = append(fields, fmt.Sprintf("w %d", tag), "z 4", fmt.Sprintf("l %s", payload))
	}
	b.EmitDataFields(true, dataStartSymbol, fields)
	for _, rp := range dataResult.RestorePoints {
		if rp.Label != "" {
			b.EmitComment("restore point: label %q -> index %d", rp.Label, rp.Index)
		} else {
			b.EmitComment("restore point: line %d -> index %d", rp.Line, rp.Index)
		}
	}
	b.EmitDataWords(false, dataEndConstSymbol, qbe.TLong, []string{qbe.ConstantInt(int64(len(dataResult.Values)))})
	b.EmitDataWords(false, dataPointerSymbol, qbe.TWord, []string{"0"})
}

// dataEntryTagAndPayload renders one DATA value's type tag and 64-bit
// payload operand. Doubles are bit-cast into their raw long
// representation (spec.md section 4.7 step 7: "double as l with
// bit-cast") so every entry shares the same `l` payload slot width.
func dataEntryTagAndPayload(c *Context, v data.Value) (int, string) {
	switch v.Type.Base {
	case basic.String, basic.Unicode:
		return 2, c.Builder.Pool().Register(v.Str)
	case basic.Single, basic.Double:
		return 1, qbe.ConstantInt(int64(math.Float64bits(v.Num)))
	default:
		return 0, qbe.ConstantInt(int64(v.Num))
	}
}

// ----- step 8: globals and array descriptors -----

func emitGlobals(c *Context, symbols *symtab.SymbolTable) {
	b := c.Builder
	for _, v := range symbols.Variables() {
		if v.Storage != symtab.StorageGlobal {
			continue
		}
		size := qbe.LayoutOf(v.Type.Base).Size
		if v.Type.Base == basic.UserDefined {
			if udt, ok := c.ResolveUDT(v.Type.UDTName); ok {
				size = udt.Size
			}
		}
		b.EmitDataZero(true, c.Mangler.Global(v.Name), size)
	}
	for _, a := range symbols.Arrays() {
		if !a.IsGlobal {
			continue
		}
		// Arrays are zeroed descriptor blocks of 64 bytes, not the
		// element storage itself (spec.md section 4.7 step 8); element
		// storage is allocated at runtime by rt_array_alloc when the
		// owning DIM statement executes.
		b.EmitDataZero(true, c.Mangler.ArrayDescriptorGlobal(a.Name), 64)
	}
}
