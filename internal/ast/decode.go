package ast

import (
	"encoding/json"
	"fmt"

	"basilisk/internal/basic"
)

// wireNode is the generic envelope every statement/expression JSON
// object decodes through first: a "kind" discriminator plus whatever
// other fields that kind needs, read lazily as raw sub-messages. This
// mirrors the discriminated-union shape the in-memory Statement/
// Expression interfaces already model (spec.md section 6's external
// AST payload uses the same kind tag the in-memory tree does).
type wireNode struct {
	Kind   string          `json:"kind"`
	Line   int             `json:"line,omitempty"`
	fields map[string]json.RawMessage
}

func (w *wireNode) UnmarshalJSON(b []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	if k, ok := m["kind"]; ok {
		_ = json.Unmarshal(k, &w.Kind)
	}
	if l, ok := m["line"]; ok {
		_ = json.Unmarshal(l, &w.Line)
	}
	w.fields = m
	return nil
}

func (w *wireNode) raw(name string) json.RawMessage {
	return w.fields[name]
}

func (w *wireNode) str(name string) string {
	var s string
	if raw := w.raw(name); raw != nil {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}

func (w *wireNode) boolean(name string) bool {
	var v bool
	if raw := w.raw(name); raw != nil {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}

func (w *wireNode) integer(name string) int {
	var v int
	if raw := w.raw(name); raw != nil {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}

func (w *wireNode) float(name string) float64 {
	var v float64
	if raw := w.raw(name); raw != nil {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}

func (w *wireNode) int64v(name string) int64 {
	var v int64
	if raw := w.raw(name); raw != nil {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}

func (w *wireNode) typeDesc(name string) basic.TypeDescriptor {
	var t basic.TypeDescriptor
	if raw := w.raw(name); raw != nil {
		_ = json.Unmarshal(raw, &t)
	}
	return t
}

func (w *wireNode) strSlice(name string) []string {
	var v []string
	if raw := w.raw(name); raw != nil {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}

func (w *wireNode) rawSlice(name string) []json.RawMessage {
	var v []json.RawMessage
	if raw := w.raw(name); raw != nil {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}

// expr decodes the named sub-field as a single Expression; nil if the
// field is absent or JSON null (e.g. ForStatement's optional Step).
func (w *wireNode) expr(name string) (Expression, error) {
	raw := w.raw(name)
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return DecodeExpression(raw)
}

func (w *wireNode) exprSlice(name string) ([]Expression, error) {
	var out []Expression
	for _, raw := range w.rawSlice(name) {
		e, err := DecodeExpression(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// DecodeStatement parses one external AST Statement node (spec.md
// section 6) into its concrete Go type, dispatching on the "kind" tag.
func DecodeStatement(raw json.RawMessage) (Statement, error) {
	var w wireNode
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	b := base{SourceLine: w.Line}

	switch w.Kind {
	case "LET":
		lhs, err := w.expr("lhs")
		if err != nil {
			return nil, err
		}
		rhs, err := w.expr("rhs")
		if err != nil {
			return nil, err
		}
		return &LetStatement{base: b, LHS: lhs, RHS: rhs}, nil

	case "PRINT":
		var items []PrintItem
		for _, raw := range w.rawSlice("items") {
			var iw wireNode
			if err := json.Unmarshal(raw, &iw); err != nil {
				return nil, err
			}
			v, err := iw.expr("value")
			if err != nil {
				return nil, err
			}
			items = append(items, PrintItem{Value: v, Sep: iw.str("sep")})
		}
		return &PrintStatement{base: b, Items: items}, nil

	case "INPUT":
		targets, err := w.exprSlice("targets")
		if err != nil {
			return nil, err
		}
		return &InputStatement{base: b, Prompt: w.str("prompt"), Targets: targets}, nil

	case "READ":
		targets, err := w.exprSlice("targets")
		if err != nil {
			return nil, err
		}
		return &ReadStatement{base: b, Targets: targets}, nil

	case "RESTORE":
		return &RestoreStatement{base: b, Label: w.str("label"), Line_: w.integer("targetLine")}, nil

	case "SLICE_ASSIGN":
		target, err := w.expr("target")
		if err != nil {
			return nil, err
		}
		from, err := w.expr("from")
		if err != nil {
			return nil, err
		}
		to, err := w.expr("to")
		if err != nil {
			return nil, err
		}
		value, err := w.expr("value")
		if err != nil {
			return nil, err
		}
		return &SliceAssignStatement{base: b, Target: target, From: from, To: to, Value: value}, nil

	case "IF":
		cond, err := w.expr("condition")
		if err != nil {
			return nil, err
		}
		return &IfStatement{base: b, Condition: cond}, nil

	case "WHILE":
		cond, err := w.expr("condition")
		if err != nil {
			return nil, err
		}
		return &WhileStatement{base: b, Condition: cond}, nil

	case "DO":
		cond, err := w.expr("condition")
		if err != nil {
			return nil, err
		}
		return &DoStatement{base: b, ConditionKind: parseDoLoopCondition(w.str("conditionKind")), Condition: cond}, nil

	case "FOR":
		initial, err := w.expr("initial")
		if err != nil {
			return nil, err
		}
		limit, err := w.expr("limit")
		if err != nil {
			return nil, err
		}
		step, err := w.expr("step")
		if err != nil {
			return nil, err
		}
		return &ForStatement{
			base:     b,
			Variable: w.str("variable"),
			VarType:  w.typeDesc("varType"),
			Initial:  initial,
			Limit:    limit,
			Step:     step,
		}, nil

	case "END":
		return &EndStatement{base: b}, nil

	case "RETURN":
		v, err := w.expr("value")
		if err != nil {
			return nil, err
		}
		return &ReturnStatement{base: b, Value: v}, nil

	case "DIM":
		decls, err := decodeDimDeclarations(w.rawSlice("decls"))
		if err != nil {
			return nil, err
		}
		return &DimStatement{base: b, Decls: decls}, nil

	case "REDIM":
		decls, err := decodeDimDeclarations(w.rawSlice("decls"))
		if err != nil {
			return nil, err
		}
		if len(decls) == 0 {
			return &ReDimStatement{base: b, Preserve: w.boolean("preserve")}, nil
		}
		return &ReDimStatement{base: b, Decl: decls[0], Preserve: w.boolean("preserve")}, nil

	case "ERASE":
		return &EraseStatement{base: b, Names: w.strSlice("names")}, nil

	case "LOCAL":
		return &LocalStatement{base: b, Name: w.str("name"), Typ: w.typeDesc("varType")}, nil

	case "CALL":
		args, err := w.exprSlice("args")
		if err != nil {
			return nil, err
		}
		return &CallStatement{base: b, Name: w.str("name"), Args: args}, nil

	case "SHARED":
		return &SharedStatement{base: b, Names: w.strSlice("names")}, nil

	case "ON_GOTO":
		sel, err := w.expr("selector")
		if err != nil {
			return nil, err
		}
		return &OnGotoStatement{base: b, Selector: sel, Targets: w.strSlice("targets")}, nil

	case "ON_GOSUB":
		sel, err := w.expr("selector")
		if err != nil {
			return nil, err
		}
		return &OnGosubStatement{base: b, Selector: sel, Targets: w.strSlice("targets")}, nil

	case "ON_CALL":
		sel, err := w.expr("selector")
		if err != nil {
			return nil, err
		}
		args, err := w.exprSlice("args")
		if err != nil {
			return nil, err
		}
		return &OnCallStatement{base: b, Selector: sel, Names: w.strSlice("names"), Args: args}, nil

	case "CASE":
		values, err := w.exprSlice("values")
		if err != nil {
			return nil, err
		}
		return &CaseClause{base: b, Values: values}, nil

	default:
		return nil, fmt.Errorf("ast: unknown statement kind %q", w.Kind)
	}
}

func decodeDimDeclarations(raws []json.RawMessage) ([]DimDeclaration, error) {
	var out []DimDeclaration
	for _, raw := range raws {
		var w wireNode
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, err
		}
		dims, err := w.exprSlice("dims")
		if err != nil {
			return nil, err
		}
		out = append(out, DimDeclaration{Name: w.str("name"), Dims: dims, Typ: w.typeDesc("varType")})
	}
	return out, nil
}

func parseDoLoopCondition(s string) DoLoopCondition {
	switch s {
	case "WHILE_PRE":
		return DoWhilePre
	case "UNTIL_PRE":
		return DoUntilPre
	case "WHILE_POST":
		return DoWhilePost
	case "UNTIL_POST":
		return DoUntilPost
	default:
		return DoConditionNone
	}
}

func parseBinaryOperator(s string) BinaryOperator {
	switch s {
	case "ADD":
		return OpAdd
	case "SUB":
		return OpSub
	case "MUL":
		return OpMul
	case "DIV":
		return OpDiv
	case "MOD":
		return OpMod
	case "EQ":
		return OpEq
	case "NEQ":
		return OpNeq
	case "LT":
		return OpLt
	case "LE":
		return OpLe
	case "GT":
		return OpGt
	case "GE":
		return OpGe
	case "AND":
		return OpAnd
	case "OR":
		return OpOr
	case "XOR":
		return OpXor
	case "CONCAT":
		return OpConcat
	default:
		return OpAdd
	}
}

func parseUnaryOperator(s string) UnaryOperator {
	switch s {
	case "NOT":
		return OpNot
	case "COERCE":
		return OpCoerce
	default:
		return OpNeg
	}
}

// DecodeExpression parses one external AST Expression node into its
// concrete Go type, dispatching on the "kind" tag.
func DecodeExpression(raw json.RawMessage) (Expression, error) {
	var w wireNode
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	eb := exprBase{Typ: w.typeDesc("type")}

	switch w.Kind {
	case "NUMBER":
		return &NumberLiteral{exprBase: eb, IntValue: w.int64v("intValue"), FloatValue: w.float("floatValue"), IsFloat: w.boolean("isFloat")}, nil

	case "STRING":
		return &StringLiteral{exprBase: eb, Value: w.str("value")}, nil

	case "VARIABLE":
		return &VariableExpression{exprBase: eb, Name: w.str("name")}, nil

	case "BINARY":
		left, err := w.expr("left")
		if err != nil {
			return nil, err
		}
		right, err := w.expr("right")
		if err != nil {
			return nil, err
		}
		return &BinaryExpression{exprBase: eb, Op: parseBinaryOperator(w.str("op")), Left: left, Right: right}, nil

	case "UNARY":
		operand, err := w.expr("operand")
		if err != nil {
			return nil, err
		}
		return &UnaryExpression{exprBase: eb, Op: parseUnaryOperator(w.str("op")), Operand: operand}, nil

	case "ARRAY_ACCESS":
		indices, err := w.exprSlice("indices")
		if err != nil {
			return nil, err
		}
		return &ArrayAccessExpression{exprBase: eb, ArrayName: w.str("arrayName"), Indices: indices}, nil

	case "MEMBER_ACCESS":
		base, err := w.expr("base")
		if err != nil {
			return nil, err
		}
		return &MemberAccessExpression{exprBase: eb, Base: base, Field: w.str("field")}, nil

	case "FUNCTION_CALL":
		args, err := w.exprSlice("args")
		if err != nil {
			return nil, err
		}
		return &FunctionCallExpression{exprBase: eb, Name: w.str("name"), Args: args}, nil

	case "IIF":
		cond, err := w.expr("condition")
		if err != nil {
			return nil, err
		}
		whenTrue, err := w.expr("whenTrue")
		if err != nil {
			return nil, err
		}
		whenFalse, err := w.expr("whenFalse")
		if err != nil {
			return nil, err
		}
		return &IIFExpression{exprBase: eb, Condition: cond, WhenTrue: whenTrue, WhenFalse: whenFalse}, nil

	case "METHOD_CALL":
		receiver, err := w.expr("receiver")
		if err != nil {
			return nil, err
		}
		args, err := w.exprSlice("args")
		if err != nil {
			return nil, err
		}
		return &MethodCallExpression{exprBase: eb, Receiver: receiver, Method: w.str("method"), Args: args}, nil

	default:
		return nil, fmt.Errorf("ast: unknown expression kind %q", w.Kind)
	}
}

// DecodeProgram parses the external Program JSON payload (spec.md
// section 6: "an in-memory Program, AST root with ordered source
// lines") into its typed statement list.
func DecodeProgram(raw []byte) (*Program, error) {
	var w struct {
		Statements []json.RawMessage `json:"statements"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	p := &Program{}
	for _, sraw := range w.Statements {
		s, err := DecodeStatement(sraw)
		if err != nil {
			return nil, err
		}
		p.Statements = append(p.Statements, s)
	}
	return p, nil
}
