package cfg

import (
	"encoding/json"

	"basilisk/internal/ast"
	"basilisk/internal/basic"
)

var edgeKindNames = [...]string{
	"FALLTHROUGH", "JUMP", "CONDITIONAL_TRUE", "CONDITIONAL_FALSE", "CALL", "RETURN", "EXCEPTION",
}

// ParseEdgeKind resolves the external wire name (spec.md section 3's
// CFGEdge.type enumeration) back into an EdgeKind, defaulting to
// EdgeJump for anything unrecognized.
func ParseEdgeKind(name string) EdgeKind {
	for i, n := range edgeKindNames {
		if n == name {
			return EdgeKind(i)
		}
	}
	return EdgeJump
}

// MarshalJSON renders an EdgeKind as its wire name.
func (k EdgeKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON parses an EdgeKind from its wire name.
func (k *EdgeKind) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	*k = ParseEdgeKind(name)
	return nil
}

// wireBlock mirrors BasicBlock's external JSON shape, with Statements
// deferred as raw messages so each can be decoded through
// ast.DecodeStatement's kind dispatch.
type wireBlock struct {
	Id           int               `json:"id"`
	Statements   []json.RawMessage `json:"statements"`
	Label        string            `json:"label"`
	IsLoopHeader bool              `json:"isLoopHeader"`
	Predecessors []int             `json:"predecessors"`
	Successors   []int             `json:"successors"`
}

type wireGraph struct {
	Blocks            []wireBlock          `json:"blocks"`
	Edges             []CFGEdge            `json:"edges"`
	EntryID           int                  `json:"entryBlock"`
	Parameters        []string             `json:"parameters"`
	GosubReturnBlocks []int                `json:"gosubReturnBlocks"`
	ReturnType        basic.TypeDescriptor `json:"returnType"`
}

// DecodeControlFlowGraph parses one routine's external CFG JSON payload
// (spec.md section 3) into a ControlFlowGraph.
func DecodeControlFlowGraph(raw []byte) (*ControlFlowGraph, error) {
	var w wireGraph
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	g := &ControlFlowGraph{
		Edges:             w.Edges,
		EntryID:           w.EntryID,
		Parameters:        w.Parameters,
		GosubReturnBlocks: make(map[int]bool, len(w.GosubReturnBlocks)),
		ReturnType:        w.ReturnType,
	}
	for _, id := range w.GosubReturnBlocks {
		g.GosubReturnBlocks[id] = true
	}
	for _, wb := range w.Blocks {
		block := BasicBlock{
			Id:           wb.Id,
			Label:        wb.Label,
			IsLoopHeader: wb.IsLoopHeader,
			Predecessors: wb.Predecessors,
			Successors:   wb.Successors,
		}
		for _, sraw := range wb.Statements {
			s, err := ast.DecodeStatement(sraw)
			if err != nil {
				return nil, err
			}
			block.Statements = append(block.Statements, s)
		}
		g.Blocks = append(g.Blocks, block)
	}
	return g, nil
}

type wireRoutine struct {
	Name string          `json:"name"`
	CFG  json.RawMessage `json:"cfg"`
}

type wireProgramCFG struct {
	MainCFG      json.RawMessage `json:"mainCFG"`
	FunctionCFGs []wireRoutine   `json:"functionCFGs"`
}

// DecodeProgramCFG parses the external ProgramCFG JSON payload (spec.md
// section 3: "the implicit main routine plus every user SUB/FUNCTION,
// in declaration order").
func DecodeProgramCFG(raw []byte) (*ProgramCFG, error) {
	var w wireProgramCFG
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	main, err := DecodeControlFlowGraph(w.MainCFG)
	if err != nil {
		return nil, err
	}
	p := &ProgramCFG{MainCFG: main}
	for _, wr := range w.FunctionCFGs {
		g, err := DecodeControlFlowGraph(wr.CFG)
		if err != nil {
			return nil, err
		}
		p.FunctionCFGs = append(p.FunctionCFGs, RoutineCFG{Name: wr.Name, CFG: g})
	}
	return p, nil
}
