package codegen

import (
	"fmt"
	"strings"

	"basilisk/internal/basic"
	"basilisk/internal/data"
	"basilisk/internal/qbe"
	"basilisk/internal/rtshim"
	"basilisk/internal/symtab"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Options configures codegen behavior the driver exposes as flags
// (spec.md section 9 open question 1's GOSUB stack depth, and the
// semantic-analysis-driven bounds check toggle of section 7).
type Options struct {
	GosubStackDepth int
	BoundsCheck     bool
}

// DefaultOptions returns the configuration the driver's command-line
// flags default to (driverconfig.BindFlags).
func DefaultOptions() Options {
	return Options{GosubStackDepth: 16, BoundsCheck: true}
}

// routineInfo tracks the handful of facts the CFG/statement emitters
// need about the routine currently being generated (spec.md section
// 4.6 "Scope discipline": current function name, loop-condition temp,
// emitted-label set - all reset at EnterRoutine).
type routineInfo struct {
	name          string
	isFunction    bool
	isMain        bool
	returnType    basic.TypeDescriptor
	returnSlot    string // address temp of the return-value stack slot, "" for SUB/main
	loopCondTemp  string // stashed by a loop header block, consumed by its terminator
	emittedLabels map[string]bool
}

// Context is the single mutable object every codegen function threads
// through. It owns no IL text directly - that is the Builder's job -
// but owns every other piece of per-routine and per-program state
// (spec.md section 5: "All state... is owned by the active generation
// context").
type Context struct {
	Builder *qbe.Builder
	Mangler *qbe.Mangler
	Shim    *rtshim.Shim
	Symbols *symtab.SymbolTable
	Data    *data.Result
	Opts    Options

	udtLayouts map[string]*qbe.UDTLayout

	// slots maps a normalized variable name to the QBE address temp (for
	// locals/params) holding its stack slot, within the current routine.
	slots map[string]string

	// arrayDescAddr maps an array name to the address of its descriptor
	// (global symbol or local stack slot), within the current routine.
	arrayDescAddr map[string]string

	cache *elementCache

	routine routineInfo
}

// -------------------
// ----- Functions -----
// -------------------

// NewContext wires a fresh Builder/Mangler/Shim together against the
// given symbol table, DATA result, and options.
func NewContext(symbols *symtab.SymbolTable, dataResult *data.Result, opts Options) *Context {
	b := qbe.NewBuilder()
	return &Context{
		Builder:       b,
		Mangler:       qbe.NewMangler(),
		Shim:          rtshim.New(b),
		Symbols:       symbols,
		Data:          dataResult,
		Opts:          opts,
		udtLayouts:    make(map[string]*qbe.UDTLayout),
		slots:         make(map[string]string),
		arrayDescAddr: make(map[string]string),
		cache:         newElementCache(),
	}
}

// ResolveUDT implements qbe.UDTResolver against the symbol table,
// memoizing flattened layouts so repeated lookups for the same type
// don't re-walk nested fields.
func (c *Context) ResolveUDT(name string) (*qbe.UDTLayout, bool) {
	if l, ok := c.udtLayouts[name]; ok {
		return l, true
	}
	sym, ok := c.Symbols.Type(name)
	if !ok {
		return nil, false
	}
	fields := make([]qbe.FieldSource, 0, len(sym.Fields))
	for _, f := range sym.Fields {
		fields = append(fields, qbe.FieldSource{Name: f.Name, Desc: f.Type})
	}
	layout, err := qbe.LayoutUDT(name, fields, false, c.ResolveUDT)
	if err != nil {
		c.Builder.EmitComment("ERROR: UDT layout for %s: %s", name, err)
		return nil, false
	}
	c.udtLayouts[name] = layout
	return layout, true
}

// NormalizeVarName implements spec.md section 4.5.1's normalized
// variable-name convention: `<baseName>_<TYPE>`, e.g. `X_DOUBLE`. The
// sigil (if any) is stripped first since the type is now explicit.
func NormalizeVarName(name string, t basic.BaseType) string {
	base := name
	if base != "" {
		switch base[len(base)-1] {
		case '%', '&', '!', '#', '$':
			base = base[:len(base)-1]
		}
	}
	return fmt.Sprintf("%s_%s", base, strings.ToUpper(t.String()))
}

// EnterRoutine resets all per-routine state and records the facts the
// terminator/loop-header logic needs for the routine now being opened.
func (c *Context) EnterRoutine(name string, isFunction, isMain bool, returnType basic.TypeDescriptor) {
	c.slots = make(map[string]string)
	c.arrayDescAddr = make(map[string]string)
	c.cache.clear()
	c.routine = routineInfo{
		name:          name,
		isFunction:    isFunction,
		isMain:        isMain,
		returnType:    returnType,
		emittedLabels: make(map[string]bool),
	}
}

// SetReturnSlot records the address of the current routine's
// return-value stack slot (FUNCTION only).
func (c *Context) SetReturnSlot(addr string) { c.routine.returnSlot = addr }

// ReturnSlot returns the current routine's return-value slot address,
// or "" if none (SUB/main).
func (c *Context) ReturnSlot() string { return c.routine.returnSlot }

// IsFunction reports whether the routine currently being generated is
// a FUNCTION (as opposed to a SUB or main).
func (c *Context) IsFunction() bool { return c.routine.isFunction }

// IsMain reports whether the routine currently being generated is the
// implicit program entry point.
func (c *Context) IsMain() bool { return c.routine.isMain }

// ReturnType is the current routine's declared return type.
func (c *Context) ReturnType() basic.TypeDescriptor { return c.routine.returnType }

// StashLoopCond records the condition temp a loop-header block computed,
// for the terminator step that follows it in the same routine.
func (c *Context) StashLoopCond(temp string) { c.routine.loopCondTemp = temp }

// TakeLoopCond returns and clears the stashed loop-condition temp.
func (c *Context) TakeLoopCond() string {
	t := c.routine.loopCondTemp
	c.routine.loopCondTemp = ""
	return t
}

// MarkLabelEmitted records that blockLabel was emitted, for the
// duplicate-label diagnostic named in spec.md section 4.6.
func (c *Context) MarkLabelEmitted(blockLabel string) bool {
	if c.routine.emittedLabels[blockLabel] {
		return false
	}
	c.routine.emittedLabels[blockLabel] = true
	return true
}

// BindSlot records addr as the stack-slot address for normalized
// variable name.
func (c *Context) BindSlot(normalizedName, addr string) {
	c.slots[normalizedName] = addr
}

// Slot returns the stack-slot address bound to normalized variable
// name, if any.
func (c *Context) Slot(normalizedName string) (string, bool) {
	a, ok := c.slots[normalizedName]
	return a, ok
}

// BindArrayDescriptor records addr as the descriptor address for array
// name.
func (c *Context) BindArrayDescriptor(name, addr string) {
	c.arrayDescAddr[name] = addr
}

// ArrayDescriptor returns the descriptor address bound to array name.
func (c *Context) ArrayDescriptor(name string) (string, bool) {
	a, ok := c.arrayDescAddr[name]
	return a, ok
}

// Cache exposes the element-base cache to the statement emitter so it
// can clear/invalidate it at statement boundaries (spec.md section
// 4.5.2, section 9 open question 4).
func (c *Context) Cache() *elementCache { return c.cache }
