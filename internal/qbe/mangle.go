package qbe

import (
	"fmt"
	"strings"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Mangler implements the Name Mangler (C3): it turns BASIC identifiers
// into QBE identifiers, tracks per-routine SHARED/parameter scope, and
// caches name assignments so a given BASIC name never maps to two
// different QBE symbols within one run (spec.md section 4.3, section 8
// testable property 8).
//
// Mangler is not safe for concurrent use; spec.md section 5 makes the
// whole core single-threaded, so no locking is carried from
// vslc/src/util/label.go's channel-based label generator.
type Mangler struct {
	cache map[manglerKey]string

	currentFunction string
	params          map[string]bool
	shared          map[string]bool
}

type manglerKey struct {
	global bool
	name   string
}

// ---------------------
// ----- Constants -----
// ---------------------

// sigilSuffix maps BASIC type sigils to their mangled suffix, per
// spec.md section 4.3.
var sigilSuffix = map[byte]string{
	'%': "_int",
	'&': "_lng",
	'!': "_sng",
	'#': "_dbl",
	'$': "_str",
}

// reservedWords is the fixed table of QBE instruction/type keywords that
// trigger a `_` prefix on collision (spec.md section 4.3). It is not
// exhaustive of every QBE keyword ever introduced, but covers the
// instruction/type vocabulary spec.md section 6 names.
var reservedWords = map[string]bool{
	"w": true, "l": true, "s": true, "d": true, "b": true, "h": true,
	"add": true, "sub": true, "mul": true, "div": true, "rem": true,
	"and": true, "or": true, "xor": true, "sar": true, "shr": true, "shl": true,
	"neg": true, "load": true, "loadw": true, "loadl": true, "loads": true, "loadd": true,
	"store": true, "storew": true, "storel": true, "stores": true, "stored": true,
	"alloc4": true, "alloc8": true, "alloc16": true,
	"jmp": true, "jnz": true, "ret": true, "call": true, "phi": true,
	"copy": true, "export": true, "function": true, "data": true, "type": true,
	"align": true, "section": true, "env": true, "vararg": true, "vastart": true, "vaarg": true,
	"extsw": true, "extuw": true, "extsh": true, "extuh": true, "extsb": true, "extub": true,
	"exts": true, "truncd": true, "stosi": true, "dtosi": true, "swtof": true, "sltof": true,
}

// -------------------
// ----- Functions -----
// -------------------

// NewMangler returns an empty Mangler ready to enter a function scope.
func NewMangler() *Mangler {
	return &Mangler{cache: make(map[manglerKey]string, 64)}
}

// sanitize turns any character outside [A-Za-z0-9_] into `_`, prefixes a
// leading digit with `_`, and falls back to `_unnamed` for an empty
// result (spec.md section 4.3).
func sanitize(s string) string {
	if s == "" {
		return "_unnamed"
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_':
			sb.WriteByte(c)
		default:
			sb.WriteByte('_')
		}
	}
	out := sb.String()
	if out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	if out == "" {
		out = "_unnamed"
	}
	return out
}

// splitSigil strips a trailing BASIC type sigil from name and returns
// the base identifier plus the mangled suffix to append (empty if name
// carries no recognized sigil).
func splitSigil(name string) (base, suffix string) {
	if name == "" {
		return name, ""
	}
	last := name[len(name)-1]
	if sfx, ok := sigilSuffix[last]; ok {
		return name[:len(name)-1], sfx
	}
	return name, ""
}

// escapeReserved prefixes ident with `_` if it collides with a QBE
// reserved word.
func escapeReserved(ident string) string {
	if reservedWords[strings.ToLower(ident)] {
		return "_" + ident
	}
	return ident
}

// mangleBase applies sigil-splitting, sanitization, and reserved-word
// escaping common to every kind of mangled identifier.
func mangleBase(name string) string {
	base, suffix := splitSigil(name)
	san := sanitize(base)
	san = escapeReserved(san)
	return san + suffix
}

// Global mangles a global variable name into its `$var_`-prefixed QBE
// symbol, caching the assignment so repeat calls for the same name are
// stable within this run.
func (m *Mangler) Global(name string) string {
	return m.cached(true, name, "$var_"+mangleBase(name))
}

// Local mangles a local/parameter variable name into its `%var_`-prefixed
// QBE symbol.
func (m *Mangler) Local(name string) string {
	return m.cached(false, name, "%var_"+mangleBase(name))
}

// ArrayGlobal mangles a global array's data symbol.
func (m *Mangler) ArrayGlobal(name string) string {
	return m.cached(true, "arr:"+name, "$arr_"+mangleBase(name))
}

// ArrayLocal mangles a local array's data symbol.
func (m *Mangler) ArrayLocal(name string) string {
	return m.cached(false, "arr:"+name, "%arr_"+mangleBase(name))
}

// ArrayDescriptorGlobal mangles a global array's descriptor symbol
// (base pointer + dimension metadata, spec.md section 4.5.2).
func (m *Mangler) ArrayDescriptorGlobal(name string) string {
	return m.cached(true, "arrdesc:"+name, "$arr_desc_"+mangleBase(name))
}

// Sub mangles a SUB name into its `$sub_`-prefixed QBE function symbol.
func (m *Mangler) Sub(name string) string {
	return m.cached(true, "sub:"+name, "$sub_"+mangleBase(name))
}

// Function mangles a FUNCTION name into its `$func_`-prefixed QBE
// function symbol.
func (m *Mangler) Function(name string) string {
	return m.cached(true, "func:"+name, "$func_"+mangleBase(name))
}

// DefFn mangles a DEF FN name into its `$deffn_`-prefixed QBE symbol.
func (m *Mangler) DefFn(name string) string {
	return m.cached(true, "deffn:"+name, "$deffn_"+mangleBase(name))
}

// cached looks up or assigns the mangled name for (global, logical key),
// guaranteeing (spec.md section 8 property 8) that two distinct BASIC
// names never collide to the same QBE symbol within this run: if a
// second distinct key would mangle to an already-taken symbol, a
// numeric disambiguator is appended.
func (m *Mangler) cached(global bool, key, proposed string) string {
	k := manglerKey{global: global, name: key}
	if existing, ok := m.cache[k]; ok {
		return existing
	}
	name := proposed
	if m.taken(name, k) {
		for i := 2; ; i++ {
			candidate := fmt.Sprintf("%s_%d", proposed, i)
			if !m.taken(candidate, k) {
				name = candidate
				break
			}
		}
	}
	m.cache[k] = name
	return name
}

// taken reports whether name is already assigned to a different key.
func (m *Mangler) taken(name string, self manglerKey) bool {
	for k, v := range m.cache {
		if k != self && v == name {
			return true
		}
	}
	return false
}

// Label mangles a BASIC GOTO/GOSUB target label: purely numeric labels
// become `line_<digits>`, anything else becomes `label_<sanitized>`.
func Label(name string) string {
	if name == "" {
		return "label__unnamed"
	}
	allDigits := true
	for i := 0; i < len(name); i++ {
		if name[i] < '0' || name[i] > '9' {
			allDigits = false
			break
		}
	}
	if allDigits {
		return "line_" + name
	}
	return "label_" + sanitize(name)
}

// BlockLabel returns the QBE block label for a CFG BasicBlock id.
func BlockLabel(id int) string {
	return fmt.Sprintf("block_%d", id)
}

// EnterFunctionScope records the current routine name and its ordered
// parameter list, and clears the SHARED set, per spec.md section 4.3.
// Callers MUST pair this with ExitFunctionScope via a scope guard (see
// internal/codegen.FunctionScope) so every exit path - including error
// paths - pops the scope.
func (m *Mangler) EnterFunctionScope(name string, params []string) {
	m.currentFunction = name
	m.params = make(map[string]bool, len(params))
	for _, p := range params {
		m.params[p] = true
	}
	m.shared = make(map[string]bool)
}

// AddSharedVariable extends the current function scope's SHARED set.
func (m *Mangler) AddSharedVariable(name string) {
	if m.shared == nil {
		m.shared = make(map[string]bool)
	}
	m.shared[name] = true
}

// IsParam reports whether name is a parameter of the current function scope.
func (m *Mangler) IsParam(name string) bool {
	return m.params != nil && m.params[name]
}

// IsShared reports whether name was declared SHARED in the current function scope.
func (m *Mangler) IsShared(name string) bool {
	return m.shared != nil && m.shared[name]
}

// CurrentFunction returns the name of the function scope currently entered.
func (m *Mangler) CurrentFunction() string {
	return m.currentFunction
}

// ExitFunctionScope clears the current function name, parameter set, and
// SHARED set.
func (m *Mangler) ExitFunctionScope() {
	m.currentFunction = ""
	m.params = nil
	m.shared = nil
}
