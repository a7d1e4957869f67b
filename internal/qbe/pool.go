package qbe

import (
	"fmt"
	"strings"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// StringPool deduplicates string literals so each distinct value
// appears exactly once in the data section (spec.md section 3). It is
// insertion-ordered rather than map-iteration-ordered, resolving the
// open question in spec.md section 9 note 3 in favor of byte-stable
// output (section 8 testable property 5).
type StringPool struct {
	index   map[string]int
	entries []string

	// dumped marks how many entries were included in the last EmitBulk
	// call, so EmitLate only dumps the delta (spec.md section 3's
	// two-phase emission: an early bulk dump, and a late delta dump for
	// strings registered during codegen after the bulk dump ran).
	dumped int
}

// ---------------------
// ----- Constants -----
// ---------------------

const stringLabelPrefix = "str_"

// -------------------
// ----- Functions -----
// -------------------

// NewStringPool returns an empty pool.
func NewStringPool() *StringPool {
	return &StringPool{index: make(map[string]int, 64)}
}

// Register returns the pool label for value, assigning a new one in
// first-registration order if this is the first time value has been
// seen (spec.md section 8 testable property 9).
func (p *StringPool) Register(value string) string {
	if i, ok := p.index[value]; ok {
		return p.label(i)
	}
	i := len(p.entries)
	p.entries = append(p.entries, value)
	p.index[value] = i
	return p.label(i)
}

func (p *StringPool) label(i int) string {
	return fmt.Sprintf("$%s%d", stringLabelPrefix, i)
}

// Len returns the total number of distinct strings registered so far.
func (p *StringPool) Len() int {
	return len(p.entries)
}

// EmitBulk renders every string registered so far as QBE data
// definitions and marks them as dumped, so a later EmitLate call only
// renders the delta.
func (p *StringPool) EmitBulk() string {
	return p.emitRange(0, len(p.entries), true)
}

// EmitLate renders any strings registered since the last EmitBulk call
// (spec.md section 4.7 step 11: flushing error-message strings the
// emitter registered mid-codegen).
func (p *StringPool) EmitLate() string {
	return p.emitRange(p.dumped, len(p.entries), false)
}

func (p *StringPool) emitRange(from, to int, markDumped bool) string {
	var sb strings.Builder
	for i := from; i < to; i++ {
		sb.WriteString(fmt.Sprintf("data %s = { b %s, b 0 }\n", p.label(i), escapeQBEString(p.entries[i])))
	}
	if markDumped {
		p.dumped = to
	}
	return sb.String()
}

// escapeQBEString renders a Go string as a QBE byte-string literal,
// applying the escaping rules from spec.md section 4.1: printable ASCII
// passes through (with `"`,`\\` escaped); `\n`,`\r`,`\t` use their
// standard escapes; anything else outside [32,126] becomes `\xHH`.
func escapeQBEString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		default:
			if c < 32 || c > 126 {
				sb.WriteString(fmt.Sprintf(`\x%02x`, c))
			} else {
				sb.WriteByte(c)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
