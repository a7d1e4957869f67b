package codegen

// Fixed QBE symbol names for the runtime-state globals the Program
// Driver (C7) emits once per program (spec.md section 4.7 steps 6-7).
// These bypass the Mangler because they are backend-internal plumbing,
// not BASIC-level identifiers that could collide with user names.
const (
	gosubStackSymbol       = "$gosub_return_stack"
	gosubStackPointerSym   = "$gosub_return_sp"
	dataPointerSymbol      = "$__data_pointer"
	dataStartSymbol        = "$__data_start"
	dataEndConstSymbol     = "$__data_end_const"
	dataEntrySizeBytes     = 16 // tag word + 8-byte payload, padded to 16 for alignment
)
