// Package data models the external DATA preprocessor result (spec.md
// section 3 and section 6): every literal DATA statement in the program
// flattened, in source order, into one value stream, plus the
// label/line restore points a RESTORE statement can rewind to.
//
// No direct precedent exists for this concern (vslc targets a language
// without a DATA/READ/RESTORE facility), so this package is shaped
// directly from the external input's field list; see DESIGN.md.
package data

import (
	"encoding/json"

	"basilisk/internal/basic"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Value is one literal entry in the flattened DATA stream.
type Value struct {
	Type basic.TypeDescriptor `json:"type"`
	Str  string               `json:"str,omitempty"`  // populated when Type.Base == basic.String or basic.Unicode
	Num  float64              `json:"num,omitempty"`  // populated otherwise; integer types are exact within float64's mantissa for BASIC's ranges
}

// RestorePoint maps a RESTORE target - a line number or a label - to
// its index into Result.Values.
type RestorePoint struct {
	Label string `json:"label,omitempty"` // empty if this restore point is addressed by line number only
	Line  int    `json:"line,omitempty"`
	Index int    `json:"index"`
}

// Result is the flattened DATA segment for the whole program.
type Result struct {
	Values        []Value        `json:"values"`
	RestorePoints []RestorePoint `json:"restorePoints"`
}

// Decode parses the external DataPreprocessorResult JSON payload
// (spec.md section 6) directly: Value/RestorePoint carry no interface
// fields, so encoding/json's default struct decoding - driven by
// TypeDescriptor's own UnmarshalJSON for the Type field - is sufficient
// without a hand-rolled wire type.
func Decode(raw []byte) (*Result, error) {
	var r Result
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// IndexForLabel returns the DATA stream index a RESTORE <label> should
// rewind to, and whether label was found.
func (r *Result) IndexForLabel(label string) (int, bool) {
	for _, rp := range r.RestorePoints {
		if rp.Label == label {
			return rp.Index, true
		}
	}
	return 0, false
}

// IndexForLine returns the DATA stream index a RESTORE <line> should
// rewind to, and whether line was found.
func (r *Result) IndexForLine(line int) (int, bool) {
	for _, rp := range r.RestorePoints {
		if rp.Line == line {
			return rp.Index, true
		}
	}
	return 0, false
}
