// Package invariant holds the fatal-assertion helper for the "internal
// invariant violation" error class of §7: replacing a value with one of
// a different type, erasing an instruction with live uses, mismatched
// block-parameter arity while cloning. These never recover; they abort
// with a diagnostic the way the source treats a malformed SIL module.
package invariant

import "fmt"

// Assertf panics with a formatted message if cond is false. It is not a
// substitute for the recoverable error paths in package combine/inline —
// those return "declined" or "false", never panic.
func Assertf(cond bool, format string, args ...any) {
	if cond {
		return
	}

	panic(fmt.Sprintf("invariant violated: "+format, args...))
}
