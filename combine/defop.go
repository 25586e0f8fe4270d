package combine

import "github.com/slowlang/silopt/ir"

// defOp reports whether v is the result of an instruction — not a block
// parameter, which has a nil Def (see ir.Value.IsBlockParam) — whose Op
// has concrete type T. Every rule that peeks through an operand's
// producer goes through this instead of asserting on v.Def.Op directly,
// since a block parameter (a function argument, a phi join) is
// perfectly valid IR and must not panic a rule that doesn't expect one.
func defOp[T ir.Op](v *ir.Value) (T, bool) {
	var zero T

	if v == nil || v.Def == nil {
		return zero, false
	}

	op, ok := v.Def.Op.(T)

	return op, ok
}
