// Package match provides compositional pattern matchers over operand
// trees, used by the peephole rules to recognize multi-instruction
// idioms (e.g. upcast(upcast x), apply(partial_apply f, args)) without
// hand-rolled chains of type assertions at every call site.
//
// A Matcher is a pure predicate: on success it may populate Captures,
// on failure it must leave previously-bound captures alone and every
// matcher must be safe to retry (§4.1 "restart-safe").
package match

import "github.com/slowlang/silopt/ir"

type (
	Matcher func(v *ir.Value, c *Captures) bool

	// Captures holds the bindings a successful match produced, in the
	// fixed order the matcher tree declares them.
	Captures struct {
		names  []string
		values []*ir.Value
	}
)

func (c *Captures) bind(name string, v *ir.Value) {
	for i, n := range c.names {
		if n == name {
			c.values[i] = v
			return
		}
	}

	c.names = append(c.names, name)
	c.values = append(c.values, v)
}

// Get returns the value bound to name, or nil if the match never bound
// it (a failed match leaves this undefined per the package contract —
// callers must only call Get after a successful top-level match).
func (c *Captures) Get(name string) *ir.Value {
	for i, n := range c.names {
		if n == name {
			return c.values[i]
		}
	}

	return nil
}

// Match runs m against v with a fresh capture set, returning the
// captures only on success.
func Match(m Matcher, v *ir.Value) (*Captures, bool) {
	c := &Captures{}

	if !m(v, c) {
		return nil, false
	}

	return c, true
}

// Any matches any value, including nil, binding nothing.
func Any() Matcher {
	return func(v *ir.Value, c *Captures) bool { return true }
}

// Capture wraps m, binding v to name whenever m succeeds.
func Capture(name string, m Matcher) Matcher {
	return func(v *ir.Value, c *Captures) bool {
		if !m(v, c) {
			return false
		}

		c.bind(name, v)

		return true
	}
}

// Specific matches only the identical value.
func Specific(target *ir.Value) Matcher {
	return func(v *ir.Value, c *Captures) bool { return v == target }
}

func ConstInt(k int64) Matcher {
	return func(v *ir.Value, c *Captures) bool {
		lit, ok := literal(v)
		return ok && lit.Value == k
	}
}

func ConstOne() Matcher { return ConstInt(1) }

func ConstZero() Matcher { return ConstInt(0) }

func literal(v *ir.Value) (*ir.IntegerLiteral, bool) {
	if v == nil || v.Def == nil {
		return nil, false
	}

	lit, ok := v.Def.Op.(*ir.IntegerLiteral)

	return lit, ok
}

// ApplyOf matches a builtin call of the given kind whose arguments match
// subs positionally (subs may be shorter than the actual argument list;
// only the given prefix is checked).
func ApplyOf(kind ir.BuiltinKind, subs ...Matcher) Matcher {
	return func(v *ir.Value, c *Captures) bool {
		if v == nil || v.Def == nil {
			return false
		}

		b, ok := v.Def.Op.(*ir.Builtin)
		if !ok || b.Kind != kind {
			return false
		}

		if len(subs) > len(b.Args) {
			return false
		}

		for i, sm := range subs {
			if !sm(b.Args[i], c) {
				return false
			}
		}

		return true
	}
}

// InstKindOf matches when v is produced by an instruction whose Op
// pointer type-asserts to *T, and whose operands match subs positionally
// (all of them, in order — unlike ApplyOf, since most opcodes have a
// small fixed arity the rules always fully specify).
func InstKindOf[T ir.Op](subs ...Matcher) Matcher {
	return func(v *ir.Value, c *Captures) bool {
		if v == nil || v.Def == nil {
			return false
		}

		op, ok := v.Def.Op.(T)
		if !ok {
			return false
		}

		operands := op.Operands()
		if len(operands) != len(subs) {
			return false
		}

		for i, sm := range subs {
			if !sm(operands[i], c) {
				return false
			}
		}

		return true
	}
}

// TupleExtract matches a tuple_extract at the given index whose operand
// matches sub.
func TupleExtract(sub Matcher, index int) Matcher {
	return func(v *ir.Value, c *Captures) bool {
		if v == nil || v.Def == nil {
			return false
		}

		te, ok := v.Def.Op.(*ir.TupleExtract)
		if !ok || te.Index != index {
			return false
		}

		return sub(te.X, c)
	}
}

// IndexRawPointer matches an index_raw_pointer whose base and index
// operands match baseM and indexM.
func IndexRawPointer(baseM, indexM Matcher) Matcher {
	return func(v *ir.Value, c *Captures) bool {
		if v == nil || v.Def == nil {
			return false
		}

		irp, ok := v.Def.Op.(*ir.IndexRawPointer)
		if !ok {
			return false
		}

		return baseM(irp.L, c) && indexM(irp.R, c)
	}
}

// Or tries each alternative in order, short-circuiting captures from a
// failed alternative by running each against its own scratch Captures
// then merging only the winner's bindings in.
func Or(ms ...Matcher) Matcher {
	return func(v *ir.Value, c *Captures) bool {
		for _, m := range ms {
			scratch := &Captures{}
			if m(v, scratch) {
				c.names = append(c.names, scratch.names...)
				c.values = append(c.values, scratch.values...)
				return true
			}
		}

		return false
	}
}
