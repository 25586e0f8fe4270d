// Package types answers the structural questions the peephole rules and
// cost model need about an ir.Type: triviality, loadability,
// address-only-ness, reference semantics, subclassing, and a few
// structural-introspection queries (single-stored-property structs,
// first payloaded enum case). It never mutates a Type; every query is a
// pure function.
package types

import "github.com/slowlang/silopt/ir"

// IsTrivial reports whether values of t need no retain/release/destroy.
func IsTrivial(t *ir.Type) bool {
	switch t.Kind {
	case ir.Trivial:
		return true
	case ir.Reference:
		return false
	case ir.Aggregate:
		for _, f := range t.Fields {
			if !IsTrivial(f) {
				return false
			}
		}
		return true
	case ir.EnumKind:
		for _, c := range t.Cases {
			if c.Payload != nil && !IsTrivial(c.Payload) {
				return false
			}
		}
		return true
	case ir.Address:
		return false // an address always needs no ownership itself but is never "trivial" for RC purposes
	case ir.MetatypeKind:
		return t.Repr == ir.Thin
	case ir.FunctionKind:
		return true
	default:
		return true
	}
}

// HasReferenceSemantics reports whether t is itself a single reference-
// counted pointer (as opposed to an aggregate that merely contains one).
func HasReferenceSemantics(t *ir.Type) bool {
	return t.Kind == ir.Reference
}

// IsAddressOnly reports whether t's values can never be held in a
// register — only reached indirectly through an address. Archetypes are
// conservatively address-only since their concrete layout is unknown;
// so are generic aggregates bound with an archetype anywhere inside.
func IsAddressOnly(t *ir.Type) bool {
	if t.Archetype {
		return true
	}

	switch t.Kind {
	case ir.Aggregate:
		for _, f := range t.Fields {
			if IsAddressOnly(f) {
				return true
			}
		}
		return false
	case ir.EnumKind:
		for _, c := range t.Cases {
			if c.Payload != nil && IsAddressOnly(c.Payload) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// IsLoadable is simply the negation of IsAddressOnly; kept as a distinct
// query because that is how the rule catalog reads (§4.4 refers to
// "loadable" repeatedly and never to "not address-only").
func IsLoadable(t *ir.Type) bool { return !IsAddressOnly(t) }

// HasArchetype reports whether t contains an unsubstituted generic
// parameter anywhere in its structure, which disables layout-sensitive
// rewrites.
func HasArchetype(t *ir.Type) bool {
	if t.Archetype {
		return true
	}

	switch t.Kind {
	case ir.Address, ir.MetatypeKind:
		return t.Elem != nil && HasArchetype(t.Elem)
	case ir.Aggregate:
		for _, f := range t.Fields {
			if HasArchetype(f) {
				return true
			}
		}
		return false
	case ir.EnumKind:
		for _, c := range t.Cases {
			if c.Payload != nil && HasArchetype(c.Payload) {
				return true
			}
		}
		return false
	case ir.FunctionKind:
		for _, p := range t.Params {
			if HasArchetype(p) {
				return true
			}
		}
		return t.Result != nil && HasArchetype(t.Result)
	default:
		return false
	}
}

// IsBoundGenericStruct reports whether t is a struct type instantiated
// from a generic with concrete type arguments — used by the
// unchecked_addr_cast/load fold, which must not fire between two bound
// generic structs since their sizes may differ even when both are
// "loadable, non-archetype".
func IsBoundGenericStruct(t *ir.Type) bool {
	return t.Kind == ir.Aggregate && t.Bound
}

// IsSuperclassOf reports whether super is an ancestor of (or the same
// class as) sub in the class hierarchy.
func IsSuperclassOf(super, sub *ir.ClassInfo) bool {
	for c := sub; c != nil; c = c.Superclass {
		if c == super {
			return true
		}
	}

	return false
}

// SingleStoredProperty reports whether t is a struct with exactly one
// stored property, returning its type. Used by the struct_extract fold
// through unchecked_ref_bit_cast.
func SingleStoredProperty(t *ir.Type) (*ir.Type, bool) {
	if t.Kind != ir.Aggregate || len(t.Fields) != 1 {
		return nil, false
	}

	return t.Fields[0], true
}

// FirstPayloadedCase returns the index of the first enum case (in
// declaration order) that carries a payload, and that payload's type.
func FirstPayloadedCase(t *ir.Type) (idx int, payload *ir.Type, ok bool) {
	if t.Kind != ir.EnumKind {
		return 0, nil, false
	}

	for i, c := range t.Cases {
		if c.Payload != nil {
			return i, c.Payload, true
		}
	}

	return 0, nil, false
}

// NoPayloadCase reports whether the given case index has no payload.
func NoPayloadCase(t *ir.Type, caseIdx int) bool {
	if t.Kind != ir.EnumKind || caseIdx < 0 || caseIdx >= len(t.Cases) {
		return false
	}

	return t.Cases[caseIdx].Payload == nil
}

// CasePayload returns the payload type of the given case, or nil.
func CasePayload(t *ir.Type, caseIdx int) *ir.Type {
	if t.Kind != ir.EnumKind || caseIdx < 0 || caseIdx >= len(t.Cases) {
		return nil
	}

	return t.Cases[caseIdx].Payload
}

// EnumHasNoPayloadAnywhere reports whether none of the enum's cases carry
// a payload — used by the retain/release-of-enum rule.
func EnumHasNoPayloadAnywhere(t *ir.Type) bool {
	if t.Kind != ir.EnumKind {
		return false
	}

	for _, c := range t.Cases {
		if c.Payload != nil {
			return false
		}
	}

	return true
}

// Tristate is the oracle's answer to a question it may not always be
// able to decide — mirrors the source's IsNot/Is/CanBe and
// Known/KnownNonZero/Unknown answers (§4.4, §7 "Oracle uncertainty").
type Tristate int

const (
	Unknown Tristate = iota
	Yes
	No
)

// CanBeClass answers the canBeClass<T> builtin: No when t provably can
// never be a class instance (e.g. it's Trivial), Yes when it provably
// always is (a Reference type with a known class), Unknown otherwise
// (an archetype that might or might not be bound to a class).
func CanBeClass(t *ir.Type) Tristate {
	switch t.Kind {
	case ir.Reference:
		return Yes
	case ir.Trivial, ir.Aggregate, ir.EnumKind, ir.Address, ir.FunctionKind:
		if t.Archetype {
			return Unknown
		}
		return No
	default:
		return Unknown
	}
}

// ZeroNess answers whether a value is known to be a compile-time zero, a
// compile-time known-non-zero, or genuinely unknown; used by the
// icmp_eq/icmp_ne fold.
func ZeroNess(v *ir.Value) Tristate {
	if v.Def == nil {
		return Unknown
	}

	switch x := v.Def.Op.(type) {
	case *ir.IntegerLiteral:
		if x.Value == 0 {
			return Yes
		}
		return No
	default:
		return Unknown
	}
}
