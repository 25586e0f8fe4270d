package combine

import (
	"github.com/slowlang/silopt/ir"
	"github.com/slowlang/silopt/types"
)

func init() {
	Register(ir.OpRetainValue, foldRetainValue)
	Register(ir.OpReleaseValue, foldReleaseValue)
	Register(ir.OpStrongRetain, foldStrongRetain)
	Register(ir.OpStrongRelease, foldStrongRelease)
}

// retain_value of a trivial-type operand does nothing and is erased.
// retain_value of a reference-semantics operand is reissued as
// strong_retain. retain_value of an enum with no payload anywhere is
// erased; an enum with exactly one payloaded case forwards to a retain
// of the extracted payload.
func foldRetainValue(c *Combiner, inst *ir.Instruction) Result {
	rv := inst.Op.(*ir.RetainValue)

	if prevRel, ok := adjacentPriorReleaseValue(inst, rv.X); ok {
		touched := []*ir.Value{rv.X}
		ir.EraseInst(inst)
		ir.EraseInst(prevRel)
		return Handled(touched...)
	}

	t := rv.X.Type

	if types.IsTrivial(t) {
		ir.EraseInst(inst)
		return Handled(rv.X)
	}

	if types.HasReferenceSemantics(t) {
		c.B.SetInsertionPoint(inst.Block, inst)
		c.B.CreateStrongRetain(inst.Loc, inst.Scope, rv.X)
		ir.EraseInst(inst)
		return Handled(rv.X)
	}

	if types.EnumHasNoPayloadAnywhere(t) {
		ir.EraseInst(inst)
		return Handled(rv.X)
	}

	if idx, payload, ok := singlePayloadedCase(t); ok {
		c.B.SetInsertionPoint(inst.Block, inst)
		extracted := c.B.CreateUncheckedEnumData(inst.Loc, inst.Scope, rv.X, idx, payload).ResultValue()
		c.B.CreateRetainValue(inst.Loc, inst.Scope, extracted)
		ir.EraseInst(inst)
		return Handled(rv.X, extracted)
	}

	return NoChange()
}

// singlePayloadedCase reports whether enum type t has exactly one case
// that carries a payload, returning its index and payload type.
func singlePayloadedCase(t *ir.Type) (idx int, payload *ir.Type, ok bool) {
	if t.Kind != ir.EnumKind {
		return 0, nil, false
	}

	found := -1

	for i, c := range t.Cases {
		if c.Payload != nil {
			if found >= 0 {
				return 0, nil, false
			}
			found = i
		}
	}

	if found < 0 {
		return 0, nil, false
	}

	return found, types.CasePayload(t, found), true
}

func foldReleaseValue(c *Combiner, inst *ir.Instruction) Result {
	rv := inst.Op.(*ir.ReleaseValue)
	t := rv.X.Type

	if types.IsTrivial(t) {
		ir.EraseInst(inst)
		return Handled(rv.X)
	}

	if types.HasReferenceSemantics(t) {
		c.B.SetInsertionPoint(inst.Block, inst)
		c.B.CreateStrongRelease(inst.Loc, inst.Scope, rv.X)
		ir.EraseInst(inst)
		return Handled(rv.X)
	}

	if types.EnumHasNoPayloadAnywhere(t) {
		ir.EraseInst(inst)
		return Handled(rv.X)
	}

	if idx, payload, ok := singlePayloadedCase(t); ok {
		c.B.SetInsertionPoint(inst.Block, inst)
		extracted := c.B.CreateUncheckedEnumData(inst.Loc, inst.Scope, rv.X, idx, payload).ResultValue()
		c.B.CreateReleaseValue(inst.Loc, inst.Scope, extracted)
		ir.EraseInst(inst)
		return Handled(rv.X, extracted)
	}

	return NoChange()
}

// strong_retain of a thin_to_thick_function or an objCToThickMetatype
// conversion result is erased outright: functions and metatypes carry no
// refcount of their own, so retaining the converted value is a no-op.
//
// Adjacent-pair elimination: a strong_release immediately followed by a
// strong_retain of the same value in the same block, with nothing in
// between able to observe the intervening refcount drop, cancels out.
// The rule fires on the retain and looks back at the preceding release.
func foldStrongRetain(c *Combiner, inst *ir.Instruction) Result {
	sr := inst.Op.(*ir.StrongRetain)

	if isNonRefcountedConversion(sr.X) {
		ir.EraseInst(inst)
		return Handled(sr.X)
	}

	idx := inst.Block.Index(inst)
	if idx <= 0 {
		return NoChange()
	}

	prev := inst.Block.Insts[idx-1]

	rel, ok := prev.Op.(*ir.StrongRelease)
	if !ok || rel.X != sr.X {
		return NoChange()
	}

	touched := []*ir.Value{sr.X}

	ir.EraseInst(inst)
	ir.EraseInst(prev)

	return Handled(touched...)
}

// strong_release of a thin_to_thick_function or an objCToThickMetatype
// conversion result is erased outright, mirroring foldStrongRetain.
func foldStrongRelease(c *Combiner, inst *ir.Instruction) Result {
	sr := inst.Op.(*ir.StrongRelease)

	if isNonRefcountedConversion(sr.X) {
		ir.EraseInst(inst)
		return Handled(sr.X)
	}

	return NoChange()
}

// adjacentPriorReleaseValue reports whether the instruction immediately
// preceding inst in the same block is a release_value of x.
func adjacentPriorReleaseValue(inst *ir.Instruction, x *ir.Value) (*ir.Instruction, bool) {
	idx := inst.Block.Index(inst)
	if idx <= 0 {
		return nil, false
	}

	prev := inst.Block.Insts[idx-1]

	rel, ok := prev.Op.(*ir.ReleaseValue)
	if !ok || rel.X != x {
		return nil, false
	}

	return prev, true
}

// isNonRefcountedConversion reports whether v is produced by a
// conversion whose result carries no independent refcount of its own:
// a thin function pointer promoted to a thick closure with no context,
// or an ObjC metatype reinterpreted as a thick metatype object.
func isNonRefcountedConversion(v *ir.Value) bool {
	if v.Def == nil {
		return false
	}
	switch v.Def.Op.(type) {
	case *ir.ThinToThickFunction, *ir.ObjCToThickMetatype:
		return true
	}
	return false
}
