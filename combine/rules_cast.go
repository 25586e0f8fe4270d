package combine

import (
	"github.com/slowlang/silopt/ir"
	"github.com/slowlang/silopt/match"
	"github.com/slowlang/silopt/types"
)

func init() {
	Register(ir.OpUpcast, foldUpcast)
	Register(ir.OpUncheckedRefCast, foldUncheckedRefCast)
	Register(ir.OpUncheckedAddrCast, foldUncheckedAddrCast)
	Register(ir.OpUncheckedTrivialBitCast, foldUncheckedTrivialBitCast)
	Register(ir.OpUncheckedRefBitCast, foldUncheckedRefBitCast)
	Register(ir.OpRefToRawPointer, foldRefToRawPointer)
	Register(ir.OpRawPointerToRef, foldRawPointerToRef)
	Register(ir.OpPointerToAddress, foldPointerToAddress)
	Register(ir.OpThickToObjCMetatype, foldThickToObjCMetatype)
	Register(ir.OpObjCToThickMetatype, foldObjCToThickMetatype)
	Register(ir.OpUnconditionalCheckedCast, foldUnconditionalCheckedCast)
}

// upcast(upcast x) -> upcast(x) with the outer target type.
func foldUpcast(c *Combiner, inst *ir.Instruction) Result {
	up := inst.Op.(*ir.Upcast)

	m := match.InstKindOf[*ir.Upcast](match.Capture("x", match.Any()))
	cap, ok := match.Match(m, up.X)
	if !ok {
		return NoChange()
	}

	nv := c.B.CreateUpcast(inst.Loc, inst.Scope, cap.Get("x"), inst.ResultValue().Type).ResultValue()

	return ReplaceWith(nv)
}

// uncheckedRefCast(uncheckedRefCast x) -> uncheckedRefCast(x).
// uncheckedRefCast(upcast x) -> uncheckedRefCast(x).
// uncheckedRefCast x : A->B where A subclass of B -> upcast.
func foldUncheckedRefCast(c *Combiner, inst *ir.Instruction) Result {
	rc := inst.Op.(*ir.UncheckedRefCast)
	target := inst.ResultValue().Type

	if inner, ok := defOp[*ir.UncheckedRefCast](rc.X); ok {
		nv := c.B.CreateUncheckedRefCast(inst.Loc, inst.Scope, inner.X, target).ResultValue()
		return ReplaceWith(nv)
	}

	if inner, ok := defOp[*ir.Upcast](rc.X); ok {
		nv := c.B.CreateUncheckedRefCast(inst.Loc, inst.Scope, inner.X, target).ResultValue()
		return ReplaceWith(nv)
	}

	src := rc.X.Type
	if src.Kind == ir.Reference && target.Kind == ir.Reference && src.Class != nil && target.Class != nil {
		if types.IsSuperclassOf(target.Class, src.Class) && src.Class != target.Class {
			nv := c.B.CreateUpcast(inst.Loc, inst.Scope, rc.X, target).ResultValue()
			return ReplaceWith(nv)
		}
	}

	return NoChange()
}

// uncheckedAddrCast(uncheckedAddrCast x) -> collapse.
// uncheckedAddrCast cls->super where subclass relation holds -> upcast.
func foldUncheckedAddrCast(c *Combiner, inst *ir.Instruction) Result {
	ac := inst.Op.(*ir.UncheckedAddrCast)
	target := inst.ResultValue().Type

	if inner, ok := defOp[*ir.UncheckedAddrCast](ac.X); ok {
		nv := c.B.CreateUncheckedAddrCast(inst.Loc, inst.Scope, inner.X, target).ResultValue()
		return ReplaceWith(nv)
	}

	src := ac.X.Type
	if src.Kind == ir.Address && target.Kind == ir.Address &&
		src.Elem.Kind == ir.Reference && target.Elem.Kind == ir.Reference &&
		src.Elem.Class != nil && target.Elem.Class != nil {
		if types.IsSuperclassOf(target.Elem.Class, src.Elem.Class) && src.Elem.Class != target.Elem.Class {
			nv := c.B.CreateUpcast(inst.Loc, inst.Scope, ac.X, target).ResultValue()
			return ReplaceWith(nv)
		}
	}

	return foldUncheckedAddrCastLoadsOnly(c, inst, ac)
}

// A uncheckedAddrCast whose only users are loads is sunk past those
// loads: each load loads through the pre-cast address instead, and the
// cast moves to the loaded value. Refused when the cast crosses
// trivial<->reference semantics, when either side is address-only, or
// when both sides are bound generic structs — their sizes can differ
// even though both are "loadable, non-archetype" (§4.4).
func foldUncheckedAddrCastLoadsOnly(c *Combiner, inst *ir.Instruction, ac *ir.UncheckedAddrCast) Result {
	result := inst.ResultValue()
	if result == nil || !result.HasUses() {
		return NoChange()
	}

	for _, u := range result.Uses() {
		if _, ok := u.User.Op.(*ir.Load); !ok {
			return NoChange()
		}
	}

	srcElem := ac.X.Type.Elem
	targetElem := result.Type.Elem

	if types.IsTrivial(srcElem) != types.IsTrivial(targetElem) {
		return NoChange()
	}
	if types.HasReferenceSemantics(srcElem) != types.HasReferenceSemantics(targetElem) {
		return NoChange()
	}
	if types.IsAddressOnly(srcElem) || types.IsAddressOnly(targetElem) {
		return NoChange()
	}
	if types.IsBoundGenericStruct(srcElem) && types.IsBoundGenericStruct(targetElem) {
		return NoChange()
	}
	touched := []*ir.Value{ac.X}

	for _, u := range append([]*ir.Use{}, result.Uses()...) {
		ld := u.User

		c.B.SetInsertionPoint(ld.Block, ld)
		srcLoad := c.B.CreateLoad(ld.Loc, ld.Scope, ac.X).ResultValue()

		var cast *ir.Value
		if targetElem.Kind == ir.Reference {
			cast = c.B.CreateUncheckedRefBitCast(ld.Loc, ld.Scope, srcLoad, targetElem).ResultValue()
		} else {
			cast = c.B.CreateUncheckedTrivialBitCast(ld.Loc, ld.Scope, srcLoad, targetElem).ResultValue()
		}

		ir.ReplaceAllUsesWith(ld.ResultValue(), cast)
		ir.EraseInst(ld)

		touched = append(touched, srcLoad, cast)
	}

	ir.EraseInst(inst)

	return Handled(touched...)
}

// uncheckedTrivialBitCast(uncheckedTrivialBitCast x) -> collapse.
// uncheckedTrivialBitCast(uncheckedRefBitCast x) -> collapse.
func foldUncheckedTrivialBitCast(c *Combiner, inst *ir.Instruction) Result {
	tc := inst.Op.(*ir.UncheckedTrivialBitCast)
	target := inst.ResultValue().Type

	if tc.X.Def != nil {
		switch inner := tc.X.Def.Op.(type) {
		case *ir.UncheckedTrivialBitCast:
			return ReplaceWith(c.B.CreateUncheckedTrivialBitCast(inst.Loc, inst.Scope, inner.X, target).ResultValue())
		case *ir.UncheckedRefBitCast:
			return ReplaceWith(c.B.CreateUncheckedTrivialBitCast(inst.Loc, inst.Scope, inner.X, target).ResultValue())
		}
	}

	return NoChange()
}

// uncheckedRefBitCast(uncheckedRefBitCast x) -> collapse.
func foldUncheckedRefBitCast(c *Combiner, inst *ir.Instruction) Result {
	rc := inst.Op.(*ir.UncheckedRefBitCast)
	target := inst.ResultValue().Type

	if inner, ok := defOp[*ir.UncheckedRefBitCast](rc.X); ok {
		return ReplaceWith(c.B.CreateUncheckedRefBitCast(inst.Loc, inst.Scope, inner.X, target).ResultValue())
	}

	return NoChange()
}

// refToRawPointer(uncheckedRefCast x) -> redirect operand to x.
func foldRefToRawPointer(c *Combiner, inst *ir.Instruction) Result {
	rp := inst.Op.(*ir.RefToRawPointer)

	inner, ok := defOp[*ir.UncheckedRefCast](rp.X)
	if !ok {
		return NoChange()
	}

	inst.SetOperand(0, inner.X)

	return Handled(inst.ResultValue(), inner.X)
}

// rawPointerToRef(refToRawPointer x) -> uncheckedRefCast.
func foldRawPointerToRef(c *Combiner, inst *ir.Instruction) Result {
	rr := inst.Op.(*ir.RawPointerToRef)

	inner, ok := defOp[*ir.RefToRawPointer](rr.X)
	if !ok {
		return NoChange()
	}

	target := inst.ResultValue().Type
	nv := c.B.CreateUncheckedRefCast(inst.Loc, inst.Scope, inner.X, target).ResultValue()

	return ReplaceWith(nv)
}

// pointerToAddress(addressToPointer x) -> uncheckedAddrCast.
//
// pointerToAddress(indexRawPointer(p, tupleExtract(smulOver(distance,
// strideof(T)), 0)), T*) -> indexAddr(pointerToAddress(p, T*), distance),
// gated on the strideof/strideof_nonzero metatype's instance type
// matching the cast's target element type. index_raw_pointer indexes by
// bytes while index_addr indexes by elements, so only this exact
// distance*strideof(T) shape carries the same offset through — passing
// an arbitrary raw byte index straight through as an element distance is
// a miscompile.
func foldPointerToAddress(c *Combiner, inst *ir.Instruction) Result {
	pa := inst.Op.(*ir.PointerToAddress)
	target := inst.ResultValue().Type

	if inner, ok := defOp[*ir.AddressToPointer](pa.X); ok {
		nv := c.B.CreateUncheckedAddrCast(inst.Loc, inst.Scope, inner.X, target).ResultValue()
		return ReplaceWith(nv)
	}

	idx, ok := defOp[*ir.IndexRawPointer](pa.X)
	if !ok {
		return NoChange()
	}

	distance, ok := stridedDistance(idx.R, target)
	if !ok {
		return NoChange()
	}

	c.B.SetInsertionPoint(inst.Block, inst)
	base := c.B.CreatePointerToAddress(inst.Loc, inst.Scope, idx.L, target).ResultValue()
	nv := c.B.CreateIndexAddr(inst.Loc, inst.Scope, base, distance, target).ResultValue()

	return ReplaceWith(nv)
}

// stridedDistance matches n against tupleExtract(smulOver(distance,
// strideof(T)|strideof_nonzero(T)), 0), returning distance when T's
// metatype instance type equals target's pointee type.
// foldSMulOverOperandOrder always normalizes strideof to the right
// operand before this rule ever sees the multiplication, so only that
// operand order needs matching here.
func stridedDistance(n *ir.Value, target *ir.Type) (*ir.Value, bool) {
	strideMatch := match.Or(
		match.ApplyOf(ir.BuiltinStrideOf, match.Capture("meta", match.Any())),
		match.ApplyOf(ir.BuiltinStrideOfNZ, match.Capture("meta", match.Any())),
	)

	m := match.TupleExtract(
		match.ApplyOf(ir.BuiltinSMulOver, match.Capture("distance", match.Any()), strideMatch),
		0,
	)

	caps, ok := match.Match(m, n)
	if !ok {
		return nil, false
	}

	meta, ok := defOp[*ir.Metatype](caps.Get("meta"))
	if !ok || target.Elem == nil || !meta.InstanceType.Equal(target.Elem) {
		return nil, false
	}

	return caps.Get("distance"), true
}

// unconditional_checked_cast is only folded under StripChecks, where it
// degrades to the cheaper unchecked form since the surrounding build has
// already decided to trust that the cast succeeds.
func foldUnconditionalCheckedCast(c *Combiner, inst *ir.Instruction) Result {
	uc := inst.Op.(*ir.UnconditionalCheckedCast)

	if !c.StripChecks {
		return NoChange()
	}

	target := inst.ResultValue().Type

	switch {
	case target.Kind == ir.Reference:
		return ReplaceWith(c.B.CreateUncheckedRefCast(inst.Loc, inst.Scope, uc.X, target).ResultValue())
	case target.Kind == ir.Address:
		return ReplaceWith(c.B.CreateUncheckedAddrCast(inst.Loc, inst.Scope, uc.X, target).ResultValue())
	default:
		return ReplaceWith(c.B.CreateUncheckedTrivialBitCast(inst.Loc, inst.Scope, uc.X, target).ResultValue())
	}
}

// thickToObjCMetatype / objCToThickMetatype over a same-kind metatype
// producer reissues the producer with the new representation, provided
// the source representation matches the conversion's expected source.
func foldThickToObjCMetatype(c *Combiner, inst *ir.Instruction) Result {
	return foldMetatypeConversion(c, inst, ir.Thick, ir.ObjC)
}

func foldObjCToThickMetatype(c *Combiner, inst *ir.Instruction) Result {
	return foldMetatypeConversion(c, inst, ir.ObjC, ir.Thick)
}

func foldMetatypeConversion(c *Combiner, inst *ir.Instruction, from, to ir.MetatypeRepr) Result {
	x := inst.Operands()[0]

	if x.Def == nil {
		return NoChange()
	}

	switch p := x.Def.Op.(type) {
	case *ir.Metatype:
		if p.Repr != from {
			return NoChange()
		}
		nv := c.B.CreateMetatype(inst.Loc, inst.Scope, to, p.InstanceType).ResultValue()
		return ReplaceWith(nv)
	case *ir.ValueMetatype:
		if p.Repr != from {
			return NoChange()
		}
		nv := c.B.CreateValueMetatype(inst.Loc, inst.Scope, to, p.X).ResultValue()
		return ReplaceWith(nv)
	case *ir.ExistentialMetatype:
		if p.Repr != from {
			return NoChange()
		}
		nv := c.B.CreateExistentialMetatype(inst.Loc, inst.Scope, to, p.X).ResultValue()
		return ReplaceWith(nv)
	}

	return NoChange()
}
