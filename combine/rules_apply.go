package combine

import (
	"github.com/slowlang/silopt/ir"
	"github.com/slowlang/silopt/types"
)

// deadRCUses classifies which instruction kinds collectDeadUses treats as
// harmless-to-erase consumers of a call result that otherwise has no
// real use.
func deadRCUses(op ir.Op) bool {
	switch op.(type) {
	case *ir.RetainValue, *ir.ReleaseValue, *ir.StrongRetain, *ir.StrongRelease,
		*ir.DebugValue, *ir.DebugValueAddr:
		return true
	}
	return false
}

func init() {
	Register(ir.OpApply, foldApply)
	Register(ir.OpPartialApply, foldPartialApply)
}

// apply(partial_apply f, captured...), args -> apply(f, args...,
// captured...): the explicit arguments keep their original slots ahead
// of the captures, matching the parameter order f itself expects. The
// captures were owned by the closure and are consumed uncopied by the
// new direct call, so each non-trivial one is retained first (the
// closure's own destruction will otherwise release it out from under
// the call); the closure value itself is then strong_released once,
// balancing the retain partial_apply performed when it captured them.
//
// apply(convert_function f) and apply(thin_to_thick_function f) both
// redirect the callee operand to the wrapped function value directly,
// in place.
func foldApply(c *Combiner, inst *ir.Instruction) Result {
	ap := inst.Op.(*ir.Apply)

	if res, ok := foldStringConcatApply(c, inst, ap); ok {
		return res
	}

	if pa, ok := defOp[*ir.PartialApply](ap.Callee); ok && ap.Callee.NumUses() == 1 && !ap.HasSubstitutions {
		closure := ap.Callee
		loc, scope := inst.Loc, inst.Scope

		newArgs := make([]*ir.Value, 0, len(ap.Args)+len(pa.Args))
		newArgs = append(newArgs, ap.Args...)
		newArgs = append(newArgs, pa.Args...)

		resultType := inst.ResultValue().Type

		c.B.SetInsertionPoint(inst.Block, inst)

		touched := []*ir.Value{closure}
		for _, arg := range pa.Args {
			if types.IsTrivial(arg.Type) {
				continue
			}
			c.B.CreateRetainValue(loc, scope, arg)
			touched = append(touched, arg)
		}

		nv := c.B.CreateApply(loc, scope, pa.Callee, newArgs, resultType)
		touched = append(touched, nv.ResultValue())

		old := inst.ResultValue()
		if old != nil {
			ir.ReplaceAllUsesWith(old, nv.ResultValue())
		}
		ir.EraseInst(inst)

		c.B.SetInsertionPointAfter(nv)
		c.B.CreateStrongRelease(loc, scope, closure)

		return Handled(touched...)
	}

	if conv, ok := defOp[*ir.ConvertFunction](ap.Callee); ok {
		if res, ok := rewriteApplyThroughConvertFunction(c, inst, ap, conv); ok {
			return res
		}
	}
	if conv, ok := defOp[*ir.ThinToThickFunction](ap.Callee); ok && !ap.HasSubstitutions && ap.NumIndirectResults == 0 {
		inst.SetOperand(0, conv.X)
		return Handled(inst.ResultValue(), conv.X)
	}

	if dead, ok := isEffectlessDeadCall(inst, ap); ok {
		loc, scope := inst.Loc, inst.Scope
		c.B.SetInsertionPoint(inst.Block, inst)

		touched := []*ir.Value{ap.Callee}
		for _, arg := range ap.Args[ap.NumIndirectResults:] {
			if types.IsTrivial(arg.Type) || arg.Type.Kind == ir.Address {
				continue
			}
			c.B.CreateReleaseValue(loc, scope, arg)
			touched = append(touched, arg)
		}

		for _, d := range dead {
			ir.EraseInst(d)
		}
		ir.EraseInst(inst)

		return Handled(touched...)
	}

	return NoChange()
}

// rewriteApplyThroughConvertFunction reissues an apply of a
// convert_function conversion against the original, unconverted callee
// directly, provided that callee is statically known and neither its
// signature nor any argument still carries a residual archetype (§4.4).
// Each argument whose type differs between the two signatures gets an
// unchecked cast inserted so the reissued call stays well-typed.
func rewriteApplyThroughConvertFunction(c *Combiner, inst *ir.Instruction, ap *ir.Apply, conv *ir.ConvertFunction) (Result, bool) {
	if ir.StaticCallee(conv.X) == nil {
		return Result{}, false
	}

	calleeType := conv.X.Type
	if calleeType.Kind != ir.FunctionKind || len(calleeType.Params) != len(ap.Args) {
		return Result{}, false
	}

	if types.HasArchetype(calleeType) {
		return Result{}, false
	}
	for _, arg := range ap.Args {
		if types.HasArchetype(arg.Type) {
			return Result{}, false
		}
	}

	c.B.SetInsertionPoint(inst.Block, inst)

	touched := []*ir.Value{inst.ResultValue(), conv.X}

	for i, arg := range ap.Args {
		want := calleeType.Params[i]
		if arg.Type.Equal(want) {
			continue
		}

		var cast *ir.Value
		switch want.Kind {
		case ir.Reference:
			cast = c.B.CreateUncheckedRefCast(inst.Loc, inst.Scope, arg, want).ResultValue()
		case ir.Address:
			cast = c.B.CreateUncheckedAddrCast(inst.Loc, inst.Scope, arg, want).ResultValue()
		default:
			cast = c.B.CreateUncheckedTrivialBitCast(inst.Loc, inst.Scope, arg, want).ResultValue()
		}

		inst.SetOperand(1+i, cast)
		touched = append(touched, arg, cast)
	}

	inst.SetOperand(0, conv.X)

	return Handled(touched...), true
}

// partial_apply with zero captured arguments and no substitutions is
// just a thin-to-thick promotion of its callee. partial_apply whose
// only user is a strong_release is replaced by explicit releases of its
// captures.
func foldPartialApply(c *Combiner, inst *ir.Instruction) Result {
	pa := inst.Op.(*ir.PartialApply)
	result := inst.ResultValue()

	if len(pa.Args) == 0 && !pa.HasSubstitutions {
		nv := c.B.CreateThinToThickFunctionFromCallee(inst.Loc, inst.Scope, pa.Callee, result.Type).ResultValue()
		return ReplaceWith(nv)
	}

	if result != nil && result.NumUses() == 1 {
		u := result.Uses()[0]
		if _, ok := u.User.Op.(*ir.StrongRelease); ok {
			touched := []*ir.Value{pa.Callee}

			c.B.SetInsertionPoint(inst.Block, inst)
			for _, arg := range pa.Args {
				if types.IsTrivial(arg.Type) {
					continue
				}
				c.B.CreateReleaseValue(inst.Loc, inst.Scope, arg)
				touched = append(touched, arg)
			}

			ir.EraseInst(u.User)
			ir.EraseInst(inst)

			return Handled(touched...)
		}
	}

	return NoChange()
}

// isEffectlessDeadCall reports whether inst is an apply of a statically
// known function whose effects are strictly below ReadWrite and whose
// result (if any) is unobserved except through a transitive closure of
// refcounting instructions, debug-values, and struct_extracts that are
// themselves dead by the same measure — all of which are safe to erase
// alongside the call itself. On success it returns that closure.
func isEffectlessDeadCall(inst *ir.Instruction, ap *ir.Apply) ([]*ir.Instruction, bool) {
	callee := ir.StaticCallee(ap.Callee)
	if callee == nil || callee.Effects >= ir.EffectsReadWrite {
		return nil, false
	}

	result := inst.ResultValue()
	if result == nil {
		return nil, true
	}

	return collectDeadUses(result)
}

// collectDeadUses walks v's use chain, accepting only refcounting
// instructions, debug-values, and struct_extracts whose own result is
// itself fully covered by a recursive call. Any other user means v is
// genuinely observed and the whole call site must be kept.
func collectDeadUses(v *ir.Value) ([]*ir.Instruction, bool) {
	var dead []*ir.Instruction

	for _, u := range v.Uses() {
		inst := u.User

		if deadRCUses(inst.Op) {
			dead = append(dead, inst)
			continue
		}

		if _, ok := inst.Op.(*ir.StructExtract); ok {
			sub, ok := collectDeadUses(inst.ResultValue())
			if !ok {
				return nil, false
			}
			dead = append(dead, sub...)
			dead = append(dead, inst)
			continue
		}

		return nil, false
	}

	return dead, true
}

