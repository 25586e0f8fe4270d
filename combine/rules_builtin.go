package combine

import (
	"github.com/slowlang/silopt/ir"
	"github.com/slowlang/silopt/match"
	"github.com/slowlang/silopt/types"
)

func init() {
	Register(ir.OpBuiltin, foldBuiltin)
	Register(ir.OpCondFail, foldCondFail)
	Register(ir.OpCondBranch, foldCondBranch)
	Register(ir.OpTupleExtract, foldOverflowTupleExtract)
}

// foldBuiltin dispatches on the invoked BuiltinKind; only the kinds the
// core knows how to fold (§4.4 "Builtin folding") do anything, every
// other kind is left alone.
func foldBuiltin(c *Combiner, inst *ir.Instruction) Result {
	b := inst.Op.(*ir.Builtin)

	switch b.Kind {
	case ir.BuiltinCanBeClass:
		return foldCanBeClass(c, inst, b)
	case ir.BuiltinICmpEq, ir.BuiltinICmpNe:
		return foldICmp(c, inst, b)
	case ir.BuiltinSub:
		return foldSub(c, inst, b)
	case ir.BuiltinSMulOver:
		return foldSMulOverOperandOrder(c, inst, b)
	case ir.BuiltinEnumIsTag:
		return foldEnumIsTag(c, inst, b)
	}

	return NoChange()
}

// canBeClass<T> folds to a compile-time 0/1 whenever the oracle can
// decide it; T is read off the static type of the builtin's sole
// argument.
func foldCanBeClass(c *Combiner, inst *ir.Instruction, b *ir.Builtin) Result {
	if len(b.Args) != 1 {
		return NoChange()
	}

	switch types.CanBeClass(b.Args[0].Type) {
	case types.Yes:
		return ReplaceWith(c.B.CreateIntegerLiteral(inst.Loc, inst.Scope, 1, inst.ResultValue().Type).ResultValue())
	case types.No:
		return ReplaceWith(c.B.CreateIntegerLiteral(inst.Loc, inst.Scope, 0, inst.ResultValue().Type).ResultValue())
	}

	return NoChange()
}

// icmp_eq/icmp_ne folds off the zero-ness oracle (§4.4): once both sides'
// zero-ness is known the comparison folds outright, except when both are
// known non-zero and distinct values, where zero-ness alone can't prove
// or disprove equality and the fold bails. Otherwise, when exactly one
// side is a known zero, the comparison degrades to the other operand
// itself (icmp_ne) or its negation via xor against 1 (icmp_eq).
func foldICmp(c *Combiner, inst *ir.Instruction, b *ir.Builtin) Result {
	if len(b.Args) != 2 {
		return NoChange()
	}

	x, y := b.Args[0], b.Args[1]
	zx, zy := types.ZeroNess(x), types.ZeroNess(y)

	if zx != types.Unknown && zy != types.Unknown {
		if zx == types.No && zy == types.No {
			return NoChange()
		}
		return ReplaceWith(c.B.CreateIntegerLiteral(inst.Loc, inst.Scope, icmpBool(b.Kind, zx == zy), inst.ResultValue().Type).ResultValue())
	}

	var v *ir.Value
	switch {
	case zx == types.Yes:
		v = y
	case zy == types.Yes:
		v = x
	default:
		return NoChange()
	}

	return foldICmpAgainstZero(c, inst, b.Kind, v)
}

// foldICmpAgainstZero rewrites a comparison known to have one operand
// equal to zero: icmp_ne(v, 0) is just v, icmp_eq(v, 0) is v's negation.
func foldICmpAgainstZero(c *Combiner, inst *ir.Instruction, kind ir.BuiltinKind, v *ir.Value) Result {
	if kind == ir.BuiltinICmpNe {
		return ReplaceWith(v)
	}

	one := c.B.CreateIntegerLiteral(inst.Loc, inst.Scope, 1, inst.ResultValue().Type).ResultValue()
	nv := c.B.CreateBuiltin(inst.Loc, inst.Scope, ir.BuiltinXor, []*ir.Value{v, one}, inst.ResultValue().Type).ResultValue()

	return ReplaceWith(nv)
}

func icmpBool(kind ir.BuiltinKind, eq bool) int64 {
	result := eq
	if kind == ir.BuiltinICmpNe {
		result = !eq
	}
	if result {
		return 1
	}
	return 0
}

// sub(x, x) -> 0.
//
// sub(ptrToInt(indexRawPointer(base, n)), ptrToInt(base)) -> n, since
// the pointer difference collapses to the raw index that produced it.
func foldSub(c *Combiner, inst *ir.Instruction, b *ir.Builtin) Result {
	if len(b.Args) != 2 {
		return NoChange()
	}

	if b.Args[0] == b.Args[1] {
		return ReplaceWith(c.B.CreateIntegerLiteral(inst.Loc, inst.Scope, 0, inst.ResultValue().Type).ResultValue())
	}

	m := match.InstKindOf[*ir.PtrToInt](
		match.IndexRawPointer(match.Capture("base", match.Any()), match.Capture("idx", match.Any())),
	)

	caps, ok := match.Match(m, b.Args[0])
	if !ok {
		return NoChange()
	}

	rp, ok := defOp[*ir.PtrToInt](b.Args[1])
	if !ok || caps.Get("base") != rp.X {
		return NoChange()
	}

	return ReplaceWith(caps.Get("idx"))
}

// smul_over always evaluates strideof/strideof_nonzero as its right
// operand, so a strideof builtin appearing as the left operand is
// swapped into position.
func foldSMulOverOperandOrder(c *Combiner, inst *ir.Instruction, b *ir.Builtin) Result {
	if len(b.Args) != 2 {
		return NoChange()
	}

	if isStrideOf(b.Args[0]) && !isStrideOf(b.Args[1]) {
		x, y := b.Args[0], b.Args[1]
		inst.SetOperand(0, y)
		inst.SetOperand(1, x)

		return Handled(inst.ResultValue(), x, y)
	}

	return NoChange()
}

func isStrideOf(v *ir.Value) bool {
	b, ok := defOp[*ir.Builtin](v)
	if !ok {
		return false
	}
	return b.Kind == ir.BuiltinStrideOf || b.Kind == ir.BuiltinStrideOfNZ
}

// enumIsTag(enum(#k, ...), #k) folds to a compile-time 0/1 when the
// enum operand is a direct enum construction.
func foldEnumIsTag(c *Combiner, inst *ir.Instruction, b *ir.Builtin) Result {
	if len(b.Args) != 2 {
		return NoChange()
	}

	en, ok := defOp[*ir.Enum](b.Args[0])
	if !ok {
		return NoChange()
	}

	tag, ok := defOp[*ir.IntegerLiteral](b.Args[1])
	if !ok {
		return NoChange()
	}

	v := int64(0)
	if int64(en.Case) == tag.Value {
		v = 1
	}

	return ReplaceWith(c.B.CreateIntegerLiteral(inst.Loc, inst.Scope, v, inst.ResultValue().Type).ResultValue())
}

// cond_fail of a compile-time-false condition never fires and is
// erased. Under StripChecks every cond_fail is erased regardless of its
// condition, matching a build that has decided to trust its invariants.
func foldCondFail(c *Combiner, inst *ir.Instruction) Result {
	cf := inst.Op.(*ir.CondFail)

	if c.StripChecks {
		touched := []*ir.Value{cf.Cond}
		ir.EraseInst(inst)
		return Handled(touched...)
	}

	if _, ok := match.Match(match.ConstZero(), cf.Cond); !ok {
		return NoChange()
	}

	touched := []*ir.Value{cf.Cond}
	ir.EraseInst(inst)
	return Handled(touched...)
}

// cond_branch on xor(x, 1) is equivalent to cond_branch on x with the
// true and false destinations (and their argument lists) swapped.
func foldCondBranch(c *Combiner, inst *ir.Instruction) Result {
	cb := inst.Op.(*ir.CondBranch)

	m := match.ApplyOf(ir.BuiltinXor, match.Capture("x", match.Any()), match.ConstOne())

	caps, ok := match.Match(m, cb.Cond)
	if !ok {
		return NoChange()
	}

	x := caps.Get("x")

	c.B.SetInsertionPoint(inst.Block, inst)
	c.B.CreateCondBranch(inst.Loc, inst.Scope, x, cb.False, cb.FalseArgs, cb.True, cb.TrueArgs)

	touched := []*ir.Value{x, cb.Cond}

	ir.EraseInst(inst)

	return Handled(touched...)
}

// tupleExtract(sadd_over/uadd_over(x, y), 1) — the overflow-flag
// component — folds to a compile-time 0 when both operands are integer
// literals whose sum provably does not overflow a 64-bit accumulator.
func foldOverflowTupleExtract(c *Combiner, inst *ir.Instruction) Result {
	te := inst.Op.(*ir.TupleExtract)
	if te.Index != 1 {
		return NoChange()
	}

	b, ok := defOp[*ir.Builtin](te.X)
	if !ok || len(b.Args) != 2 {
		return NoChange()
	}
	if b.Kind != ir.BuiltinSAddOver && b.Kind != ir.BuiltinUAddOver {
		return NoChange()
	}

	x, xok := defOp[*ir.IntegerLiteral](b.Args[0])
	y, yok := defOp[*ir.IntegerLiteral](b.Args[1])
	if !xok || !yok {
		return NoChange()
	}

	sum := x.Value + y.Value

	overflowed := false
	if b.Kind == ir.BuiltinSAddOver {
		if (x.Value > 0 && y.Value > 0 && sum < 0) || (x.Value < 0 && y.Value < 0 && sum >= 0) {
			overflowed = true
		}
	} else {
		if uint64(sum) < uint64(x.Value) {
			overflowed = true
		}
	}

	if overflowed {
		return NoChange()
	}

	return ReplaceWith(c.B.CreateIntegerLiteral(inst.Loc, inst.Scope, 0, inst.ResultValue().Type).ResultValue())
}
