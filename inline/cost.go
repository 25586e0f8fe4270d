// Package inline implements the function inliner: the cost model that
// decides whether a call is worth inlining, and the mechanics of
// splicing a callee's body into its caller (§4.5).
package inline

import "github.com/slowlang/silopt/ir"

// Cost classifies a single instruction's contribution to a callee's
// inlining cost, mirroring the source's Free/Expensive/CannotBeInlined
// buckets (§4.5 "Cost model").
type Cost int

const (
	Free Cost = iota
	Expensive
	CannotBeInlined
)

// per-instruction cost units; deliberately coarse; these are round
// numbers chosen to make the threshold comparison legible, not tuned
// against a real workload corpus.
const (
	weightExpensive = 1
	weightCall      = 6
)

// Sentinel is the cost GetFunctionCost reports for a callee it will
// never inline no matter the cutoff — direct recursion through the
// call graph being cloned.
const Sentinel = 1 << 30

// ClassifyInstruction buckets inst for the cost model. Bookkeeping and
// data-flow instructions that lower to no code, or close to it, are
// Free; anything that materializes work at the call site is Expensive;
// an apply whose callee is a function reference back to caller is
// CannotBeInlined — the direct-recursion detector.
func ClassifyInstruction(inst *ir.Instruction, caller *ir.Function) Cost {
	switch op := inst.Op.(type) {
	case *ir.DebugValue, *ir.DebugValueAddr, *ir.FixLifetime,
		*ir.Upcast, *ir.UncheckedRefCast, *ir.UncheckedAddrCast,
		*ir.UncheckedTrivialBitCast, *ir.UncheckedRefBitCast,
		*ir.PtrToInt, *ir.IntToPtr,
		*ir.RefToRawPointer, *ir.RawPointerToRef,
		*ir.PointerToAddress, *ir.AddressToPointer,
		*ir.ThinToThickFunction, *ir.ConvertFunction,
		*ir.ThickToObjCMetatype, *ir.ObjCToThickMetatype, *ir.ObjCProtocol,
		*ir.StructElementAddr, *ir.TupleElementAddr,
		*ir.Tuple, *ir.Struct,
		*ir.StructExtract, *ir.TupleExtract,
		*ir.IntegerLiteral, *ir.StringLiteral,
		*ir.FunctionRef, *ir.GlobalAddr,
		*ir.Return, *ir.Unreachable:
		return Free

	case *ir.Metatype:
		if op.Repr == ir.Thin {
			return Free
		}
		return Expensive

	case *ir.Apply:
		if callee := ir.StaticCallee(op.Callee); callee != nil && callee == caller {
			return CannotBeInlined
		}
		return Expensive

	case *ir.PartialApply:
		return Expensive

	default:
		return Expensive
	}
}

// weight returns the cost unit a classified instruction adds to the
// running total; calls carry the heavier weightCall since they still
// cost a jump-and-link even after everything around them folds away.
func weight(inst *ir.Instruction) int {
	switch inst.Op.(type) {
	case *ir.Apply, *ir.PartialApply:
		return weightCall
	}

	return weightExpensive
}

// GetFunctionCost sums f's instruction costs in IR order, treating f as
// free if it's transparent (always inlined regardless of size). caller
// is threaded through only for the direct-recursion check inside
// ClassifyInstruction. Summation aborts as soon as the running total
// exceeds cutoff, returning that partial sum — the caller only needs to
// know it's over budget, not the exact total. An instruction classified
// CannotBeInlined short-circuits the whole function to Sentinel.
func GetFunctionCost(f, caller *ir.Function, cutoff int) int {
	if f.Transparent {
		return 0
	}

	total := 0

	for _, b := range f.Blocks {
		for _, inst := range b.Insts {
			if inst.Erased() {
				continue
			}

			switch ClassifyInstruction(inst, caller) {
			case CannotBeInlined:
				return Sentinel
			case Expensive:
				total += weight(inst)
			}

			if total > cutoff {
				return total
			}
		}
	}

	return total
}
