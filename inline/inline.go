// Package inline implements the function inliner: the cost model that
// decides whether a call is worth inlining, and the mechanics of
// splicing a callee's body into its caller (§4.5, §4.7).
package inline

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/silopt/build"
	"github.com/slowlang/silopt/clone"
	"github.com/slowlang/silopt/ir"
	"github.com/slowlang/silopt/stats"
)

// Mode selects which class of call sites the inliner is willing to
// touch. Mandatory inlining runs once, early, and must inline every
// call it's obligated to (transparent functions) regardless of size,
// and never crosses a foreign calling convention; Performance inlining
// runs to a fixpoint later, weighs cost against Threshold, and is free
// to decline.
type Mode int

const (
	Mandatory Mode = iota
	Performance
)

// Threshold is the maximum callee cost (see GetFunctionCost) Performance
// inlining will accept at a single call site. Mandatory inlining ignores
// it entirely.
const Threshold = 20

// maxInlineRefCount caps how many times a single function may be
// inlined anywhere in the module, breaking mutual-recursion cycles that
// the direct-recursion check alone wouldn't catch.
const maxInlineRefCount = 1 << 12

// CanInline reports whether callee may legally be inlined into caller
// at mode, and if not, a short reason a caller can log.
func CanInline(caller, callee *ir.Function, mode Mode) (bool, string) {
	if callee == nil {
		return false, "callee not statically known"
	}

	if callee == caller {
		return false, "direct recursion"
	}

	if len(callee.Blocks) == 0 {
		return false, "callee has no body"
	}

	if callee.InlineRefCount() >= maxInlineRefCount {
		return false, "callee inlined too many times already"
	}

	if mode == Mandatory {
		if callee.CC == ir.CCForeign {
			return false, "foreign calling convention"
		}
		if !callee.Transparent {
			return false, "not transparent"
		}
		return true, ""
	}

	if callee.Transparent {
		return true, ""
	}

	if cost := GetFunctionCost(callee, caller, Threshold); cost > Threshold {
		return false, "callee too expensive"
	}

	return true, ""
}

// InlineCall replaces the call instruction call (an Apply whose callee
// resolves statically) with callee's cloned body, wired so every use of
// the call's result observes what the callee would have returned.
//
// The callee's entry block is always inlined directly into call's own
// block, ahead of call — never cloned into a fresh block — since its
// instructions execute unconditionally exactly once at the call site
// (§4.7 step 7). If the callee is a single block ending in a plain
// Return (the common shape once earlier peephole passes have simplified
// control flow), that is the whole job: no block is split. A callee with
// more than one block takes the split path even when its entry block
// ends in a Return. Otherwise call's block is
// split into the pre-call prefix and a continuation, the callee's
// remaining blocks are cloned between them, and every cloned Return
// becomes a Branch to the continuation carrying the return value as a
// block argument.
func InlineCall(ctx context.Context, call *ir.Instruction, mode Mode, st *stats.Counters) (bool, error) {
	ap, ok := call.Op.(*ir.Apply)
	if !ok {
		return false, nil
	}

	caller := call.Block.Func
	callee := ir.StaticCallee(ap.Callee)

	can, reason := CanInline(caller, callee, mode)

	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "inline: call", "caller", caller.Name)
	defer tr.Finish()

	if !can {
		tr.V("dump_rewrite").Printw("refused", "reason", reason)
		return false, nil
	}

	if st == nil {
		st = stats.New()
	}

	if err := spliceCallee(caller, call, callee, ap, mode); err != nil {
		return false, errors.Wrap(err, "inline call")
	}

	st.Inc("sil-inline")
	tr.V("dump_rewrite").Printw("inlined", "callee", callee.Name)

	return true, nil
}

func spliceCallee(caller *ir.Function, call *ir.Instruction, callee *ir.Function, ap *ir.Apply, mode Mode) error {
	if len(ap.Args) != len(callee.Entry.Params) {
		return errors.New("inline: call has %d args, callee entry has %d params", len(ap.Args), len(callee.Entry.Params))
	}

	callSiteScope := inlineScopeFor(call, mode)

	cl := clone.New(caller, callee, callSiteScope, mode == Mandatory)

	for i, p := range callee.Entry.Params {
		cl.BindParam(p, ap.Args[i])
	}

	callee.IncInlineRefCount()

	entry := callee.Entry
	callerBlock := call.Block

	if _, isReturn := entry.Terminator().Op.(*ir.Return); isReturn && len(callee.Blocks) == 1 {
		inlineStraightLine(cl, call, entry, callerBlock)
		return nil
	}

	inlineGeneral(cl, call, callee, entry, callerBlock)
	return nil
}

// inlineStraightLine handles the callee-is-a-single-block case: every
// instruction splices directly ahead of call, uses of the call are
// redirected to the mapped return operand, and no block is ever split
// (§8 scenario 6, "inline fast path").
func inlineStraightLine(cl *clone.Cloner, call *ir.Instruction, entry *ir.Block, callerBlock *ir.Block) {
	cl.CloneInstructionsInto(entry, callerBlock, call)

	if call.HasResult() {
		ret := entry.Terminator().Op.(*ir.Return)
		ir.ReplaceAllUsesWith(call.ResultValue(), cl.MapValue(ret.Val))
	}

	ir.EraseInst(call)
}

// inlineGeneral handles a callee with internal control flow: entry's
// instructions still splice directly ahead of call, but entry's
// terminator branches into freshly cloned copies of the callee's other
// blocks, and every path back out (every cloned Return) rejoins the
// caller through a new continuation block carrying the return value.
func inlineGeneral(cl *clone.Cloner, call *ir.Instruction, callee *ir.Function, entry *ir.Block, callerBlock *ir.Block) {
	continuation := splitBlockAfter(callerBlock, call)

	var resultParam *ir.Value
	if call.HasResult() {
		resultParam = continuation.AddParam(call.ResultValue().Type)
		ir.ReplaceAllUsesWith(call.ResultValue(), resultParam)
	}

	ir.EraseInst(call)

	cl.SeedBlock(entry, callerBlock, nil)
	cl.CloneInstructionsInto(entry, callerBlock, nil)

	newBlocks := cl.CloneBlocks()
	cl.CloneInstructions()

	// callerBlock carries entry's own cloned terminator once seeded; make
	// sure it gets the same Return->Branch treatment as every other
	// cloned block whenever a multi-block callee still returns straight
	// from entry, regardless of whether CloneBlocks already listed it.
	blocks := newBlocks
	if idx := blockIndex(blocks, callerBlock); idx < 0 {
		blocks = append([]*ir.Block{callerBlock}, blocks...)
	}
	convertReturnsToBranches(blocks, continuation, resultParam)
}

func blockIndex(blocks []*ir.Block, b *ir.Block) int {
	for i, nb := range blocks {
		if nb == b {
			return i
		}
	}
	return -1
}

// convertReturnsToBranches rewrites every Return terminator among blocks
// into a Branch to continuation, carrying the returned value as a block
// argument when the call site consumed a result.
func convertReturnsToBranches(blocks []*ir.Block, continuation *ir.Block, resultParam *ir.Value) {
	for _, nb := range blocks {
		term := nb.Terminator()

		ret, isReturn := term.Op.(*ir.Return)
		if !isReturn {
			continue
		}

		var args []*ir.Value
		if resultParam != nil {
			args = []*ir.Value{ret.Val}
		}

		b := build.New(nb.Func)
		b.SetInsertionPoint(nb, term)
		b.CreateBranch(term.Loc, term.Scope, continuation, args)
		ir.EraseInst(term)
	}
}

// inlineScopeFor picks the debug scope every cloned instruction threads
// back to (§4.7 step 2). Mandatory inlining reuses the call site's own
// scope; performance inlining wraps it in a fresh scope so repeated
// performance-inlines at the same site remain distinguishable, keeping
// the call site's own InlinedCallSite (if any) rather than replacing it.
func inlineScopeFor(call *ir.Instruction, mode Mode) *ir.DebugScope {
	if mode == Mandatory || call.Scope == nil {
		return call.Scope
	}

	return &ir.DebugScope{
		Loc:             call.Loc,
		Parent:          call.Scope,
		Func:            call.Block.Func,
		InlinedCallSite: call.Scope.InlinedCallSite,
	}
}

// splitBlockAfter moves every instruction of b after at (at excluded)
// into a freshly created successor block; b is left without a
// terminator until the caller supplies one.
func splitBlockAfter(b *ir.Block, at *ir.Instruction) *ir.Block {
	idx := b.Index(at)

	tail := append([]*ir.Instruction(nil), b.Insts[idx+1:]...)
	b.Insts = b.Insts[:idx+1]

	nb := b.Func.NewBlock()
	for _, inst := range tail {
		nb.Append(inst)
	}

	return nb
}
