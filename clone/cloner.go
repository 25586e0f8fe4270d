// Package clone implements the instruction cloner the inliner uses to
// copy a callee function's blocks and instructions into a caller,
// remapping values, blocks and debug scopes as it goes (§4.5, §9).
package clone

import "github.com/slowlang/silopt/ir"

type (
	// Cloner copies callee into caller, one call site at a time. A fresh
	// Cloner is created per inline site; ValueMap and BlockMap are
	// exhausted after cloning and not reused.
	Cloner struct {
		Caller *ir.Function
		callee *ir.Function

		valueMap map[ir.ValueID]*ir.Value
		blockMap map[ir.BlockID]*ir.Block
		scopeMap map[*ir.DebugScope]*ir.DebugScope

		callSiteScope *ir.DebugScope

		// dropDebugValues, when set, makes cloneInst skip debug_value and
		// debug_value_addr instructions entirely instead of cloning them —
		// mandatory inlining discards them, performance inlining keeps them.
		dropDebugValues bool

		order []*ir.Block

		// seededAt records blocks the caller pre-populated itself (the
		// callee entry block, spliced directly into an existing caller
		// block rather than a freshly allocated one — §4.7 step 5).
		// CloneBlocks skips allocating a block for these; CloneInstructions
		// skips their non-terminator instructions (already spliced) and
		// inserts only the cloned terminator, before the recorded position.
		seededAt map[ir.BlockID]*ir.Instruction
	}
)

// New prepares a Cloner that will copy callee's body into caller.
// callSiteScope is the debug scope active at the call instruction being
// inlined; every scope the clone produces threads back to it via
// InlinedCallSite. dropDebugValues discards debug_value/debug_value_addr
// instructions during cloning instead of copying them (§4.7 step 11).
func New(caller, callee *ir.Function, callSiteScope *ir.DebugScope, dropDebugValues bool) *Cloner {
	return &Cloner{
		Caller:          caller,
		callee:          callee,
		valueMap:        make(map[ir.ValueID]*ir.Value),
		blockMap:        make(map[ir.BlockID]*ir.Block),
		scopeMap:        make(map[*ir.DebugScope]*ir.DebugScope),
		callSiteScope:   callSiteScope,
		dropDebugValues: dropDebugValues,
	}
}

// BindParam records that callee parameter value old is realized as new
// in the caller — used to substitute the call's actual arguments for
// the callee's formal parameters before any instruction is cloned.
func (cl *Cloner) BindParam(old, new *ir.Value) {
	cl.valueMap[old.ID()] = new
}

// SeedBlock records that old's non-terminator instructions have already
// been (or will be) spliced directly into an existing caller block, into,
// ahead of at. CloneBlocks will not allocate a new block for old; it is
// still walked for successor discovery so any block old branches to gets
// cloned normally. CloneInstructions clones only old's terminator, into
// into before at.
func (cl *Cloner) SeedBlock(old, into *ir.Block, at *ir.Instruction) {
	cl.blockMap[old.ID()] = into

	if cl.seededAt == nil {
		cl.seededAt = map[ir.BlockID]*ir.Instruction{}
	}
	cl.seededAt[old.ID()] = at
}

// CloneBlocks walks callee's blocks in DFS preorder from its entry,
// creating a corresponding empty block (with remapped parameters) for
// each one reachable, before any instruction is cloned. Preallocating
// blocks and their parameters up front lets instruction cloning resolve
// operands defined in not-yet-visited blocks — loop back-edges being the
// common case.
func (cl *Cloner) CloneBlocks() []*ir.Block {
	visited := map[ir.BlockID]bool{}
	var order []*ir.Block

	var walk func(b *ir.Block)
	walk = func(b *ir.Block) {
		if visited[b.ID()] {
			return
		}
		visited[b.ID()] = true
		order = append(order, b)

		for _, succ := range successorsOf(b) {
			walk(succ)
		}
	}

	walk(cl.callee.Entry)

	// any block unreachable from entry in a well-formed function
	// shouldn't exist, but a defensive sweep keeps CloneBlocks total.
	for _, b := range cl.callee.Blocks {
		walk(b)
	}

	cl.order = order

	var newBlocks []*ir.Block

	for _, b := range order {
		if nb, ok := cl.blockMap[b.ID()]; ok {
			// pre-seeded (see SeedBlock) — reuse the existing caller
			// block, its parameters already bound.
			newBlocks = append(newBlocks, nb)
			continue
		}

		nb := cl.Caller.NewBlock()
		cl.blockMap[b.ID()] = nb

		for _, p := range b.Params {
			np := nb.AddParam(p.Type)
			cl.valueMap[p.ID()] = np
		}

		newBlocks = append(newBlocks, nb)
	}

	return newBlocks
}

// CloneInstructions clones every instruction of every block discovered
// by CloneBlocks, in the same order, appending each to its
// already-created counterpart block. A block seeded via SeedBlock has
// its non-terminator instructions skipped (already spliced by the
// caller) and its terminator inserted at the recorded position instead
// of appended.
func (cl *Cloner) CloneInstructions() {
	for _, b := range cl.order {
		nb := cl.blockMap[b.ID()]
		at, seeded := cl.seededAt[b.ID()]

		for _, inst := range b.Insts {
			if inst.Erased() {
				continue
			}

			if seeded {
				if !inst.IsTerminator() {
					continue
				}
				cl.cloneInst(nb, at, inst)
				continue
			}

			cl.cloneInst(nb, nil, inst)
		}
	}
}

// CloneInstructionsInto clones a single callee block's non-terminator
// instructions directly into an existing caller block, inserted before
// at, without allocating a new block — the fast path for a callee with
// no internal control flow, where splicing beats splitting the caller's
// block just to immediately rejoin it. The cloned terminator's mapped
// operand (if it's a Return) is returned by the caller, not built here.
func (cl *Cloner) CloneInstructionsInto(b *ir.Block, into *ir.Block, at *ir.Instruction) {
	for _, inst := range b.Insts {
		if inst.Erased() || inst.IsTerminator() {
			continue
		}

		cl.cloneInst(into, at, inst)
	}
}

// dropDebugValue reports whether inst should be skipped entirely rather
// than cloned, per the Cloner's dropDebugValues setting.
func (cl *Cloner) dropDebugValue(inst *ir.Instruction) bool {
	if !cl.dropDebugValues {
		return false
	}

	switch inst.Op.(type) {
	case *ir.DebugValue, *ir.DebugValueAddr:
		return true
	}

	return false
}

func (cl *Cloner) cloneInst(into *ir.Block, at *ir.Instruction, inst *ir.Instruction) {
	if cl.dropDebugValue(inst) {
		return
	}

	op := cloneOp(inst.Op, cl)

	var resultType *ir.Type
	if inst.HasResult() {
		resultType = inst.ResultValue().Type
	}

	scope := cl.CloneScope(inst.Scope)

	ni := ir.NewInstruction(cl.Caller, op, resultType, inst.Loc, scope)
	into.InsertBefore(ni, at)

	if inst.HasResult() {
		cl.valueMap[inst.ResultValue().ID()] = ni.ResultValue()
	}
}

// MapValue resolves an operand from the callee's value space into the
// caller's. Every callee value must have been bound before use — by
// BindParam for formals, by block-parameter cloning for join points, or
// by having already been cloned — since callee instructions are only
// ever cloned after their dominating definitions.
func (cl *Cloner) MapValue(v *ir.Value) *ir.Value {
	if v == nil {
		return nil
	}

	if nv, ok := cl.valueMap[v.ID()]; ok {
		return nv
	}

	return v
}

func (cl *Cloner) MapBlock(b *ir.Block) *ir.Block {
	if b == nil {
		return nil
	}

	if nb, ok := cl.blockMap[b.ID()]; ok {
		return nb
	}

	return b
}

// CloneScope returns the caller-side counterpart of a callee debug
// scope, creating and memoizing it the first time it's requested so
// every instruction inlined from the same original scope shares the
// same cloned scope object.
func (cl *Cloner) CloneScope(old *ir.DebugScope) *ir.DebugScope {
	if old == nil {
		return cl.callSiteScope
	}

	if ns, ok := cl.scopeMap[old]; ok {
		return ns
	}

	parent := cl.CloneScope(old.Parent)

	ns := &ir.DebugScope{
		Loc:             old.Loc,
		Parent:          parent,
		Func:            cl.Caller,
		InlinedCallSite: cl.callSiteScope,
	}

	cl.scopeMap[old] = ns

	return ns
}

func successorsOf(b *ir.Block) []*ir.Block {
	term := b.Terminator()
	if term == nil {
		return nil
	}

	return ir.TerminatorSuccessors(term.Op)
}
