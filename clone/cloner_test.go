package clone_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slowlang/silopt/build"
	"github.com/slowlang/silopt/clone"
	"github.com/slowlang/silopt/ir"
)

var loc = ir.Location{File: "t.go", Line: 1}

func TestCloneInstructionsIntoSplicesSingleBlockCallee(t *testing.T) {
	callee := ir.NewFunction("callee")
	callee.Transparent = true
	entry := callee.NewBlock()
	callee.Entry = entry
	p := entry.AddParam(ir.TrivialType())

	cb := build.New(callee)
	cb.SetInsertionPoint(entry, nil)
	retain := cb.CreateRetainValue(loc, nil, p)
	cb.CreateReturn(loc, nil, p)

	caller := ir.NewFunction("caller")
	callerEntry := caller.NewBlock()
	caller.Entry = callerEntry

	scope := ir.NewRootScope(caller, loc)
	cl := clone.New(caller, callee, scope, false)

	arg := caller.NewBlock().AddParam(ir.TrivialType())
	cl.BindParam(p, arg)

	cl.CloneInstructionsInto(entry, callerEntry, nil)

	require.Equal(t, 1, len(callerEntry.Insts))
	clonedRetain, ok := callerEntry.Insts[0].Op.(*ir.RetainValue)
	require.True(t, ok)
	require.Equal(t, arg, clonedRetain.X)
	require.NotSame(t, retain, callerEntry.Insts[0])
}

func TestDropDebugValuesSkipsDebugValueDuringClone(t *testing.T) {
	callee := ir.NewFunction("callee")
	entry := callee.NewBlock()
	callee.Entry = entry
	p := entry.AddParam(ir.TrivialType())

	cb := build.New(callee)
	cb.SetInsertionPoint(entry, nil)
	cb.CreateDebugValue(loc, nil, p, "x")
	cb.CreateReturn(loc, nil, p)

	caller := ir.NewFunction("caller")
	callerEntry := caller.NewBlock()
	caller.Entry = callerEntry

	scope := ir.NewRootScope(caller, loc)
	cl := clone.New(caller, callee, scope, true)

	arg := caller.NewBlock().AddParam(ir.TrivialType())
	cl.BindParam(p, arg)

	cl.CloneInstructionsInto(entry, callerEntry, nil)

	for _, inst := range callerEntry.Insts {
		if _, ok := inst.Op.(*ir.DebugValue); ok {
			t.Fatalf("debug_value should have been dropped under dropDebugValues")
		}
	}
}

func TestSeedBlockReusesCallerBlockAndClonesOnlyTerminator(t *testing.T) {
	callee := ir.NewFunction("callee")
	entry := callee.NewBlock()
	callee.Entry = entry
	other := callee.NewBlock()

	eb := build.New(callee)
	eb.SetInsertionPoint(entry, nil)
	lit := eb.CreateIntegerLiteral(loc, nil, 1, ir.TrivialType())
	eb.CreateBranch(loc, nil, other, []*ir.Value{lit.ResultValue()})

	p := other.AddParam(ir.TrivialType())
	ob := build.New(callee)
	ob.SetInsertionPoint(other, nil)
	ob.CreateReturn(loc, nil, p)

	caller := ir.NewFunction("caller")
	callerEntry := caller.NewBlock()
	caller.Entry = callerEntry

	scope := ir.NewRootScope(caller, loc)
	cl := clone.New(caller, callee, scope, false)

	cl.SeedBlock(entry, callerEntry, nil)
	cl.CloneInstructionsInto(entry, callerEntry, nil)

	newBlocks := cl.CloneBlocks()
	cl.CloneInstructions()

	// entry's non-terminator instruction (the literal) was spliced by
	// CloneInstructionsInto; CloneInstructions must not duplicate it.
	litCount := 0
	for _, inst := range callerEntry.Insts {
		if _, ok := inst.Op.(*ir.IntegerLiteral); ok {
			litCount++
		}
	}
	require.Equal(t, 1, litCount)

	// entry itself must not have been given a fresh block allocation:
	// CloneBlocks lists the seeded callerEntry in its place, and only
	// other gets a new block in caller.
	require.Equal(t, callerEntry, newBlocks[0])
	require.Len(t, caller.Blocks, 2)

	term := callerEntry.Terminator()
	br, ok := term.Op.(*ir.Branch)
	require.True(t, ok)
	require.NotEqual(t, other, br.Dest, "branch dest must be the cloned block, not the callee's original")
}
