package ir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slowlang/silopt/build"
	"github.com/slowlang/silopt/ir"
)

func TestReplaceAllUsesWithMovesEveryUse(t *testing.T) {
	f := ir.NewFunction("f")
	entry := f.NewBlock()
	f.Entry = entry
	loc := ir.Location{File: "t.go", Line: 1}

	b := build.New(f)
	b.SetInsertionPoint(entry, nil)

	lit := b.CreateIntegerLiteral(loc, nil, 41, ir.TrivialType())
	other := b.CreateIntegerLiteral(loc, nil, 42, ir.TrivialType())

	u1 := b.CreateRetainValue(loc, nil, lit.ResultValue())
	u2 := b.CreateReleaseValue(loc, nil, lit.ResultValue())

	require.Equal(t, 2, lit.ResultValue().NumUses())
	require.Equal(t, 0, other.ResultValue().NumUses())

	ir.ReplaceAllUsesWith(lit.ResultValue(), other.ResultValue())

	require.Equal(t, 0, lit.ResultValue().NumUses())
	require.Equal(t, 2, other.ResultValue().NumUses())
	require.Equal(t, other.ResultValue(), u1.Op.(*ir.RetainValue).X)
	require.Equal(t, other.ResultValue(), u2.Op.(*ir.ReleaseValue).X)
}

func TestEraseInstPanicsOnLiveUses(t *testing.T) {
	f := ir.NewFunction("f")
	entry := f.NewBlock()
	f.Entry = entry
	loc := ir.Location{File: "t.go", Line: 1}

	b := build.New(f)
	b.SetInsertionPoint(entry, nil)

	lit := b.CreateIntegerLiteral(loc, nil, 1, ir.TrivialType())
	b.CreateRetainValue(loc, nil, lit.ResultValue())

	require.Panics(t, func() { ir.EraseInst(lit) })
}

func TestEraseInstRemovesFromBlockAndClearsOperandUses(t *testing.T) {
	f := ir.NewFunction("f")
	entry := f.NewBlock()
	f.Entry = entry
	loc := ir.Location{File: "t.go", Line: 1}

	b := build.New(f)
	b.SetInsertionPoint(entry, nil)

	lit := b.CreateIntegerLiteral(loc, nil, 1, ir.TrivialType())
	retain := b.CreateRetainValue(loc, nil, lit.ResultValue())

	require.Equal(t, 2, len(entry.Insts))

	ir.EraseInst(retain)

	require.Equal(t, 1, len(entry.Insts))
	require.True(t, retain.Erased())
	require.Equal(t, 0, lit.ResultValue().NumUses())
}

func TestInsertBeforeOrdersInstructions(t *testing.T) {
	f := ir.NewFunction("f")
	entry := f.NewBlock()
	f.Entry = entry
	loc := ir.Location{File: "t.go", Line: 1}

	b := build.New(f)
	b.SetInsertionPoint(entry, nil)

	first := b.CreateIntegerLiteral(loc, nil, 1, ir.TrivialType())
	third := b.CreateIntegerLiteral(loc, nil, 3, ir.TrivialType())

	b.SetInsertionPoint(entry, third)
	second := b.CreateIntegerLiteral(loc, nil, 2, ir.TrivialType())

	require.Equal(t, []*ir.Instruction{first, second, third}, entry.Insts)
}

func TestTypeEqual(t *testing.T) {
	trivial := ir.TrivialType()
	require.True(t, trivial.Equal(ir.TrivialType()))

	s1 := ir.StructType(ir.TrivialType(), ir.TrivialType())
	s2 := ir.StructType(ir.TrivialType(), ir.TrivialType())
	require.True(t, s1.Equal(s2))

	s3 := ir.StructType(ir.TrivialType())
	require.False(t, s1.Equal(s3))

	c1 := &ir.ClassInfo{Name: "A"}
	c2 := &ir.ClassInfo{Name: "B"}
	require.True(t, ir.ReferenceType(c1).Equal(ir.ReferenceType(c1)))
	require.False(t, ir.ReferenceType(c1).Equal(ir.ReferenceType(c2)))
}

func TestDebugScopeInlineChainContains(t *testing.T) {
	f := ir.NewFunction("f")
	root := ir.NewRootScope(f, ir.Location{})
	callSite := root.Child(ir.Location{Line: 5})

	inlined := &ir.DebugScope{Parent: root, Func: f, InlinedCallSite: callSite}

	require.True(t, inlined.InlineChainContains(callSite))
	require.False(t, root.InlineChainContains(callSite))
	require.True(t, inlined.IsInlined())
	require.False(t, root.IsInlined())
}
