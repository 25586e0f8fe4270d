package build_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slowlang/silopt/build"
	"github.com/slowlang/silopt/ir"
)

func TestCreateInsertsAtCursor(t *testing.T) {
	f := ir.NewFunction("f")
	entry := f.NewBlock()
	f.Entry = entry
	loc := ir.Location{File: "t.go", Line: 1}

	b := build.New(f)
	b.SetInsertionPoint(entry, nil)

	a := b.CreateIntegerLiteral(loc, nil, 1, ir.TrivialType())
	c := b.CreateIntegerLiteral(loc, nil, 3, ir.TrivialType())

	b.SetInsertionPoint(entry, c)
	m := b.CreateIntegerLiteral(loc, nil, 2, ir.TrivialType())

	require.Equal(t, []*ir.Instruction{a, m, c}, entry.Insts)
}

func TestWithInsertionPointRestoresOnPanic(t *testing.T) {
	f := ir.NewFunction("f")
	entry := f.NewBlock()
	other := f.NewBlock()
	f.Entry = entry
	loc := ir.Location{File: "t.go", Line: 1}

	b := build.New(f)
	b.SetInsertionPoint(entry, nil)

	require.Panics(t, func() {
		b.WithInsertionPoint(other, nil, func() {
			b.CreateIntegerLiteral(loc, nil, 1, ir.TrivialType())
			panic("boom")
		})
	})

	require.Equal(t, entry, b.InsertionBlock())
	require.Equal(t, 1, len(other.Insts))
}

func TestSetInsertionPointAfter(t *testing.T) {
	f := ir.NewFunction("f")
	entry := f.NewBlock()
	f.Entry = entry
	loc := ir.Location{File: "t.go", Line: 1}

	b := build.New(f)
	b.SetInsertionPoint(entry, nil)

	a := b.CreateIntegerLiteral(loc, nil, 1, ir.TrivialType())
	c := b.CreateIntegerLiteral(loc, nil, 3, ir.TrivialType())

	b.SetInsertionPointAfter(a)
	m := b.CreateIntegerLiteral(loc, nil, 2, ir.TrivialType())

	require.Equal(t, []*ir.Instruction{a, m, c}, entry.Insts)
}

func TestCreateApplyWiresCalleeAndArgs(t *testing.T) {
	f := ir.NewFunction("f")
	callee := ir.NewFunction("callee")
	entry := f.NewBlock()
	f.Entry = entry
	loc := ir.Location{File: "t.go", Line: 1}

	b := build.New(f)
	b.SetInsertionPoint(entry, nil)

	ref := b.CreateFunctionRef(loc, nil, callee, []*ir.Type{ir.TrivialType()}, ir.TrivialType())
	arg := b.CreateIntegerLiteral(loc, nil, 7, ir.TrivialType())
	call := b.CreateApply(loc, nil, ref.ResultValue(), []*ir.Value{arg.ResultValue()}, ir.TrivialType())

	ap := call.Op.(*ir.Apply)
	require.Equal(t, ref.ResultValue(), ap.Callee)
	require.Equal(t, []*ir.Value{arg.ResultValue()}, ap.Args)
	require.Equal(t, callee, ir.StaticCallee(ap.Callee))
}
