package inline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slowlang/silopt/build"
	"github.com/slowlang/silopt/inline"
	"github.com/slowlang/silopt/ir"
)

var loc = ir.Location{File: "t.go", Line: 1}

func buildIdentity() *ir.Function {
	callee := ir.NewFunction("identity")
	callee.Transparent = true
	entry := callee.NewBlock()
	callee.Entry = entry
	callee.RootScope = ir.NewRootScope(callee, loc)
	p := entry.AddParam(ir.TrivialType())

	b := build.New(callee)
	b.SetInsertionPoint(entry, nil)
	b.CreateReturn(loc, callee.RootScope, p)

	return callee
}

func buildCallerCalling(callee *ir.Function) (*ir.Function, *ir.Instruction) {
	caller := ir.NewFunction("caller")
	entry := caller.NewBlock()
	caller.Entry = entry
	caller.RootScope = ir.NewRootScope(caller, loc)

	b := build.New(caller)
	b.SetInsertionPoint(entry, nil)

	lit := b.CreateIntegerLiteral(loc, caller.RootScope, 9, ir.TrivialType())
	ref := b.CreateFunctionRef(loc, caller.RootScope, callee, []*ir.Type{ir.TrivialType()}, ir.TrivialType())
	call := b.CreateApply(loc, caller.RootScope, ref.ResultValue(), []*ir.Value{lit.ResultValue()}, ir.TrivialType())
	b.CreateReturn(loc, caller.RootScope, call.ResultValue())

	return caller, call
}

func TestCanInlineRefusesDirectRecursion(t *testing.T) {
	f := ir.NewFunction("f")
	f.NewBlock()

	ok, reason := inline.CanInline(f, f, inline.Mandatory)
	require.False(t, ok)
	require.Equal(t, "direct recursion", reason)
}

func TestCanInlineRefusesNonTransparentUnderMandatory(t *testing.T) {
	caller := ir.NewFunction("caller")
	callee := ir.NewFunction("callee")
	callee.NewBlock()

	ok, _ := inline.CanInline(caller, callee, inline.Mandatory)
	require.False(t, ok)
}

func TestCanInlineRefusesForeignCallingConventionUnderMandatory(t *testing.T) {
	caller := ir.NewFunction("caller")
	callee := ir.NewFunction("callee")
	callee.Transparent = true
	callee.CC = ir.CCForeign
	callee.NewBlock()

	ok, reason := inline.CanInline(caller, callee, inline.Mandatory)
	require.False(t, ok)
	require.Equal(t, "foreign calling convention", reason)
}

func TestCanInlineAcceptsTransparentUnderMandatory(t *testing.T) {
	caller := ir.NewFunction("caller")
	callee := buildIdentity()

	ok, _ := inline.CanInline(caller, callee, inline.Mandatory)
	require.True(t, ok)
}

func TestInlineCallSplicesStraightLineCalleeAndErasesCall(t *testing.T) {
	callee := buildIdentity()
	caller, call := buildCallerCalling(callee)

	ok, err := inline.InlineCall(context.Background(), call, inline.Mandatory, nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, call.Erased())

	ret := caller.Entry.Terminator().Op.(*ir.Return)
	lit, isLit := ret.Val.Def.Op.(*ir.IntegerLiteral)
	require.True(t, isLit, "identity's inlined return should resolve straight back to the caller's own literal")
	require.EqualValues(t, 9, lit.Value)

	require.Equal(t, 1, callee.InlineRefCount())
}

// buildIdentityWithDeadBlock returns identity() plus an unreachable
// second block, so the callee still takes the general (multi-block)
// inline path even though its entry itself ends in a plain return.
func buildIdentityWithDeadBlock() *ir.Function {
	callee := buildIdentity()

	dead := callee.NewBlock()
	db := build.New(callee)
	db.SetInsertionPoint(dead, nil)
	deadLit := db.CreateIntegerLiteral(loc, callee.RootScope, 0, ir.TrivialType())
	db.CreateReturn(loc, callee.RootScope, deadLit.ResultValue())

	return callee
}

func TestInlineGeneralPathConvertsReturningEntryToBranch(t *testing.T) {
	callee := buildIdentityWithDeadBlock()
	caller, call := buildCallerCalling(callee)

	ok, err := inline.InlineCall(context.Background(), call, inline.Mandatory, nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, call.Erased())

	br, isBranch := caller.Entry.Terminator().Op.(*ir.Branch)
	require.True(t, isBranch, "caller's entry should branch to the continuation instead of keeping callee's own return")
	require.Len(t, br.Args, 1)

	lit, isLit := br.Args[0].Def.Op.(*ir.IntegerLiteral)
	require.True(t, isLit, "entry's returned value should resolve straight back to the caller's own literal")
	require.EqualValues(t, 9, lit.Value)
}

func TestInlineCallReturnsFalseWhenCalleeNotStatic(t *testing.T) {
	caller := ir.NewFunction("caller")
	entry := caller.NewBlock()
	caller.Entry = entry
	caller.RootScope = ir.NewRootScope(caller, loc)

	b := build.New(caller)
	b.SetInsertionPoint(entry, nil)

	indirect := entry.AddParam(ir.FunctionType([]*ir.Type{ir.TrivialType()}, ir.TrivialType()))
	arg := b.CreateIntegerLiteral(loc, caller.RootScope, 1, ir.TrivialType())
	call := b.CreateApply(loc, caller.RootScope, indirect, []*ir.Value{arg.ResultValue()}, ir.TrivialType())
	b.CreateReturn(loc, caller.RootScope, call.ResultValue())

	ok, err := inline.InlineCall(context.Background(), call, inline.Mandatory, nil)
	require.NoError(t, err)
	require.False(t, ok)
	require.False(t, call.Erased())
}

func TestClassifyInstructionTreatsTypedGEPAndCastsAsFree(t *testing.T) {
	caller := ir.NewFunction("caller")
	f := ir.NewFunction("f")
	entry := f.NewBlock()
	f.Entry = entry

	fieldType := ir.TrivialType()
	structType := ir.StructType(fieldType)

	b := build.New(f)
	b.SetInsertionPoint(entry, nil)

	addr := b.CreateAllocStack(loc, nil, structType)
	fieldAddr := b.CreateStructElementAddr(loc, nil, addr.ResultValue(), 0, fieldType)
	metatype := b.CreateMetatype(loc, nil, ir.Thin, structType)

	require.Equal(t, inline.Free, inline.ClassifyInstruction(fieldAddr, caller))
	require.Equal(t, inline.Free, inline.ClassifyInstruction(metatype, caller))
}

func TestClassifyInstructionTreatsThickMetatypeAsExpensive(t *testing.T) {
	caller := ir.NewFunction("caller")
	f := ir.NewFunction("f")
	entry := f.NewBlock()
	f.Entry = entry

	b := build.New(f)
	b.SetInsertionPoint(entry, nil)

	metatype := b.CreateMetatype(loc, nil, ir.Thick, ir.TrivialType())

	require.Equal(t, inline.Expensive, inline.ClassifyInstruction(metatype, caller))
}

func TestGetFunctionCostZeroForTransparent(t *testing.T) {
	callee := buildIdentity()
	caller := ir.NewFunction("caller")

	require.Equal(t, 0, inline.GetFunctionCost(callee, caller, inline.Threshold))
}

func TestGetFunctionCostSentinelOnDirectRecursion(t *testing.T) {
	caller := ir.NewFunction("caller")
	entry := caller.NewBlock()
	caller.Entry = entry
	caller.RootScope = ir.NewRootScope(caller, loc)

	b := build.New(caller)
	b.SetInsertionPoint(entry, nil)
	ref := b.CreateFunctionRef(loc, caller.RootScope, caller, []*ir.Type{}, ir.TrivialType())
	b.CreateApply(loc, caller.RootScope, ref.ResultValue(), nil, ir.TrivialType())
	b.CreateReturn(loc, caller.RootScope, nil)

	require.Equal(t, inline.Sentinel, inline.GetFunctionCost(caller, caller, inline.Threshold))
}
