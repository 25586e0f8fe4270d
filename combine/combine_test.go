package combine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slowlang/silopt/build"
	"github.com/slowlang/silopt/combine"
	"github.com/slowlang/silopt/ir"
)

func newFunc(name string) (*ir.Function, *ir.Block, *build.Builder) {
	f := ir.NewFunction(name)
	entry := f.NewBlock()
	f.Entry = entry
	b := build.New(f)
	b.SetInsertionPoint(entry, nil)
	return f, entry, b
}

var loc = ir.Location{File: "t.go", Line: 1}

func TestFoldUpcastCollapsesChain(t *testing.T) {
	f, entry, b := newFunc("f")

	base := &ir.ClassInfo{Name: "Base"}
	mid := &ir.ClassInfo{Name: "Mid", Superclass: base}
	leaf := &ir.ClassInfo{Name: "Leaf", Superclass: mid}

	obj := b.CreateIntegerLiteral(loc, nil, 0, ir.ReferenceType(leaf))
	up1 := b.CreateUpcast(loc, nil, obj.ResultValue(), ir.ReferenceType(mid))
	up2 := b.CreateUpcast(loc, nil, up1.ResultValue(), ir.ReferenceType(base))
	b.CreateReleaseValue(loc, nil, up2.ResultValue())
	b.CreateReturn(loc, nil, nil)

	changed := combine.RunCombiner(context.Background(), f, nil)
	require.True(t, changed)

	for _, inst := range entry.Insts {
		if uc, ok := inst.Op.(*ir.Upcast); ok {
			require.Equal(t, obj.ResultValue(), uc.X, "collapsed upcast should read straight from obj")
		}
	}
}

func TestFoldRetainValueOfTrivialTypeIsErased(t *testing.T) {
	f, _, b := newFunc("f")

	lit := b.CreateIntegerLiteral(loc, nil, 1, ir.TrivialType())
	retain := b.CreateRetainValue(loc, nil, lit.ResultValue())
	b.CreateReturn(loc, nil, nil)

	changed := combine.RunCombiner(context.Background(), f, nil)
	require.True(t, changed)
	require.True(t, retain.Erased())
}

func TestFoldRetainValueOfReferenceBecomesStrongRetain(t *testing.T) {
	f, entry, b := newFunc("f")

	class := &ir.ClassInfo{Name: "C"}
	obj := b.CreateIntegerLiteral(loc, nil, 0, ir.ReferenceType(class))
	b.CreateRetainValue(loc, nil, obj.ResultValue())
	b.CreateReturn(loc, nil, nil)

	combine.RunCombiner(context.Background(), f, nil)

	var sawStrongRetain bool
	for _, inst := range entry.Insts {
		if _, ok := inst.Op.(*ir.RetainValue); ok {
			t.Fatalf("retain_value of a reference type should not survive")
		}
		if sr, ok := inst.Op.(*ir.StrongRetain); ok && sr.X == obj.ResultValue() {
			sawStrongRetain = true
		}
	}
	require.True(t, sawStrongRetain)
}

func TestAdjacentReleaseRetainPairCancels(t *testing.T) {
	f, entry, b := newFunc("f")

	class := &ir.ClassInfo{Name: "C"}
	obj := b.CreateIntegerLiteral(loc, nil, 0, ir.ReferenceType(class))
	b.CreateStrongRelease(loc, nil, obj.ResultValue())
	b.CreateStrongRetain(loc, nil, obj.ResultValue())
	b.CreateReturn(loc, nil, nil)

	combine.RunCombiner(context.Background(), f, nil)

	for _, inst := range entry.Insts {
		switch inst.Op.(type) {
		case *ir.StrongRetain, *ir.StrongRelease:
			t.Fatalf("adjacent release/retain pair should have cancelled, found %v", inst.Op.Opcode())
		}
	}
}

func TestAdjacentReleaseValueRetainValuePairCancels(t *testing.T) {
	f, entry, b := newFunc("f")

	// A two-payload enum falls through every one of foldRetainValue's/
	// foldReleaseValue's own type-driven rewrites (not trivial, no
	// reference semantics, more than one payloaded case), so the only
	// thing that can remove this pair is the adjacency check itself.
	class := &ir.ClassInfo{Name: "C"}
	enumType := ir.EnumType(
		ir.EnumCase{Name: "a", Payload: ir.ReferenceType(class)},
		ir.EnumCase{Name: "b", Payload: ir.ReferenceType(class)},
	)

	obj := b.CreateIntegerLiteral(loc, nil, 0, enumType)
	b.CreateReleaseValue(loc, nil, obj.ResultValue())
	b.CreateRetainValue(loc, nil, obj.ResultValue())
	b.CreateReturn(loc, nil, nil)

	combine.RunCombiner(context.Background(), f, nil)

	for _, inst := range entry.Insts {
		switch inst.Op.(type) {
		case *ir.RetainValue, *ir.ReleaseValue:
			t.Fatalf("adjacent release_value/retain_value pair should have cancelled, found %v", inst.Op.Opcode())
		}
	}
}

func TestFoldStrongRetainOfThinToThickFunctionIsErased(t *testing.T) {
	f, entry, b := newFunc("f")

	fn := ir.NewFunction("callee")
	fnEntry := fn.NewBlock()
	fn.Entry = fnEntry

	fnRef := b.CreateFunctionRef(loc, nil, fn, nil, ir.TrivialType())
	thick := b.CreateThinToThickFunction(loc, nil, fnRef.ResultValue(), ir.FunctionType(nil, ir.TrivialType()))
	b.CreateStrongRetain(loc, nil, thick.ResultValue())
	b.CreateReturn(loc, nil, nil)

	changed := combine.RunCombiner(context.Background(), f, nil)
	require.True(t, changed)

	for _, inst := range entry.Insts {
		if _, ok := inst.Op.(*ir.StrongRetain); ok {
			t.Fatalf("strong_retain of a thin_to_thick_function should be erased")
		}
	}
}

func TestFoldUncheckedAddrCastLoadsOnlyRefusesBoundGenericStructs(t *testing.T) {
	f, entry, b := newFunc("f")

	srcType := &ir.Type{Kind: ir.Aggregate, Fields: []*ir.Type{ir.TrivialType()}, Bound: true}
	targetType := &ir.Type{Kind: ir.Aggregate, Fields: []*ir.Type{ir.TrivialType(), ir.TrivialType()}, Bound: true}

	addr := b.CreateAllocStack(loc, nil, srcType)
	cast := b.CreateUncheckedAddrCast(loc, nil, addr.ResultValue(), ir.AddressOf(targetType))
	b.CreateLoad(loc, nil, cast.ResultValue())
	b.CreateReturn(loc, nil, nil)

	combine.RunCombiner(context.Background(), f, nil)

	var sawCast bool
	for _, inst := range entry.Insts {
		if inst == cast {
			sawCast = !inst.Erased()
		}
	}
	require.True(t, sawCast, "cast between two bound generic structs must not be sunk past its loads")
}

func TestFoldPointerToAddressStridedIndexRawPointer(t *testing.T) {
	f, entry, b := newFunc("f")

	elemType := ir.StructType(ir.TrivialType())
	target := ir.AddressOf(elemType)
	tupleType := ir.TupleType(ir.TrivialType(), ir.TrivialType())

	base := entry.AddParam(ir.TrivialType())
	distance := entry.AddParam(ir.TrivialType())

	meta := b.CreateMetatype(loc, nil, ir.Thin, elemType)
	stride := b.CreateBuiltin(loc, nil, ir.BuiltinStrideOf, []*ir.Value{meta.ResultValue()}, ir.TrivialType())
	smul := b.CreateBuiltin(loc, nil, ir.BuiltinSMulOver, []*ir.Value{distance, stride.ResultValue()}, tupleType)
	product := b.CreateTupleExtract(loc, nil, smul.ResultValue(), 0, ir.TrivialType())
	idx := b.CreateIndexRawPointer(loc, nil, base, product.ResultValue(), ir.TrivialType())
	b.CreatePointerToAddress(loc, nil, idx.ResultValue(), target)
	b.CreateReturn(loc, nil, nil)

	changed := combine.RunCombiner(context.Background(), f, nil)
	require.True(t, changed)

	var sawIndexAddr, sawBaseCast bool
	for _, inst := range entry.Insts {
		if inst.Erased() {
			continue
		}
		if ia, ok := inst.Op.(*ir.IndexAddr); ok && ia.R == distance {
			sawIndexAddr = true
		}
		if pta, ok := inst.Op.(*ir.PointerToAddress); ok && pta.X == base {
			sawBaseCast = true
		}
	}
	require.True(t, sawIndexAddr, "strided pointerToAddress should fold to indexAddr(pointerToAddress(base), distance)")
	require.True(t, sawBaseCast, "the folded indexAddr's base should be pointerToAddress(base) directly")
}

func TestFoldPointerToAddressRefusesUnstridedIndexRawPointer(t *testing.T) {
	f, entry, b := newFunc("f")

	elemType := ir.TrivialType()
	target := ir.AddressOf(elemType)

	base := entry.AddParam(ir.TrivialType())
	n := entry.AddParam(ir.TrivialType())

	idx := b.CreateIndexRawPointer(loc, nil, base, n, ir.TrivialType())
	pta := b.CreatePointerToAddress(loc, nil, idx.ResultValue(), target)
	b.CreateReturn(loc, nil, nil)

	combine.RunCombiner(context.Background(), f, nil)

	var stillThere bool
	for _, inst := range entry.Insts {
		if inst == pta {
			stillThere = !inst.Erased()
		}
	}
	require.True(t, stillThere, "an unstrided index_raw_pointer must not be reinterpreted as an element distance")
}

func TestFoldApplyThinToThickFunctionSkippedWithSubstitutions(t *testing.T) {
	f, entry, b := newFunc("f")

	callee := ir.NewFunction("callee")
	callee.NewBlock()

	fnRef := b.CreateFunctionRef(loc, nil, callee, nil, ir.TrivialType())
	thick := b.CreateThinToThickFunction(loc, nil, fnRef.ResultValue(), ir.FunctionType(nil, ir.TrivialType()))
	call := b.CreateApply(loc, nil, thick.ResultValue(), nil, ir.TrivialType())
	call.Op.(*ir.Apply).HasSubstitutions = true
	b.CreateReturn(loc, nil, nil)

	combine.RunCombiner(context.Background(), f, nil)

	for _, inst := range entry.Insts {
		if ap, ok := inst.Op.(*ir.Apply); ok {
			require.Equal(t, thick.ResultValue(), ap.Callee, "apply with substitutions must not be redirected past thin_to_thick_function")
		}
	}
}

func TestFoldApplyThinToThickFunctionSkippedWithIndirectResult(t *testing.T) {
	f, entry, b := newFunc("f")

	callee := ir.NewFunction("callee")
	callee.NewBlock()

	outAddr := entry.AddParam(ir.AddressOf(ir.TrivialType()))

	fnRef := b.CreateFunctionRef(loc, nil, callee, nil, ir.TrivialType())
	thick := b.CreateThinToThickFunction(loc, nil, fnRef.ResultValue(), ir.FunctionType(nil, ir.TrivialType()))
	call := b.CreateApply(loc, nil, thick.ResultValue(), []*ir.Value{outAddr}, ir.TrivialType())
	call.Op.(*ir.Apply).NumIndirectResults = 1
	b.CreateReturn(loc, nil, nil)

	combine.RunCombiner(context.Background(), f, nil)

	for _, inst := range entry.Insts {
		if ap, ok := inst.Op.(*ir.Apply); ok {
			require.Equal(t, thick.ResultValue(), ap.Callee, "apply with an indirect result must not be redirected past thin_to_thick_function")
		}
	}
}

func TestFoldApplyRewritesThroughConvertFunctionInsertingCasts(t *testing.T) {
	f, entry, b := newFunc("f")

	base := &ir.ClassInfo{Name: "Base"}
	sub := &ir.ClassInfo{Name: "Sub", Superclass: base}

	callee := ir.NewFunction("callee")
	calleeEntry := callee.NewBlock()
	callee.Entry = calleeEntry
	calleeEntry.AddParam(ir.ReferenceType(base))

	fnRef := b.CreateFunctionRef(loc, nil, callee, []*ir.Type{ir.ReferenceType(base)}, ir.TrivialType())
	converted := ir.FunctionType([]*ir.Type{ir.ReferenceType(sub)}, ir.TrivialType())
	conv := b.CreateConvertFunction(loc, nil, fnRef.ResultValue(), converted)

	obj := b.CreateIntegerLiteral(loc, nil, 0, ir.ReferenceType(sub))
	b.CreateApply(loc, nil, conv.ResultValue(), []*ir.Value{obj.ResultValue()}, ir.TrivialType())
	b.CreateReturn(loc, nil, nil)

	changed := combine.RunCombiner(context.Background(), f, nil)
	require.True(t, changed)

	var sawCast bool
	for _, inst := range entry.Insts {
		if ap, ok := inst.Op.(*ir.Apply); ok {
			require.Equal(t, fnRef.ResultValue(), ap.Callee, "apply should be reissued against the original callee")
		}
		// The inserted unchecked_ref_cast Sub -> Base is itself folded
		// into an upcast of obj by the cast rules before the fixpoint.
		if up, ok := inst.Op.(*ir.Upcast); ok && up.X == obj.ResultValue() {
			sawCast = true
		}
	}
	require.True(t, sawCast, "an argument whose type differs between the two signatures needs a cast inserted")
}

func TestIsEffectlessDeadCallErasesTransitiveDebugValueUses(t *testing.T) {
	f, entry, b := newFunc("f")

	class := &ir.ClassInfo{Name: "C"}
	callee := ir.NewFunction("callee")
	callee.Effects = ir.EffectsReadOnly
	calleeEntry := callee.NewBlock()
	callee.Entry = calleeEntry
	calleeEntry.AddParam(ir.ReferenceType(class))

	obj := b.CreateIntegerLiteral(loc, nil, 0, ir.ReferenceType(class))
	fnRef := b.CreateFunctionRef(loc, nil, callee, []*ir.Type{ir.ReferenceType(class)}, ir.TrivialType())
	call := b.CreateApply(loc, nil, fnRef.ResultValue(), []*ir.Value{obj.ResultValue()}, ir.TrivialType())
	b.CreateDebugValue(loc, nil, call.ResultValue(), "r")
	b.CreateReturn(loc, nil, nil)

	changed := combine.RunCombiner(context.Background(), f, nil)
	require.True(t, changed)

	var sawRelease bool
	for _, inst := range entry.Insts {
		if inst.Erased() {
			continue
		}
		if _, ok := inst.Op.(*ir.Apply); ok {
			t.Fatalf("effectless dead call should have been erased")
		}
		if _, ok := inst.Op.(*ir.DebugValue); ok {
			t.Fatalf("transitively dead debug_value should have been erased alongside the call")
		}
		// The release_value emitted at the call site is specialized to a
		// strong_release, since obj has reference semantics.
		if rel, ok := inst.Op.(*ir.StrongRelease); ok && rel.X == obj.ResultValue() {
			sawRelease = true
		}
	}
	require.True(t, sawRelease, "the consumed non-trivial argument must be released once at the erased call site")
}

func TestFoldStringConcatApplyOfTwoLiterals(t *testing.T) {
	f, _, b := newFunc("f")

	strType := ir.TrivialType()

	// string.makeUTF8's own operands are literal, length, isASCII, and a
	// result-type token; four Args plus the callee makes the five
	// operands the fold's shape check expects.
	makeUTF8 := ir.NewFunction("makeUTF8")
	makeUTF8.Semantics = []string{ir.SemanticsStringMakeUTF8}
	makeUTF8.Transparent = true
	makerParams := []*ir.Type{strType, strType, strType, strType}
	{
		e := makeUTF8.NewBlock()
		makeUTF8.Entry = e
		p := e.AddParam(strType)
		e.AddParam(strType)
		e.AddParam(strType)
		e.AddParam(strType)
		mb := build.New(makeUTF8)
		mb.SetInsertionPoint(e, nil)
		mb.CreateReturn(loc, nil, p)
	}

	concat := ir.NewFunction("concat")
	concat.Semantics = []string{ir.SemanticsStringConcat}
	concat.Effects = ir.EffectsReadOnly // the fold skips read-write concat callees

	typeToken := b.CreateIntegerLiteral(loc, nil, 0, strType).ResultValue()

	lhsLit := b.CreateStringLiteral(loc, nil, "foo", ir.UTF8, strType)
	lhsLen := b.CreateIntegerLiteral(loc, nil, 3, strType)
	lhsAscii := b.CreateIntegerLiteral(loc, nil, 1, strType)
	lhsRef := b.CreateFunctionRef(loc, nil, makeUTF8, makerParams, strType)
	lhsArgs := []*ir.Value{lhsLit.ResultValue(), lhsLen.ResultValue(), lhsAscii.ResultValue(), typeToken}
	lhsCall := b.CreateApply(loc, nil, lhsRef.ResultValue(), lhsArgs, strType)

	rhsLit := b.CreateStringLiteral(loc, nil, "bar", ir.UTF8, strType)
	rhsLen := b.CreateIntegerLiteral(loc, nil, 3, strType)
	rhsAscii := b.CreateIntegerLiteral(loc, nil, 1, strType)
	rhsRef := b.CreateFunctionRef(loc, nil, makeUTF8, makerParams, strType)
	rhsArgs := []*ir.Value{rhsLit.ResultValue(), rhsLen.ResultValue(), rhsAscii.ResultValue(), typeToken}
	rhsCall := b.CreateApply(loc, nil, rhsRef.ResultValue(), rhsArgs, strType)

	concatRef := b.CreateFunctionRef(loc, nil, concat, []*ir.Type{strType, strType}, strType)
	call := b.CreateApply(loc, nil, concatRef.ResultValue(), []*ir.Value{lhsCall.ResultValue(), rhsCall.ResultValue()}, strType)
	b.CreateRetainValue(loc, nil, call.ResultValue())
	b.CreateReturn(loc, nil, nil)

	changed := combine.RunCombiner(context.Background(), f, nil)
	require.True(t, changed)

	var foundLit, foundLen, foundAscii bool
	f.AllInsts(func(inst *ir.Instruction) {
		switch op := inst.Op.(type) {
		case *ir.StringLiteral:
			if op.Value == "foobar" {
				foundLit = true
			}
		case *ir.IntegerLiteral:
			if op.Value == 6 {
				foundLen = true
			}
			if op.Value == 1 {
				foundAscii = true
			}
		}
	})
	require.True(t, foundLit, "expected a folded \"foobar\" literal")
	require.True(t, foundLen, "expected a length literal of 6")
	require.True(t, foundAscii, "expected an isAscii literal of 1")
}
