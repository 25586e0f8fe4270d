// Package build is the sole creator of new instructions and use-edges
// outside of cloning. It tracks a scoped insertion cursor (a block and a
// position within it) the way a rule that needs to synthesize a helper
// instruction next to the one it's rewriting expects to.
package build

import (
	"github.com/slowlang/silopt/ir"
)

type (
	// Builder inserts new instructions at a tracked (block, position)
	// cursor and is the only thing besides package clone allowed to call
	// ir.NewInstruction.
	Builder struct {
		Func *ir.Function

		block *ir.Block
		at    *ir.Instruction // insert before this; nil means end of block
	}

	// Cursor is the (block, position) pair the scoped-relocation helpers
	// save and restore.
	Cursor struct {
		block *ir.Block
		at    *ir.Instruction
	}
)

func New(f *ir.Function) *Builder {
	return &Builder{Func: f}
}

// SetInsertionPoint moves the cursor to just before at, within block.
// at == nil means "at the end of block".
func (b *Builder) SetInsertionPoint(block *ir.Block, at *ir.Instruction) {
	b.block = block
	b.at = at
}

// SetInsertionPointAfter moves the cursor to just after at, within at's
// own block.
func (b *Builder) SetInsertionPointAfter(at *ir.Instruction) {
	b.block = at.Block

	insts := at.Block.Insts
	idx := at.Block.Index(at)

	if idx+1 < len(insts) {
		b.at = insts[idx+1]
	} else {
		b.at = nil
	}
}

func (b *Builder) InsertionBlock() *ir.Block { return b.block }

func (b *Builder) SaveCursor() Cursor { return Cursor{b.block, b.at} }

func (b *Builder) RestoreCursor(c Cursor) { b.block, b.at = c.block, c.at }

// WithInsertionPoint relocates the cursor to just before at for the
// duration of fn and restores it unconditionally afterward, including on
// panic, so a rule can never leak a relocated cursor on an early exit
// (design note "Builder cursor as scoped state").
func (b *Builder) WithInsertionPoint(block *ir.Block, at *ir.Instruction, fn func()) {
	saved := b.SaveCursor()
	defer b.RestoreCursor(saved)

	b.SetInsertionPoint(block, at)

	fn()
}

func (b *Builder) insert(op ir.Op, resultType *ir.Type, loc ir.Location, scope *ir.DebugScope) *ir.Instruction {
	if b.block == nil {
		panic("build: no insertion point set")
	}

	inst := ir.NewInstruction(b.Func, op, resultType, loc, scope)
	b.block.InsertBefore(inst, b.at)

	return inst
}

func (b *Builder) CreateLoad(loc ir.Location, scope *ir.DebugScope, addr *ir.Value) *ir.Instruction {
	elem := addr.Type.Elem
	return b.insert(&ir.Load{Unary: ir.Unary{X: addr}}, elem, loc, scope)
}

func (b *Builder) CreateStore(loc ir.Location, scope *ir.DebugScope, val, addr *ir.Value) *ir.Instruction {
	return b.insert(&ir.Store{Value_: val, Addr: addr}, nil, loc, scope)
}

func (b *Builder) CreateEnum(loc ir.Location, scope *ir.DebugScope, enumType *ir.Type, caseIdx int, payload *ir.Value) *ir.Instruction {
	var args []*ir.Value
	if payload != nil {
		args = []*ir.Value{payload}
	}

	return b.insert(&ir.Enum{NAry: ir.NAry{Args: args}, Case: caseIdx}, enumType, loc, scope)
}

func (b *Builder) CreateStructElementAddr(loc ir.Location, scope *ir.DebugScope, addr *ir.Value, field int, fieldType *ir.Type) *ir.Instruction {
	return b.insert(&ir.StructElementAddr{Unary: ir.Unary{X: addr}, Field: field}, ir.AddressOf(fieldType), loc, scope)
}

func (b *Builder) CreateTupleElementAddr(loc ir.Location, scope *ir.DebugScope, addr *ir.Value, index int, elemType *ir.Type) *ir.Instruction {
	return b.insert(&ir.TupleElementAddr{Unary: ir.Unary{X: addr}, Index: index}, ir.AddressOf(elemType), loc, scope)
}

func (b *Builder) CreateStructExtract(loc ir.Location, scope *ir.DebugScope, v *ir.Value, field int, fieldType *ir.Type) *ir.Instruction {
	return b.insert(&ir.StructExtract{Unary: ir.Unary{X: v}, Field: field}, fieldType, loc, scope)
}

func (b *Builder) CreateTupleExtract(loc ir.Location, scope *ir.DebugScope, v *ir.Value, index int, elemType *ir.Type) *ir.Instruction {
	return b.insert(&ir.TupleExtract{Unary: ir.Unary{X: v}, Index: index}, elemType, loc, scope)
}

func (b *Builder) CreateUncheckedRefCast(loc ir.Location, scope *ir.DebugScope, v *ir.Value, target *ir.Type) *ir.Instruction {
	return b.insert(&ir.UncheckedRefCast{Unary: ir.Unary{X: v}}, target, loc, scope)
}

func (b *Builder) CreateUncheckedEnumData(loc ir.Location, scope *ir.DebugScope, enumVal *ir.Value, caseIdx int, payloadType *ir.Type) *ir.Instruction {
	return b.insert(&ir.UncheckedEnumData{Unary: ir.Unary{X: enumVal}, Case: caseIdx}, payloadType, loc, scope)
}

func (b *Builder) CreateUncheckedTakeEnumDataAddr(loc ir.Location, scope *ir.DebugScope, addr *ir.Value, caseIdx int, payloadType *ir.Type) *ir.Instruction {
	return b.insert(&ir.UncheckedTakeEnumDataAddr{Unary: ir.Unary{X: addr}, Case: caseIdx}, ir.AddressOf(payloadType), loc, scope)
}

func (b *Builder) CreateInitEnumDataAddr(loc ir.Location, scope *ir.DebugScope, addr *ir.Value, caseIdx int, payloadType *ir.Type) *ir.Instruction {
	return b.insert(&ir.InitEnumDataAddr{Unary: ir.Unary{X: addr}, Case: caseIdx}, ir.AddressOf(payloadType), loc, scope)
}

func (b *Builder) CreateUncheckedAddrCast(loc ir.Location, scope *ir.DebugScope, v *ir.Value, target *ir.Type) *ir.Instruction {
	return b.insert(&ir.UncheckedAddrCast{Unary: ir.Unary{X: v}}, target, loc, scope)
}

func (b *Builder) CreateUncheckedRefBitCast(loc ir.Location, scope *ir.DebugScope, v *ir.Value, target *ir.Type) *ir.Instruction {
	return b.insert(&ir.UncheckedRefBitCast{Unary: ir.Unary{X: v}}, target, loc, scope)
}

func (b *Builder) CreateUncheckedTrivialBitCast(loc ir.Location, scope *ir.DebugScope, v *ir.Value, target *ir.Type) *ir.Instruction {
	return b.insert(&ir.UncheckedTrivialBitCast{Unary: ir.Unary{X: v}}, target, loc, scope)
}

func (b *Builder) CreateUpcast(loc ir.Location, scope *ir.DebugScope, v *ir.Value, target *ir.Type) *ir.Instruction {
	return b.insert(&ir.Upcast{Unary: ir.Unary{X: v}}, target, loc, scope)
}

func (b *Builder) CreateStringLiteral(loc ir.Location, scope *ir.DebugScope, value string, enc ir.StringEncoding, strType *ir.Type) *ir.Instruction {
	return b.insert(&ir.StringLiteral{Value: value, Encoding: enc}, strType, loc, scope)
}

func (b *Builder) CreateIntegerLiteral(loc ir.Location, scope *ir.DebugScope, value int64, intType *ir.Type) *ir.Instruction {
	return b.insert(&ir.IntegerLiteral{Value: value}, intType, loc, scope)
}

func (b *Builder) CreateApply(loc ir.Location, scope *ir.DebugScope, callee *ir.Value, args []*ir.Value, resultType *ir.Type) *ir.Instruction {
	return b.insert(&ir.Apply{Callee: callee, Args: args}, resultType, loc, scope)
}

// CreateFunctionRef materializes a direct reference to fn, typed as a
// thin function pointer over the argument/result types the caller
// already knows it needs for the call it's about to build.
func (b *Builder) CreateFunctionRef(loc ir.Location, scope *ir.DebugScope, fn *ir.Function, params []*ir.Type, result *ir.Type) *ir.Instruction {
	return b.insert(&ir.FunctionRef{Func: fn}, ir.FunctionType(params, result), loc, scope)
}

func (b *Builder) CreatePartialApply(loc ir.Location, scope *ir.DebugScope, callee *ir.Value, args []*ir.Value, closureType *ir.Type) *ir.Instruction {
	return b.insert(&ir.PartialApply{Callee: callee, Args: args}, closureType, loc, scope)
}

func (b *Builder) CreateAllocStack(loc ir.Location, scope *ir.DebugScope, elemType *ir.Type) *ir.Instruction {
	return b.insert(&ir.AllocStack{Type_: elemType}, ir.AddressOf(elemType), loc, scope)
}

func (b *Builder) CreateInitExistentialAddr(loc ir.Location, scope *ir.DebugScope, addr *ir.Value, concrete *ir.Type) *ir.Instruction {
	return b.insert(&ir.InitExistentialAddr{Unary: ir.Unary{X: addr}, ConcreteType: concrete}, addr.Type, loc, scope)
}

func (b *Builder) CreateDestroyAddr(loc ir.Location, scope *ir.DebugScope, addr *ir.Value) *ir.Instruction {
	return b.insert(&ir.DestroyAddr{Unary: ir.Unary{X: addr}}, nil, loc, scope)
}

func (b *Builder) CreateDeallocStack(loc ir.Location, scope *ir.DebugScope, addr *ir.Value) *ir.Instruction {
	return b.insert(&ir.DeallocStack{Unary: ir.Unary{X: addr}}, nil, loc, scope)
}

func (b *Builder) CreateBranch(loc ir.Location, scope *ir.DebugScope, dest *ir.Block, args []*ir.Value) *ir.Instruction {
	return b.insert(&ir.Branch{Dest: dest, Args: args}, nil, loc, scope)
}

func (b *Builder) CreateReturn(loc ir.Location, scope *ir.DebugScope, val *ir.Value) *ir.Instruction {
	return b.insert(&ir.Return{Val: val}, nil, loc, scope)
}

func (b *Builder) CreateCondBranch(loc ir.Location, scope *ir.DebugScope, cond *ir.Value, t *ir.Block, tArgs []*ir.Value, f *ir.Block, fArgs []*ir.Value) *ir.Instruction {
	return b.insert(&ir.CondBranch{Cond: cond, True: t, TrueArgs: tArgs, False: f, FalseArgs: fArgs}, nil, loc, scope)
}

func (b *Builder) CreateSwitchEnum(loc ir.Location, scope *ir.DebugScope, val *ir.Value, cases []int, dests []*ir.Block, def *ir.Block) *ir.Instruction {
	return b.insert(&ir.SwitchEnum{Val: val, Cases: cases, Dests: dests, Default: def}, nil, loc, scope)
}

func (b *Builder) CreateRetainValue(loc ir.Location, scope *ir.DebugScope, v *ir.Value) *ir.Instruction {
	return b.insert(&ir.RetainValue{Unary: ir.Unary{X: v}}, nil, loc, scope)
}

func (b *Builder) CreateReleaseValue(loc ir.Location, scope *ir.DebugScope, v *ir.Value) *ir.Instruction {
	return b.insert(&ir.ReleaseValue{Unary: ir.Unary{X: v}}, nil, loc, scope)
}

func (b *Builder) CreateStrongRetain(loc ir.Location, scope *ir.DebugScope, v *ir.Value) *ir.Instruction {
	return b.insert(&ir.StrongRetain{Unary: ir.Unary{X: v}}, nil, loc, scope)
}

func (b *Builder) CreateStrongRelease(loc ir.Location, scope *ir.DebugScope, v *ir.Value) *ir.Instruction {
	return b.insert(&ir.StrongRelease{Unary: ir.Unary{X: v}}, nil, loc, scope)
}

func (b *Builder) CreateConvertFunction(loc ir.Location, scope *ir.DebugScope, v *ir.Value, target *ir.Type) *ir.Instruction {
	return b.insert(&ir.ConvertFunction{Unary: ir.Unary{X: v}}, target, loc, scope)
}

func (b *Builder) CreateThinToThickFunction(loc ir.Location, scope *ir.DebugScope, v *ir.Value, target *ir.Type) *ir.Instruction {
	return b.insert(&ir.ThinToThickFunction{Unary: ir.Unary{X: v}}, target, loc, scope)
}

func (b *Builder) CreateIndexAddr(loc ir.Location, scope *ir.DebugScope, base, index *ir.Value, resultType *ir.Type) *ir.Instruction {
	return b.insert(&ir.IndexAddr{Binary: ir.Binary{L: base, R: index}}, resultType, loc, scope)
}

func (b *Builder) CreateBuiltin(loc ir.Location, scope *ir.DebugScope, kind ir.BuiltinKind, args []*ir.Value, resultType *ir.Type) *ir.Instruction {
	return b.insert(&ir.Builtin{NAry: ir.NAry{Args: args}, Kind: kind, Type_: resultType}, resultType, loc, scope)
}

func (b *Builder) CreateMetatype(loc ir.Location, scope *ir.DebugScope, repr ir.MetatypeRepr, instance *ir.Type) *ir.Instruction {
	return b.insert(&ir.Metatype{Repr: repr, InstanceType: instance}, ir.MetatypeType(repr, instance), loc, scope)
}

func (b *Builder) CreateValueMetatype(loc ir.Location, scope *ir.DebugScope, repr ir.MetatypeRepr, v *ir.Value) *ir.Instruction {
	instance := v.Type
	return b.insert(&ir.ValueMetatype{Unary: ir.Unary{X: v}, Repr: repr}, ir.MetatypeType(repr, instance), loc, scope)
}

func (b *Builder) CreateExistentialMetatype(loc ir.Location, scope *ir.DebugScope, repr ir.MetatypeRepr, v *ir.Value) *ir.Instruction {
	instance := v.Type
	return b.insert(&ir.ExistentialMetatype{Unary: ir.Unary{X: v}, Repr: repr}, ir.MetatypeType(repr, instance), loc, scope)
}

func (b *Builder) CreateIndexRawPointer(loc ir.Location, scope *ir.DebugScope, base, index *ir.Value, resultType *ir.Type) *ir.Instruction {
	return b.insert(&ir.IndexRawPointer{Binary: ir.Binary{L: base, R: index}}, resultType, loc, scope)
}

func (b *Builder) CreateDebugValue(loc ir.Location, scope *ir.DebugScope, v *ir.Value, varName string) *ir.Instruction {
	return b.insert(&ir.DebugValue{Unary: ir.Unary{X: v}, VarName: varName}, nil, loc, scope)
}

func (b *Builder) CreateDebugValueAddr(loc ir.Location, scope *ir.DebugScope, v *ir.Value, varName string) *ir.Instruction {
	return b.insert(&ir.DebugValueAddr{Unary: ir.Unary{X: v}, VarName: varName}, nil, loc, scope)
}

func (b *Builder) CreatePointerToAddress(loc ir.Location, scope *ir.DebugScope, v *ir.Value, target *ir.Type) *ir.Instruction {
	return b.insert(&ir.PointerToAddress{Unary: ir.Unary{X: v}}, target, loc, scope)
}

func (b *Builder) CreatePtrToInt(loc ir.Location, scope *ir.DebugScope, v *ir.Value, resultType *ir.Type) *ir.Instruction {
	return b.insert(&ir.PtrToInt{Unary: ir.Unary{X: v}}, resultType, loc, scope)
}

func (b *Builder) CreateIntToPtr(loc ir.Location, scope *ir.DebugScope, v *ir.Value, resultType *ir.Type) *ir.Instruction {
	return b.insert(&ir.IntToPtr{Unary: ir.Unary{X: v}}, resultType, loc, scope)
}

func (b *Builder) CreateThinToThickFunctionFromCallee(loc ir.Location, scope *ir.DebugScope, callee *ir.Value, target *ir.Type) *ir.Instruction {
	return b.insert(&ir.ThinToThickFunction{Unary: ir.Unary{X: callee}}, target, loc, scope)
}

func (b *Builder) CreateCondFail(loc ir.Location, scope *ir.DebugScope, cond *ir.Value) *ir.Instruction {
	return b.insert(&ir.CondFail{Cond: cond}, nil, loc, scope)
}
