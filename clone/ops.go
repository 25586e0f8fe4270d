package clone

import "github.com/slowlang/silopt/ir"

// cloneOp deep-copies op's concrete instruction node, remapping every
// value and block operand through cl. Every opcode the ir package
// defines has a case here; a new opcode with no case is a build-time
// omission the inliner would otherwise silently miscompile around, so
// unknown ops panic rather than fall through unmapped.
func cloneOp(op ir.Op, cl *Cloner) ir.Op {
	mv := cl.MapValue
	mb := cl.MapBlock

	mvs := func(vs []*ir.Value) []*ir.Value {
		if vs == nil {
			return nil
		}
		out := make([]*ir.Value, len(vs))
		for i, v := range vs {
			out[i] = mv(v)
		}
		return out
	}

	switch x := op.(type) {

	// casts
	case *ir.Upcast:
		return &ir.Upcast{Unary: u1(mv(x.X))}
	case *ir.UncheckedRefCast:
		return &ir.UncheckedRefCast{Unary: u1(mv(x.X))}
	case *ir.UncheckedAddrCast:
		return &ir.UncheckedAddrCast{Unary: u1(mv(x.X))}
	case *ir.UncheckedTrivialBitCast:
		return &ir.UncheckedTrivialBitCast{Unary: u1(mv(x.X))}
	case *ir.UncheckedRefBitCast:
		return &ir.UncheckedRefBitCast{Unary: u1(mv(x.X))}
	case *ir.RefToRawPointer:
		return &ir.RefToRawPointer{Unary: u1(mv(x.X))}
	case *ir.RawPointerToRef:
		return &ir.RawPointerToRef{Unary: u1(mv(x.X))}
	case *ir.PointerToAddress:
		return &ir.PointerToAddress{Unary: u1(mv(x.X))}
	case *ir.AddressToPointer:
		return &ir.AddressToPointer{Unary: u1(mv(x.X))}
	case *ir.ThickToObjCMetatype:
		return &ir.ThickToObjCMetatype{Unary: u1(mv(x.X))}
	case *ir.ObjCToThickMetatype:
		return &ir.ObjCToThickMetatype{Unary: u1(mv(x.X))}
	case *ir.ConvertFunction:
		return &ir.ConvertFunction{Unary: u1(mv(x.X))}
	case *ir.ThinToThickFunction:
		return &ir.ThinToThickFunction{Unary: u1(mv(x.X))}
	case *ir.UnconditionalCheckedCast:
		return &ir.UnconditionalCheckedCast{Unary: u1(mv(x.X))}
	case *ir.Metatype:
		return &ir.Metatype{Repr: x.Repr, InstanceType: x.InstanceType}
	case *ir.ValueMetatype:
		return &ir.ValueMetatype{Unary: u1(mv(x.X)), Repr: x.Repr}
	case *ir.ExistentialMetatype:
		return &ir.ExistentialMetatype{Unary: u1(mv(x.X)), Repr: x.Repr}
	case *ir.ObjCProtocol:
		return &ir.ObjCProtocol{Name: x.Name}

	// memory / aggregates / enums
	case *ir.Load:
		return &ir.Load{Unary: u1(mv(x.X))}
	case *ir.Store:
		return &ir.Store{Value_: mv(x.Value_), Addr: mv(x.Addr)}
	case *ir.StructExtract:
		return &ir.StructExtract{Unary: u1(mv(x.X)), Field: x.Field}
	case *ir.TupleExtract:
		return &ir.TupleExtract{Unary: u1(mv(x.X)), Index: x.Index}
	case *ir.StructElementAddr:
		return &ir.StructElementAddr{Unary: u1(mv(x.X)), Field: x.Field}
	case *ir.TupleElementAddr:
		return &ir.TupleElementAddr{Unary: u1(mv(x.X)), Index: x.Index}
	case *ir.Tuple:
		return &ir.Tuple{NAry: ir.NAry{Args: mvs(x.Args)}}
	case *ir.Struct:
		return &ir.Struct{NAry: ir.NAry{Args: mvs(x.Args)}, Type_: x.Type_}
	case *ir.Enum:
		return &ir.Enum{NAry: ir.NAry{Args: mvs(x.Args)}, Case: x.Case}
	case *ir.UncheckedEnumData:
		return &ir.UncheckedEnumData{Unary: u1(mv(x.X)), Case: x.Case}
	case *ir.UncheckedTakeEnumDataAddr:
		return &ir.UncheckedTakeEnumDataAddr{Unary: u1(mv(x.X)), Case: x.Case}
	case *ir.InjectEnumAddr:
		return &ir.InjectEnumAddr{Addr: mv(x.Addr), Case: x.Case}
	case *ir.InitEnumDataAddr:
		return &ir.InitEnumDataAddr{Unary: u1(mv(x.X)), Case: x.Case}
	case *ir.SwitchEnum:
		return &ir.SwitchEnum{Val: mv(x.Val), Cases: x.Cases, Dests: mbs(x.Dests, mb), Default: mb(x.Default)}
	case *ir.SwitchEnumAddr:
		return &ir.SwitchEnumAddr{Addr: mv(x.Addr), Cases: x.Cases, Dests: mbs(x.Dests, mb), Default: mb(x.Default)}
	case *ir.AllocStack:
		return &ir.AllocStack{Type_: x.Type_}
	case *ir.DeallocStack:
		return &ir.DeallocStack{Unary: u1(mv(x.X))}
	case *ir.DestroyAddr:
		return &ir.DestroyAddr{Unary: u1(mv(x.X))}
	case *ir.InitExistentialAddr:
		return &ir.InitExistentialAddr{Unary: u1(mv(x.X)), ConcreteType: x.ConcreteType}

	// control flow
	case *ir.Branch:
		return &ir.Branch{Dest: mb(x.Dest), Args: mvs(x.Args)}
	case *ir.CondBranch:
		return &ir.CondBranch{
			Cond:      mv(x.Cond),
			True:      mb(x.True),
			TrueArgs:  mvs(x.TrueArgs),
			False:     mb(x.False),
			FalseArgs: mvs(x.FalseArgs),
		}
	case *ir.Return:
		return &ir.Return{Val: mv(x.Val)}
	case *ir.Unreachable:
		return &ir.Unreachable{}

	// reference counting
	case *ir.RetainValue:
		return &ir.RetainValue{Unary: u1(mv(x.X))}
	case *ir.ReleaseValue:
		return &ir.ReleaseValue{Unary: u1(mv(x.X))}
	case *ir.StrongRetain:
		return &ir.StrongRetain{Unary: u1(mv(x.X))}
	case *ir.StrongRelease:
		return &ir.StrongRelease{Unary: u1(mv(x.X))}

	// calls / builtins
	case *ir.Apply:
		return &ir.Apply{
			Callee:             mv(x.Callee),
			Args:               mvs(x.Args),
			NumIndirectResults: x.NumIndirectResults,
			HasSubstitutions:   x.HasSubstitutions,
		}
	case *ir.PartialApply:
		return &ir.PartialApply{Callee: mv(x.Callee), Args: mvs(x.Args), HasSubstitutions: x.HasSubstitutions}
	case *ir.FunctionRef:
		return &ir.FunctionRef{Func: x.Func}
	case *ir.GlobalAddr:
		return &ir.GlobalAddr{Name: x.Name, Type_: x.Type_}
	case *ir.Builtin:
		return &ir.Builtin{NAry: ir.NAry{Args: mvs(x.Args)}, Kind: x.Kind, Type_: x.Type_}
	case *ir.IndexRawPointer:
		return &ir.IndexRawPointer{Binary: ir.Binary{L: mv(x.L), R: mv(x.R)}}
	case *ir.IndexAddr:
		return &ir.IndexAddr{Binary: ir.Binary{L: mv(x.L), R: mv(x.R)}}
	case *ir.PtrToInt:
		return &ir.PtrToInt{Unary: u1(mv(x.X))}
	case *ir.IntToPtr:
		return &ir.IntToPtr{Unary: u1(mv(x.X))}
	case *ir.CondFail:
		return &ir.CondFail{Cond: mv(x.Cond)}

	// misc
	case *ir.IntegerLiteral:
		return &ir.IntegerLiteral{Value: x.Value}
	case *ir.StringLiteral:
		return &ir.StringLiteral{Value: x.Value, Encoding: x.Encoding}
	case *ir.DebugValue:
		return &ir.DebugValue{Unary: u1(mv(x.X)), VarName: x.VarName}
	case *ir.DebugValueAddr:
		return &ir.DebugValueAddr{Unary: u1(mv(x.X)), VarName: x.VarName}
	case *ir.FixLifetime:
		return &ir.FixLifetime{Unary: u1(mv(x.X))}
	}

	panic("clone: unhandled opcode in cloneOp")
}

func u1(v *ir.Value) ir.Unary { return ir.Unary{X: v} }

func mbs(bs []*ir.Block, mb func(*ir.Block) *ir.Block) []*ir.Block {
	if bs == nil {
		return nil
	}
	out := make([]*ir.Block, len(bs))
	for i, b := range bs {
		out[i] = mb(b)
	}
	return out
}
