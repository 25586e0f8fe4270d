package combine

import (
	"sort"

	"github.com/slowlang/silopt/ir"
	"github.com/slowlang/silopt/types"
)

func init() {
	Register(ir.OpStructExtract, foldStructExtract)
	Register(ir.OpUncheckedEnumData, foldUncheckedEnumData)
	Register(ir.OpSwitchEnumAddr, foldSwitchEnumAddr)
	Register(ir.OpLoad, foldLoad)
}

// structExtract(uncheckedRefBitCast X->Y, field z) -> uncheckedRefBitCast
// X->Z(x), only if the field's struct type has exactly one stored
// property and the operand type is non-trivial and non-archetype.
func foldStructExtract(c *Combiner, inst *ir.Instruction) Result {
	se := inst.Op.(*ir.StructExtract)

	rbc, ok := defOp[*ir.UncheckedRefBitCast](se.X)
	if !ok {
		return NoChange()
	}

	// rbc casts X -> Y; se extracts field z of Y, so Y is se's operand
	// type, not rbc's own operand type.
	structType := se.X.Type

	if types.IsTrivial(structType) || structType.Archetype {
		return NoChange()
	}

	fieldType, single := types.SingleStoredProperty(structType)
	if !single {
		return NoChange()
	}

	nv := c.B.CreateUncheckedRefBitCast(inst.Loc, inst.Scope, rbc.X, fieldType).ResultValue()

	return ReplaceWith(nv)
}

// uncheckedEnumData(uncheckedRefBitCast X->Y, case #z) ->
// uncheckedRefBitCast X->Z(x), only if #z is the first payloaded case of
// the enum.
func foldUncheckedEnumData(c *Combiner, inst *ir.Instruction) Result {
	ed := inst.Op.(*ir.UncheckedEnumData)

	rbc, ok := defOp[*ir.UncheckedRefBitCast](ed.X)
	if !ok {
		return NoChange()
	}

	enumType := ed.X.Type

	firstIdx, payload, ok := types.FirstPayloadedCase(enumType)
	if !ok || firstIdx != ed.Case {
		return NoChange()
	}

	nv := c.B.CreateUncheckedRefBitCast(inst.Loc, inst.Scope, rbc.X, payload).ResultValue()

	return ReplaceWith(nv)
}

// switchEnumAddr ptr -> load ptr; switchEnum, whenever the enum type is
// loadable. Cases/default are preserved verbatim.
func foldSwitchEnumAddr(c *Combiner, inst *ir.Instruction) Result {
	se := inst.Op.(*ir.SwitchEnumAddr)

	enumType := se.Addr.Type.Elem
	if !types.IsLoadable(enumType) {
		return NoChange()
	}

	c.B.SetInsertionPoint(inst.Block, inst)
	loaded := c.B.CreateLoad(inst.Loc, inst.Scope, se.Addr).ResultValue()

	c.B.CreateSwitchEnum(inst.Loc, inst.Scope, loaded, se.Cases, se.Dests, se.Default)

	ir.EraseInst(inst)

	return Handled(loaded, se.Addr)
}

// load with only struct-extract/tuple-extract users: emit, for each
// distinct projection (sorted, deduplicated), a struct/tuple element
// addr + load, redirect users, erase the aggregate load.
//
// load(upcast p) -> upcast(load p).
func foldLoad(c *Combiner, inst *ir.Instruction) Result {
	ld := inst.Op.(*ir.Load)

	if up, ok := defOp[*ir.Upcast](ld.X); ok {
		c.B.SetInsertionPoint(inst.Block, inst)
		inner := c.B.CreateLoad(inst.Loc, inst.Scope, up.X).ResultValue()
		nv := c.B.CreateUpcast(inst.Loc, inst.Scope, inner, inst.ResultValue().Type).ResultValue()

		return ReplaceWith(nv)
	}

	result := inst.ResultValue()
	if result == nil || !result.HasUses() {
		return NoChange()
	}

	type proj struct {
		isTuple bool
		index   int
	}

	seen := map[proj]bool{}
	var projs []proj

	for _, u := range result.Uses() {
		switch x := u.User.Op.(type) {
		case *ir.StructExtract:
			p := proj{false, x.Field}
			if !seen[p] {
				seen[p] = true
				projs = append(projs, p)
			}
		case *ir.TupleExtract:
			p := proj{true, x.Index}
			if !seen[p] {
				seen[p] = true
				projs = append(projs, p)
			}
		default:
			return NoChange() // some other user; the aggregate load must stay
		}
	}

	if len(projs) == 0 {
		return NoChange()
	}

	sort.Slice(projs, func(i, j int) bool {
		if projs[i].isTuple != projs[j].isTuple {
			return !projs[i].isTuple
		}
		return projs[i].index < projs[j].index
	})

	c.B.SetInsertionPoint(inst.Block, inst)

	loads := map[proj]*ir.Value{}
	touched := []*ir.Value{ld.X}

	for _, p := range projs {
		var addr *ir.Instruction
		aggType := ld.X.Type.Elem

		if p.isTuple {
			addr = c.B.CreateTupleElementAddr(inst.Loc, inst.Scope, ld.X, p.index, aggType.Fields[p.index])
		} else {
			addr = c.B.CreateStructElementAddr(inst.Loc, inst.Scope, ld.X, p.index, aggType.Fields[p.index])
		}

		l := c.B.CreateLoad(inst.Loc, inst.Scope, addr.ResultValue())
		loads[p] = l.ResultValue()
		touched = append(touched, addr.ResultValue(), l.ResultValue())
	}

	// redirect every extract user to the corresponding fresh load
	for _, u := range append([]*ir.Use{}, result.Uses()...) {
		var p proj

		switch x := u.User.Op.(type) {
		case *ir.StructExtract:
			p = proj{false, x.Field}
		case *ir.TupleExtract:
			p = proj{true, x.Index}
		}

		old := u.User.ResultValue()
		ir.ReplaceAllUsesWith(old, loads[p])
		ir.EraseInst(u.User)
		touched = append(touched, loads[p])
	}

	ir.EraseInst(inst)

	return Handled(touched...)
}
