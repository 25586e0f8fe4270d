package combine

import (
	"github.com/slowlang/silopt/ir"
	"github.com/slowlang/silopt/types"
)

func init() {
	Register(ir.OpInjectEnumAddr, foldInjectEnumAddr)
	Register(ir.OpUncheckedTakeEnumDataAddr, foldUncheckedTakeEnumDataAddr)
}

// For a loadable enum whose injected case has no payload: replace
// injectEnumAddr with store enum(case) to addr.
//
// For a payloaded case: if the instruction immediately preceding in the
// same block is store payload to (initEnumDataAddr addr, case) and that
// initEnumDataAddr has exactly that one user addressing the same base,
// collapse to store enum(case, payload) to addr and erase the two
// predecessors.
func foldInjectEnumAddr(c *Combiner, inst *ir.Instruction) Result {
	inj := inst.Op.(*ir.InjectEnumAddr)

	enumType := inj.Addr.Type.Elem
	if !types.IsLoadable(enumType) {
		return NoChange()
	}

	if types.NoPayloadCase(enumType, inj.Case) {
		c.B.SetInsertionPoint(inst.Block, inst)
		enumVal := c.B.CreateEnum(inst.Loc, inst.Scope, enumType, inj.Case, nil).ResultValue()
		st := c.B.CreateStore(inst.Loc, inst.Scope, enumVal, inj.Addr)

		ir.EraseInst(inst)

		return Handled(enumVal, st.ResultValue(), inj.Addr)
	}

	idx := inst.Block.Index(inst)
	if idx <= 0 {
		return NoChange()
	}

	prev := inst.Block.Insts[idx-1]

	store, ok := prev.Op.(*ir.Store)
	if !ok {
		return NoChange()
	}

	initData, ok := defOp[*ir.InitEnumDataAddr](store.Addr)
	if !ok || initData.Case != inj.Case {
		return NoChange()
	}

	if initData.X != inj.Addr {
		return NoChange()
	}

	if store.Addr.NumUses() != 1 {
		return NoChange()
	}

	payload := store.Value_

	c.B.SetInsertionPoint(inst.Block, inst)
	enumVal := c.B.CreateEnum(inst.Loc, inst.Scope, enumType, inj.Case, payload).ResultValue()
	st := c.B.CreateStore(inst.Loc, inst.Scope, enumVal, inj.Addr)

	ir.EraseInst(inst)
	ir.EraseInst(prev)
	initDataInst := store.Addr.Def
	ir.EraseInst(initDataInst)

	return Handled(enumVal, st.ResultValue(), payload, inj.Addr)
}

// If a uncheckedTakeEnumDataAddr is non-address-only and every user is a
// load, rewrite each user as uncheckedEnumData(load addr, case) and
// erase.
func foldUncheckedTakeEnumDataAddr(c *Combiner, inst *ir.Instruction) Result {
	td := inst.Op.(*ir.UncheckedTakeEnumDataAddr)

	result := inst.ResultValue()
	if result == nil || !result.HasUses() {
		return NoChange()
	}

	payloadAddrType := result.Type
	if types.IsAddressOnly(payloadAddrType.Elem) {
		return NoChange()
	}

	for _, u := range result.Uses() {
		if _, ok := u.User.Op.(*ir.Load); !ok {
			return NoChange()
		}
	}

	payloadType := payloadAddrType.Elem

	touched := []*ir.Value{td.X}

	for _, u := range append([]*ir.Use{}, result.Uses()...) {
		ld := u.User

		c.B.SetInsertionPoint(ld.Block, ld)
		loadedEnum := c.B.CreateLoad(ld.Loc, ld.Scope, td.X).ResultValue()
		ued := c.B.CreateUncheckedEnumData(ld.Loc, ld.Scope, loadedEnum, td.Case, payloadType)

		ir.ReplaceAllUsesWith(ld.ResultValue(), ued.ResultValue())
		ir.EraseInst(ld)

		touched = append(touched, loadedEnum, ued.ResultValue())
	}

	ir.EraseInst(inst)

	return Handled(touched...)
}
