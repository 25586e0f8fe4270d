package combine

import "github.com/slowlang/silopt/ir"

func init() {
	Register(ir.OpAllocStack, foldExistentialAllocStack)
}

// An allocStack whose only users are one initExistentialAddr, some
// destroyAddrs and one deallocStack is replaced by an allocStack of the
// concrete payload type directly; destroys and the dealloc are rewired
// to the new allocation and the initExistentialAddr is erased.
func foldExistentialAllocStack(c *Combiner, inst *ir.Instruction) Result {
	result := inst.ResultValue()
	if result == nil {
		return NoChange()
	}

	var initEx *ir.Instruction
	var destroys []*ir.Instruction
	var dealloc *ir.Instruction

	for _, u := range result.Uses() {
		switch u.User.Op.(type) {
		case *ir.InitExistentialAddr:
			if initEx != nil {
				return NoChange()
			}
			initEx = u.User
		case *ir.DestroyAddr:
			destroys = append(destroys, u.User)
		case *ir.DeallocStack:
			if dealloc != nil {
				return NoChange()
			}
			dealloc = u.User
		default:
			return NoChange()
		}
	}

	if initEx == nil || dealloc == nil {
		return NoChange()
	}

	concrete := initEx.Op.(*ir.InitExistentialAddr).ConcreteType

	c.B.SetInsertionPoint(inst.Block, inst)
	newAlloc := c.B.CreateAllocStack(inst.Loc, inst.Scope, concrete)

	touched := []*ir.Value{newAlloc.ResultValue()}

	initExVal := initEx.ResultValue()
	if initExVal != nil {
		ir.ReplaceAllUsesWith(initExVal, newAlloc.ResultValue())
	}
	ir.EraseInst(initEx)

	for _, d := range destroys {
		d.SetOperand(0, newAlloc.ResultValue())
		touched = append(touched, d.ResultValue())
	}

	dealloc.SetOperand(0, newAlloc.ResultValue())
	touched = append(touched, dealloc.ResultValue())

	ir.EraseInst(inst)

	return Handled(touched...)
}
