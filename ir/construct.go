package ir

import "github.com/slowlang/silopt/internal/invariant"

// NewInstruction assigns identity, wires operand use-edges from op's
// current operands, and creates the instruction's result value (if
// resultType is non-nil). It does not insert the instruction into any
// block — that is the caller's job (package build for fresh
// instructions, package clone for cloned ones) since insertion position
// is a policy decision this constructor shouldn't have an opinion on.
func NewInstruction(f *Function, op Op, resultType *Type, loc Location, scope *DebugScope) *Instruction {
	inst := &Instruction{
		id:    f.newInstID(),
		Op:    op,
		Loc:   loc,
		Scope: scope,
	}

	operands := op.Operands()
	inst.operandUses = make([]*Use, len(operands))

	for i, opv := range operands {
		u := &Use{User: inst, Index: i, slot: -1}
		inst.operandUses[i] = u

		if opv != nil {
			opv.addUse(u)
		}
	}

	if resultType != nil {
		inst.result = &Value{Type: resultType, Def: inst}
		inst.result.id = f.newValueID()
	}

	return inst
}

// Append adds inst to the end of b and sets its parent pointer.
func (b *Block) Append(inst *Instruction) {
	inst.Block = b
	b.Insts = append(b.Insts, inst)
}

// InsertBefore splices inst into b immediately before at. at == nil
// appends to the end.
func (b *Block) InsertBefore(inst *Instruction, at *Instruction) {
	inst.Block = b

	pos := len(b.Insts)
	if at != nil {
		pos = b.Index(at)
		if pos < 0 {
			panic("ir: InsertBefore: instruction not found in block")
		}
	}

	b.Insts = append(b.Insts, nil)
	copy(b.Insts[pos+1:], b.Insts[pos:])
	b.Insts[pos] = inst
}

// ReplaceAllUsesWith moves every use-edge pointing at old to point at
// repl instead, in time proportional to old's use count. old and repl
// must carry the same type; callers (peephole rules) are expected to
// have checked that already since a mismatch here is an internal
// invariant violation, not a recoverable condition.
func ReplaceAllUsesWith(old, repl *Value) {
	if old == repl {
		return
	}

	invariant.Assertf(old.Type == nil || repl.Type == nil || old.Type.Equal(repl.Type),
		"ReplaceAllUsesWith: type mismatch (%v vs %v)", old.Type, repl.Type)

	uses := old.uses
	old.uses = nil

	for _, u := range uses {
		u.slot = -1
		u.User.Op.SetOperand(u.Index, repl)
		repl.addUse(u)
	}
}

// EraseInst removes inst from its block. It panics if inst still has a
// live result use — erasing an instruction with live users is an
// internal invariant violation (§7), never silently tolerated.
func EraseInst(inst *Instruction) {
	invariant.Assertf(inst.result == nil || !inst.result.HasUses(),
		"EraseInst: %%%d still has live uses", inst.id)

	for _, u := range inst.operandUses {
		if u.Value != nil {
			u.Value.removeUse(u)
		}
	}

	inst.erased = true

	b := inst.Block
	pos := b.Index(inst)

	if pos < 0 {
		return
	}

	copy(b.Insts[pos:], b.Insts[pos+1:])
	b.Insts = b.Insts[:len(b.Insts)-1]
}
