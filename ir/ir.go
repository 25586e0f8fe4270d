// Package ir is the in-memory SSA instruction model the combiner and
// inliner operate on: typed values, use-edges, basic blocks and
// functions grouped into a package.
package ir

import (
	"fmt"
)

type (
	ValueID int64
	InstID  int64
	BlockID int64
	FuncID  int64

	// Location is a source position. The core never parses or prints
	// source text; it only carries locations through so debug scopes
	// stay attributable.
	Location struct {
		File string
		Line int
		Col  int
	}

	// Value is anything an operand edge can point to: an instruction
	// result or a block parameter.
	Value struct {
		id   ValueID
		Type *Type

		Def   *Instruction // producing instruction, nil for a block parameter
		Block *Block       // owning block, set only for block parameters
		Index int          // parameter index within Block.Params, meaningless otherwise

		uses []*Use
	}

	// Use is a directed edge from an operand slot to the Value it reads.
	// All edges into a Value are reachable from Value.uses in O(1) per
	// edge; that is what lets ReplaceAllUsesWith and EraseInst run in
	// time proportional to the number of uses, not the size of the
	// function.
	Use struct {
		Value *Value
		User  *Instruction
		Index int

		slot int // this use's position within Value.uses
	}

	// Instruction is the tagged-union node: Op carries the opcode-specific
	// payload (operands, immediates), Instruction carries the identity
	// and bookkeeping shared by every opcode.
	Instruction struct {
		id    InstID
		Op    Op
		Block *Block
		Loc   Location
		Scope *DebugScope

		result *Value

		operandUses []*Use
		erased      bool
	}

	// Block is an ordered sequence of instructions ending in exactly one
	// terminator, with SSA-join parameters standing in for phi nodes.
	Block struct {
		id     BlockID
		Func   *Function
		Params []*Value
		Insts  []*Instruction
	}

	// Function owns an ordered list of blocks, the first being the entry
	// block, plus the attributes the cost model and combiner rules read.
	Function struct {
		id   FuncID
		Name string

		Blocks []*Block
		Entry  *Block

		Transparent bool
		Effects     EffectsKind
		CC          CallingConv
		Semantics   []string

		RootScope *DebugScope

		inlineRefCount int

		nextValue ValueID
		nextInst  InstID
		nextBlock BlockID
	}

	// Package is a compilation unit: a path and a set of functions.
	// Module-level statistics live in package stats, not here.
	Package struct {
		Path  string
		Funcs []*Function
	}
)

func (v *Value) ID() ValueID { return v.id }

func (v *Value) Uses() []*Use { return v.uses }

func (v *Value) HasUses() bool { return len(v.uses) > 0 }

func (v *Value) NumUses() int { return len(v.uses) }

// IsBlockParam reports whether v is a block parameter rather than an
// instruction result.
func (v *Value) IsBlockParam() bool { return v.Def == nil }

func (v *Value) addUse(u *Use) {
	u.slot = len(v.uses)
	u.Value = v
	v.uses = append(v.uses, u)
}

func (v *Value) removeUse(u *Use) {
	last := len(v.uses) - 1
	if u.slot != last {
		v.uses[u.slot] = v.uses[last]
		v.uses[u.slot].slot = u.slot
	}
	v.uses = v.uses[:last]
	u.Value = nil
	u.slot = -1
}

func (i *Instruction) ID() InstID { return i.id }

// ResultValue is the single value this instruction produces, or nil for
// instructions with no result (stores, terminators, retain/release, ...).
func (i *Instruction) ResultValue() *Value { return i.result }

func (i *Instruction) HasResult() bool { return i.result != nil }

func (i *Instruction) Erased() bool { return i.erased }

func (i *Instruction) Opcode() Opcode { return i.Op.Opcode() }

func (i *Instruction) IsTerminator() bool { return i.Op.IsTerminator() }

// Operands returns the current operand values in order.
func (i *Instruction) Operands() []*Value { return i.Op.Operands() }

// SetOperand rewires operand slot idx to point at v, maintaining v's and
// the old operand's use-lists. This is the only way operands may change
// after construction; Op.SetOperand alone would desync the use-lists.
func (i *Instruction) SetOperand(idx int, v *Value) {
	u := i.operandUses[idx]
	old := u.Value

	if old == v {
		return
	}

	if old != nil {
		old.removeUse(u)
	}

	i.Op.SetOperand(idx, v)

	if v != nil {
		v.addUse(u)
	} else {
		u.slot = -1
	}
}

func (i *Instruction) String() string {
	return fmt.Sprintf("%%%d = %s", i.id, i.Op.Opcode())
}

func (b *Block) ID() BlockID { return b.id }

func (b *Block) Terminator() *Instruction {
	if len(b.Insts) == 0 {
		return nil
	}

	return b.Insts[len(b.Insts)-1]
}

// Index returns the position of inst within its block, or -1.
func (b *Block) Index(inst *Instruction) int {
	for i, x := range b.Insts {
		if x == inst {
			return i
		}
	}

	return -1
}

func (f *Function) ID() FuncID { return f.id }

func (f *Function) InlineRefCount() int { return f.inlineRefCount }

func (f *Function) IncInlineRefCount() { f.inlineRefCount++ }

// AllInsts calls fn for every non-erased instruction in the function, in
// block order. Rules must not rely on this for worklist iteration (see
// package combine for the fixpoint driver); it exists for cost/inspection
// passes that just need a linear walk.
func (f *Function) AllInsts(fn func(*Instruction)) {
	for _, b := range f.Blocks {
		for _, inst := range b.Insts {
			if inst.erased {
				continue
			}

			fn(inst)
		}
	}
}

func (f *Function) newValueID() ValueID {
	f.nextValue++
	return f.nextValue
}

func (f *Function) newInstID() InstID {
	f.nextInst++
	return f.nextInst
}

func (f *Function) newBlockID() BlockID {
	id := f.nextBlock
	f.nextBlock++
	return id
}

// NewBlock appends a fresh, empty block to the function. Callers are
// responsible for giving it a terminator before the function is
// considered well-formed.
func (f *Function) NewBlock() *Block {
	b := &Block{
		id:   f.newBlockID(),
		Func: f,
	}

	f.Blocks = append(f.Blocks, b)

	return b
}

// AddParam appends a new parameter to the block and returns its value.
func (b *Block) AddParam(t *Type) *Value {
	v := &Value{
		Type:  t,
		Block: b,
		Index: len(b.Params),
	}
	v.id = b.Func.newValueID()

	b.Params = append(b.Params, v)

	return v
}

// InsertAfterBlock places dst immediately after src in the function's
// block order; used when splitting a block for the general inlining path.
func (f *Function) InsertAfterBlock(src, dst *Block) {
	idx := -1

	for i, b := range f.Blocks {
		if b == src {
			idx = i
			break
		}
	}

	if idx < 0 {
		panic("ir: InsertAfterBlock: src not found")
	}

	f.Blocks = append(f.Blocks, nil)
	copy(f.Blocks[idx+2:], f.Blocks[idx+1:])
	f.Blocks[idx+1] = dst
}

func NewFunction(name string) *Function {
	return &Function{
		Name:    name,
		Effects: EffectsReadWrite,
	}
}

func NewPackage(path string) *Package {
	return &Package{Path: path}
}
