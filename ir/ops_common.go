package ir

// Unary, Binary and NAry factor out the Operands/SetOperand boilerplate
// shared by most opcodes; each concrete opcode type embeds the shape it
// needs and supplies its own Opcode().

type Unary struct {
	nonTerminator
	X *Value
}

func (u *Unary) Operands() []*Value { return []*Value{u.X} }

func (u *Unary) SetOperand(i int, v *Value) {
	if i != 0 {
		panic("ir: Unary: operand index out of range")
	}

	u.X = v
}

type Binary struct {
	nonTerminator
	L, R *Value
}

func (b *Binary) Operands() []*Value { return []*Value{b.L, b.R} }

func (b *Binary) SetOperand(i int, v *Value) {
	switch i {
	case 0:
		b.L = v
	case 1:
		b.R = v
	default:
		panic("ir: Binary: operand index out of range")
	}
}

type NAry struct {
	nonTerminator
	Args []*Value
}

func (n *NAry) Operands() []*Value { return n.Args }

func (n *NAry) SetOperand(i int, v *Value) { n.Args[i] = v }

type Nullary struct {
	nonTerminator
}

func (Nullary) Operands() []*Value       { return nil }
func (Nullary) SetOperand(int, *Value) {}
