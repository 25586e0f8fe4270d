package ir

type (
	Apply struct {
		nonTerminator
		Callee *Value
		Args   []*Value

		// NumIndirectResults counts leading Args that are indirect-result
		// addresses rather than ordinary arguments, per the callee's
		// convention; needed by the thin_to_thick_function fold, which
		// only fires when there is no indirect result.
		NumIndirectResults int
		HasSubstitutions   bool
	}

	PartialApply struct {
		nonTerminator
		Callee           *Value
		Args             []*Value // captured arguments
		HasSubstitutions bool
	}

	// FunctionRef is a direct, statically-known reference to a function.
	FunctionRef struct {
		Nullary
		Func *Function
	}

	GlobalAddr struct {
		Nullary
		Name string
		Type_ *Type
	}

	// Builtin invokes one of a closed set of primitive operations the
	// combiner knows how to fold; everything not covered by BuiltinKind's
	// documented set simply flows through unchanged.
	Builtin struct {
		NAry
		Kind BuiltinKind
		Type_ *Type
	}

	IndexRawPointer struct {
		Binary // L = base, R = index
	}

	IndexAddr struct {
		Binary // L = base, R = index
	}

	PtrToInt struct{ Unary }
	IntToPtr struct{ Unary }

	CondFail struct {
		nonTerminator
		Cond *Value
	}
)

func (Apply) Opcode() Opcode { return OpApply }
func (a *Apply) Operands() []*Value {
	ops := make([]*Value, 0, 1+len(a.Args))
	ops = append(ops, a.Callee)
	ops = append(ops, a.Args...)
	return ops
}
func (a *Apply) SetOperand(i int, v *Value) {
	if i == 0 {
		a.Callee = v
		return
	}
	a.Args[i-1] = v
}

func (PartialApply) Opcode() Opcode { return OpPartialApply }
func (a *PartialApply) Operands() []*Value {
	ops := make([]*Value, 0, 1+len(a.Args))
	ops = append(ops, a.Callee)
	ops = append(ops, a.Args...)
	return ops
}
func (a *PartialApply) SetOperand(i int, v *Value) {
	if i == 0 {
		a.Callee = v
		return
	}
	a.Args[i-1] = v
}

func (FunctionRef) Opcode() Opcode { return OpFunctionRef }
func (GlobalAddr) Opcode() Opcode  { return OpGlobalAddr }
func (Builtin) Opcode() Opcode     { return OpBuiltin }
func (IndexRawPointer) Opcode() Opcode { return OpIndexRawPointer }
func (IndexAddr) Opcode() Opcode   { return OpIndexAddr }
func (PtrToInt) Opcode() Opcode    { return OpPtrToInt }
func (IntToPtr) Opcode() Opcode    { return OpIntToPtr }

func (CondFail) Opcode() Opcode { return OpCondFail }
func (c *CondFail) Operands() []*Value { return []*Value{c.Cond} }
func (c *CondFail) SetOperand(i int, v *Value) {
	if i != 0 {
		panic("ir: CondFail: operand index out of range")
	}
	c.Cond = v
}

// StaticCallee unwraps a Value to the Function it statically refers to,
// looking through convert_function / thin_to_thick_function, since
// several apply-rewriting rules need to know "is this really calling a
// known function".
func StaticCallee(v *Value) *Function {
	for v != nil && v.Def != nil {
		switch x := v.Def.Op.(type) {
		case *FunctionRef:
			return x.Func
		case *ConvertFunction:
			v = x.X
		case *ThinToThickFunction:
			v = x.X
		default:
			return nil
		}
	}

	return nil
}
