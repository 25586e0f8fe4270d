package ir

// Cast family. Every one of these is a single-operand, single-result
// conversion; the peephole rules in package combine collapse chains of
// them and retarget them across intervening producers.

type (
	Upcast                  struct{ Unary }
	UncheckedRefCast        struct{ Unary }
	UncheckedAddrCast       struct{ Unary }
	UncheckedTrivialBitCast struct{ Unary }
	UncheckedRefBitCast     struct{ Unary }
	RefToRawPointer         struct{ Unary }
	RawPointerToRef         struct{ Unary }
	PointerToAddress        struct{ Unary }
	AddressToPointer        struct{ Unary }
	ThickToObjCMetatype     struct{ Unary }
	ObjCToThickMetatype     struct{ Unary }
	ConvertFunction         struct{ Unary }
	ThinToThickFunction     struct{ Unary }

	// UnconditionalCheckedCast covers both the address and the reference
	// forms; which one applies is a property of the operand's type, not
	// a distinct opcode (mirrors the source: both lower to the same
	// "trap on failure" cast, only the underlying value kind differs).
	UnconditionalCheckedCast struct{ Unary }
)

func (Upcast) Opcode() Opcode                  { return OpUpcast }
func (UncheckedRefCast) Opcode() Opcode        { return OpUncheckedRefCast }
func (UncheckedAddrCast) Opcode() Opcode       { return OpUncheckedAddrCast }
func (UncheckedTrivialBitCast) Opcode() Opcode { return OpUncheckedTrivialBitCast }
func (UncheckedRefBitCast) Opcode() Opcode     { return OpUncheckedRefBitCast }
func (RefToRawPointer) Opcode() Opcode         { return OpRefToRawPointer }
func (RawPointerToRef) Opcode() Opcode         { return OpRawPointerToRef }
func (PointerToAddress) Opcode() Opcode        { return OpPointerToAddress }
func (AddressToPointer) Opcode() Opcode        { return OpAddressToPointer }
func (ThickToObjCMetatype) Opcode() Opcode     { return OpThickToObjCMetatype }
func (ObjCToThickMetatype) Opcode() Opcode     { return OpObjCToThickMetatype }
func (ConvertFunction) Opcode() Opcode         { return OpConvertFunction }
func (ThinToThickFunction) Opcode() Opcode     { return OpThinToThickFunction }
func (UnconditionalCheckedCast) Opcode() Opcode { return OpUnconditionalCheckedCast }

// Metatype producers. Metatype has no operand (it names an instance type
// directly); ValueMetatype/ExistentialMetatype derive from a value.

type (
	Metatype struct {
		Nullary
		Repr         MetatypeRepr
		InstanceType *Type
	}

	ValueMetatype struct {
		Unary
		Repr MetatypeRepr
	}

	ExistentialMetatype struct {
		Unary
		Repr MetatypeRepr
	}

	ObjCProtocol struct {
		Nullary
		Name string
	}
)

func (Metatype) Opcode() Opcode            { return OpMetatype }
func (ValueMetatype) Opcode() Opcode       { return OpValueMetatype }
func (ExistentialMetatype) Opcode() Opcode { return OpExistentialMetatype }
func (ObjCProtocol) Opcode() Opcode        { return OpObjCProtocol }
