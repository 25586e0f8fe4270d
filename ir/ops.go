package ir

type (
	Opcode string

	// Op is the opcode-specific payload of an Instruction: the tagged
	// union. Concrete types (Upcast, Load, Apply, ...) implement it.
	// Operands/SetOperand let generic code (cloner, driver, matcher)
	// touch operand slots without a type switch on every opcode; the
	// type switch still happens exactly once, in package combine, to
	// dispatch to the rule that knows the semantics.
	Op interface {
		Opcode() Opcode
		Operands() []*Value
		SetOperand(i int, v *Value)
		IsTerminator() bool
	}

	nonTerminator struct{}
)

func (nonTerminator) IsTerminator() bool { return false }

const (
	OpUpcast                  Opcode = "upcast"
	OpUncheckedRefCast        Opcode = "unchecked_ref_cast"
	OpUncheckedAddrCast       Opcode = "unchecked_addr_cast"
	OpUncheckedTrivialBitCast Opcode = "unchecked_trivial_bit_cast"
	OpUncheckedRefBitCast     Opcode = "unchecked_ref_bit_cast"
	OpRefToRawPointer         Opcode = "ref_to_raw_pointer"
	OpRawPointerToRef         Opcode = "raw_pointer_to_ref"
	OpPointerToAddress        Opcode = "pointer_to_address"
	OpAddressToPointer        Opcode = "address_to_pointer"
	OpThickToObjCMetatype     Opcode = "thick_to_objc_metatype"
	OpObjCToThickMetatype     Opcode = "objc_to_thick_metatype"
	OpConvertFunction         Opcode = "convert_function"
	OpThinToThickFunction     Opcode = "thin_to_thick_function"
	OpUnconditionalCheckedCast Opcode = "unconditional_checked_cast"

	OpMetatype             Opcode = "metatype"
	OpValueMetatype        Opcode = "value_metatype"
	OpExistentialMetatype  Opcode = "existential_metatype"
	OpObjCProtocol         Opcode = "objc_protocol"

	OpLoad               Opcode = "load"
	OpStore              Opcode = "store"
	OpStructExtract      Opcode = "struct_extract"
	OpTupleExtract       Opcode = "tuple_extract"
	OpStructElementAddr  Opcode = "struct_element_addr"
	OpTupleElementAddr   Opcode = "tuple_element_addr"
	OpEnum               Opcode = "enum"
	OpUncheckedEnumData  Opcode = "unchecked_enum_data"
	OpUncheckedTakeEnumDataAddr Opcode = "unchecked_take_enum_data_addr"
	OpInjectEnumAddr     Opcode = "inject_enum_addr"
	OpInitEnumDataAddr   Opcode = "init_enum_data_addr"
	OpSwitchEnum         Opcode = "switch_enum"
	OpSwitchEnumAddr     Opcode = "switch_enum_addr"
	OpTuple              Opcode = "tuple"
	OpStruct             Opcode = "struct"

	OpAllocStack         Opcode = "alloc_stack"
	OpDeallocStack       Opcode = "dealloc_stack"
	OpDestroyAddr        Opcode = "destroy_addr"
	OpInitExistentialAddr Opcode = "init_existential_addr"

	OpRetainValue    Opcode = "retain_value"
	OpReleaseValue   Opcode = "release_value"
	OpStrongRetain   Opcode = "strong_retain"
	OpStrongRelease  Opcode = "strong_release"

	OpApply        Opcode = "apply"
	OpPartialApply Opcode = "partial_apply"
	OpFunctionRef  Opcode = "function_ref"
	OpGlobalAddr   Opcode = "global_addr"
	OpBuiltin      Opcode = "builtin"

	OpIndexRawPointer Opcode = "index_raw_pointer"
	OpIndexAddr       Opcode = "index_addr"
	OpPtrToInt        Opcode = "ptr_to_int"
	OpIntToPtr        Opcode = "int_to_ptr"

	OpIntegerLiteral Opcode = "integer_literal"
	OpStringLiteral  Opcode = "string_literal"

	OpBranch      Opcode = "branch"
	OpCondBranch  Opcode = "cond_branch"
	OpReturn      Opcode = "return"
	OpUnreachable Opcode = "unreachable"

	OpDebugValue     Opcode = "debug_value"
	OpDebugValueAddr Opcode = "debug_value_addr"
	OpFixLifetime    Opcode = "fix_lifetime"
	OpCondFail       Opcode = "cond_fail"
)

// BuiltinKind names the builtin function a Builtin instruction invokes.
// The core folds a handful of these (§4.4 "Builtin folding"); the rest
// simply pass through the combiner untouched.
type BuiltinKind string

const (
	BuiltinCanBeClass    BuiltinKind = "canBeClass"
	BuiltinICmpEq        BuiltinKind = "icmp_eq"
	BuiltinICmpNe        BuiltinKind = "icmp_ne"
	BuiltinSub           BuiltinKind = "sub"
	BuiltinXor           BuiltinKind = "xor"
	BuiltinSMulOver      BuiltinKind = "smul_over"
	BuiltinStrideOf      BuiltinKind = "strideof"
	BuiltinStrideOfNZ    BuiltinKind = "strideof_nonzero"
	BuiltinEnumIsTag     BuiltinKind = "enumIsTag"
	BuiltinSAddOver      BuiltinKind = "sadd_over"
	BuiltinUAddOver      BuiltinKind = "uadd_over"
)

// StringEncoding distinguishes the two string-literal maker semantics
// families the concat-folding rule promotes between.
type StringEncoding int

const (
	UTF8 StringEncoding = iota
	UTF16
)

const (
	SemanticsStringConcat    = "string.concat"
	SemanticsStringMakeUTF8  = "string.makeUTF8"
	SemanticsStringMakeUTF16 = "string.makeUTF16"
)

// HasSemantics reports whether f carries the given semantics tag.
func (f *Function) HasSemantics(tag string) bool {
	for _, s := range f.Semantics {
		if s == tag {
			return true
		}
	}

	return false
}
