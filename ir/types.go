package ir

type (
	TypeKind int

	MetatypeRepr int

	EffectsKind int

	CallingConv int

	// Type is the closed set of shapes the oracle (package types) reasons
	// about. It is intentionally not a full type-checker's type: only the
	// structural facts the peephole rules and cost model need.
	Type struct {
		Kind TypeKind

		// Reference / Aggregate / Enum / Address element or field types.
		Elem   *Type   // Address: pointee; Reference: nil
		Fields []*Type // Aggregate: stored properties in order

		Cases []EnumCase // Enum: cases in declaration order

		Class *ClassInfo // Reference: class metadata (nil for non-class refs)

		Repr MetatypeRepr // Metatype only

		Params []*Type // Function only: parameter types
		Result *Type   // Function only

		Archetype bool // unsubstituted generic parameter
		Bound     bool // Aggregate/Enum: is this a generic type with a concrete substitution
	}

	EnumCase struct {
		Name    string
		Payload *Type // nil for a no-payload case
	}

	// ClassInfo threads a minimal superclass chain so the oracle can
	// answer IsSuperclassOf without a full type-system dependency.
	ClassInfo struct {
		Name       string
		Superclass *ClassInfo
	}
)

const (
	Trivial TypeKind = iota
	Reference
	Aggregate
	EnumKind
	Address
	MetatypeKind
	FunctionKind
)

const (
	Thin MetatypeRepr = iota
	Thick
	ObjC
)

const (
	EffectsPure EffectsKind = iota
	EffectsReadNone
	EffectsReadOnly
	EffectsReadWrite
)

const (
	CCThin CallingConv = iota
	CCMethod
	CCObjC
	CCForeign
)

func AddressOf(elem *Type) *Type { return &Type{Kind: Address, Elem: elem} }

func TrivialType() *Type { return &Type{Kind: Trivial} }

func ReferenceType(class *ClassInfo) *Type { return &Type{Kind: Reference, Class: class} }

func StructType(fields ...*Type) *Type { return &Type{Kind: Aggregate, Fields: fields} }

func TupleType(fields ...*Type) *Type { return &Type{Kind: Aggregate, Fields: fields} }

func EnumType(cases ...EnumCase) *Type { return &Type{Kind: EnumKind, Cases: cases} }

func MetatypeType(repr MetatypeRepr, instance *Type) *Type {
	return &Type{Kind: MetatypeKind, Repr: repr, Elem: instance}
}

func FunctionType(params []*Type, result *Type) *Type {
	return &Type{Kind: FunctionKind, Params: params, Result: result}
}

// Equal is a structural comparison sufficient for the peephole rules
// (layout-compatibility, "operand type differs between signatures"); it
// is not full type-checker equivalence for generics with constraints.
func (t *Type) Equal(o *Type) bool {
	if t == o {
		return true
	}

	if t == nil || o == nil {
		return false
	}

	if t.Kind != o.Kind {
		return false
	}

	switch t.Kind {
	case Reference:
		return t.Class == o.Class
	case Address, MetatypeKind:
		if t.Kind == MetatypeKind && t.Repr != o.Repr {
			return false
		}

		return t.Elem.Equal(o.Elem)
	case Aggregate:
		if len(t.Fields) != len(o.Fields) {
			return false
		}

		for i := range t.Fields {
			if !t.Fields[i].Equal(o.Fields[i]) {
				return false
			}
		}

		return true
	case EnumKind:
		if len(t.Cases) != len(o.Cases) {
			return false
		}

		for i := range t.Cases {
			if t.Cases[i].Name != o.Cases[i].Name {
				return false
			}

			if (t.Cases[i].Payload == nil) != (o.Cases[i].Payload == nil) {
				return false
			}

			if t.Cases[i].Payload != nil && !t.Cases[i].Payload.Equal(o.Cases[i].Payload) {
				return false
			}
		}

		return true
	case FunctionKind:
		if len(t.Params) != len(o.Params) {
			return false
		}

		for i := range t.Params {
			if !t.Params[i].Equal(o.Params[i]) {
				return false
			}
		}

		return t.Result.Equal(o.Result)
	default:
		return true
	}
}
