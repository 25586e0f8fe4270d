package combine

import (
	"github.com/slowlang/silopt/internal/invariant"
	"github.com/slowlang/silopt/ir"
)

// stringMakerCall decomposes a call to a string.makeUTF8/makeUTF16
// function applied to a string literal into the operands the concat
// fold needs to rebuild an equivalent call. makeUTF8 carries an isASCII
// operand that makeUTF16 doesn't (asciiVal is nil there); both carry a
// trailing result-type operand the fold must preserve verbatim.
type stringMakerCall struct {
	litOp     *ir.StringLiteral
	litVal    *ir.Value
	lengthOp  *ir.IntegerLiteral
	lengthVal *ir.Value
	asciiOp   *ir.IntegerLiteral
	asciiVal  *ir.Value
	typeVal   *ir.Value
	maker     *ir.Function
}

// foldStringConcatApply recognizes apply(concatFn, apply(makeFn1, ...),
// apply(makeFn2, ...)) where concatFn carries the string.concat
// semantics tag and both operands were themselves built from string
// literals via string.makeUTF8/makeUTF16 calls, and replaces the whole
// expression with a single call constructing the concatenated literal
// directly. The result promotes to UTF16 if either operand did.
//
// ok is false whenever the shape doesn't match, so the caller can fall
// through to its other apply folds.
func foldStringConcatApply(c *Combiner, inst *ir.Instruction, ap *ir.Apply) (Result, bool) {
	callee := ir.StaticCallee(ap.Callee)
	if callee == nil || !callee.HasSemantics(ir.SemanticsStringConcat) || callee.Effects >= ir.EffectsReadWrite {
		return Result{}, false
	}

	if len(ap.Args) != 2 {
		return Result{}, false
	}

	lhs, ok := stringMakerArg(ap.Args[0])
	if !ok {
		return Result{}, false
	}

	rhs, ok := stringMakerArg(ap.Args[1])
	if !ok {
		return Result{}, false
	}

	invariant.Assertf(lhs.lengthOp.Value == lhs.litOp.CodeUnitCount(),
		"string.concat: makeUTF8/16 length operand disagrees with literal %q", lhs.litOp.Value)
	invariant.Assertf(rhs.lengthOp.Value == rhs.litOp.CodeUnitCount(),
		"string.concat: makeUTF8/16 length operand disagrees with literal %q", rhs.litOp.Value)

	enc := ir.UTF8
	if lhs.maker.HasSemantics(ir.SemanticsStringMakeUTF16) || rhs.maker.HasSemantics(ir.SemanticsStringMakeUTF16) {
		enc = ir.UTF16
	}

	winner := lhs
	if enc == ir.UTF16 && !lhs.maker.HasSemantics(ir.SemanticsStringMakeUTF16) {
		if !rhs.maker.HasSemantics(ir.SemanticsStringMakeUTF16) {
			return Result{}, false
		}
		winner = rhs
	}

	concatenated := lhs.litOp.Value + rhs.litOp.Value
	length := lhs.litOp.CodeUnitCount() + rhs.litOp.CodeUnitCount()

	resultType := inst.ResultValue().Type

	c.B.SetInsertionPoint(inst.Block, inst)

	lit := c.B.CreateStringLiteral(inst.Loc, inst.Scope, concatenated, enc, lhs.litVal.Type).ResultValue()
	lengthLit := c.B.CreateIntegerLiteral(inst.Loc, inst.Scope, length, winner.lengthVal.Type).ResultValue()

	newArgs := []*ir.Value{lit, lengthLit}
	touched := []*ir.Value{lit, lengthLit}

	if enc == ir.UTF8 {
		ascii := int64(0)
		if lhs.asciiOp.Value != 0 && rhs.asciiOp.Value != 0 {
			ascii = 1
		}
		asciiLit := c.B.CreateIntegerLiteral(inst.Loc, inst.Scope, ascii, winner.asciiVal.Type).ResultValue()
		newArgs = append(newArgs, asciiLit)
		touched = append(touched, asciiLit)
	}

	newArgs = append(newArgs, winner.typeVal)

	params := make([]*ir.Type, len(newArgs))
	for i, a := range newArgs {
		params[i] = a.Type
	}

	ref := c.B.CreateFunctionRef(inst.Loc, inst.Scope, winner.maker, params, resultType).ResultValue()
	nv := c.B.CreateApply(inst.Loc, inst.Scope, ref, newArgs, resultType).ResultValue()

	touched = append(touched, ref, nv)

	old := inst.ResultValue()
	ir.ReplaceAllUsesWith(old, nv)
	ir.EraseInst(inst)

	return Handled(append(touched, ap.Args[0], ap.Args[1])...), true
}

// stringMakerArg reports whether v is the result of a call to a
// string.makeUTF8/makeUTF16 maker: literal, code-unit-count length,
// (UTF8 only) isASCII, and a trailing result-type operand. makeUTF16
// calls carry 3 Args (no isASCII), makeUTF8 calls carry 4; the callee is
// not among the Args (it is the apply's operand 0), so counting it the
// calls have 4 and 5 operands.
func stringMakerArg(v *ir.Value) (stringMakerCall, bool) {
	mkApply, ok := defOp[*ir.Apply](v)
	if !ok {
		return stringMakerCall{}, false
	}

	maker := ir.StaticCallee(mkApply.Callee)
	if maker == nil {
		return stringMakerCall{}, false
	}

	isUTF8 := maker.HasSemantics(ir.SemanticsStringMakeUTF8)
	isUTF16 := maker.HasSemantics(ir.SemanticsStringMakeUTF16)
	if !isUTF8 && !isUTF16 {
		return stringMakerCall{}, false
	}

	wantArgs := 3
	if isUTF8 {
		wantArgs = 4
	}
	if len(mkApply.Args) != wantArgs {
		return stringMakerCall{}, false
	}

	litVal := mkApply.Args[0]
	lit, ok := defOp[*ir.StringLiteral](litVal)
	if !ok {
		return stringMakerCall{}, false
	}

	lengthVal := mkApply.Args[1]
	length, ok := defOp[*ir.IntegerLiteral](lengthVal)
	if !ok {
		return stringMakerCall{}, false
	}

	call := stringMakerCall{
		litOp:     lit,
		litVal:    litVal,
		lengthOp:  length,
		lengthVal: lengthVal,
		maker:     maker,
	}

	if isUTF8 {
		asciiVal := mkApply.Args[2]
		ascii, ok := defOp[*ir.IntegerLiteral](asciiVal)
		if !ok {
			return stringMakerCall{}, false
		}
		call.asciiOp, call.asciiVal = ascii, asciiVal
		call.typeVal = mkApply.Args[3]
	} else {
		call.typeVal = mkApply.Args[2]
	}

	return call, true
}
