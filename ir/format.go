package ir

import "tlog.app/go/tlog/tlwire"

// TlogAppend renders a use-edge compactly for trace dumps, mirroring the
// teacher's ir.Link.TlogAppend: a bare id, since the full textual printer
// is out of scope for this core.
func (v *Value) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	if v == nil {
		return e.AppendNil(b)
	}

	return e.AppendFormat(b, "%%%d", int64(v.id))
}

func (i *Instruction) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	if i == nil {
		return e.AppendNil(b)
	}

	return e.AppendFormat(b, "%%%d(%s)", int64(i.id), i.Op.Opcode())
}
