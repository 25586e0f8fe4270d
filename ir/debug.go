package ir

import "tlog.app/go/tlog/tlwire"

type (
	ScopeID int64

	// DebugScope is a node in the per-function debug-scope tree. After
	// inlining the tree becomes a DAG (§9): the same callee scope can be
	// reused by several inline sites, each producing a distinct inlined
	// scope whose InlinedCallSite points at that site's call-site scope.
	DebugScope struct {
		id ScopeID

		Loc    Location
		Parent *DebugScope
		Func   *Function

		// InlinedCallSite is non-nil exactly when this scope represents
		// instructions that were inlined from elsewhere; it points at the
		// call-site scope in the caller.
		InlinedCallSite *DebugScope
	}
)

func NewRootScope(f *Function, loc Location) *DebugScope {
	return &DebugScope{Loc: loc, Func: f}
}

func (s *DebugScope) Child(loc Location) *DebugScope {
	return &DebugScope{Loc: loc, Parent: s, Func: s.Func}
}

// IsInlined reports whether s (or any ancestor) is an inlined scope.
func (s *DebugScope) IsInlined() bool {
	for x := s; x != nil; x = x.Parent {
		if x.InlinedCallSite != nil {
			return true
		}
	}

	return false
}

// InlineChainContains reports whether callSite appears anywhere along s's
// InlinedCallSite chain — the property invariant 6 of the spec checks.
func (s *DebugScope) InlineChainContains(callSite *DebugScope) bool {
	for x := s; x != nil; x = x.InlinedCallSite {
		if x == callSite {
			return true
		}

		for p := x.Parent; p != nil; p = p.Parent {
			if p == callSite {
				return true
			}
		}
	}

	return false
}

func (s *DebugScope) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	if s == nil {
		return e.AppendNil(b)
	}

	b = e.AppendMap(b, -1)
	b = e.AppendKeyString(b, "file", s.Loc.File)
	b = e.AppendKeyInt(b, "line", s.Loc.Line)
	b = e.AppendKey(b, "inlined")
	b = e.AppendBool(b, s.InlinedCallSite != nil)
	b = e.AppendBreak(b)

	return b
}
