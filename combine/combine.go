// Package combine is the peephole combiner: the worklist-driven engine
// that repeatedly visits a function's instructions and asks the rule
// registered for that instruction's opcode whether a simpler equivalent
// form exists, until fixpoint (§4.3, §4.4).
package combine

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/slowlang/silopt/build"
	"github.com/slowlang/silopt/internal/invariant"
	"github.com/slowlang/silopt/ir"
	"github.com/slowlang/silopt/stats"
)

type (
	resultKind int

	// Result is what a rule hands back to the driver. NoChange leaves
	// the instruction untouched. Replace supersedes it wholesale with a
	// single value the driver moves uses to and then erases the
	// original. Handled means the rule itself performed whatever
	// erasures/insertions it needed (e.g. it produced more than one new
	// instruction, or erased more than the instruction it was called
	// on) and Touched lists every value the driver must re-enqueue the
	// producers and users of.
	Result struct {
		kind    resultKind
		value   *ir.Value
		touched []*ir.Value
	}

	// Rule is the per-opcode rewrite function. It must be pure w.r.t.
	// failure (§4.1 "restart-safe" applies here too, transitively,
	// through the matchers it uses) and must not erase an instruction
	// with live uses.
	Rule func(c *Combiner, inst *ir.Instruction) Result

	// Combiner is the per-run context a rule gets: the function being
	// rewritten, a builder positioned for inserting helpers, and the
	// stats counters.
	Combiner struct {
		Func  *ir.Function
		B     *build.Builder
		Stats *stats.Counters

		// StripChecks makes cond_fail and unconditional_checked_cast
		// rules treat every runtime check as removable, as in a build
		// configured to trust its casts and preconditions.
		StripChecks bool
	}
)

const (
	noChange resultKind = iota
	replaced
	handled
)

func NoChange() Result { return Result{kind: noChange} }

// ReplaceWith supersedes the current instruction with an existing or
// newly built value; the driver moves all uses of the old result to it
// and erases the original.
func ReplaceWith(v *ir.Value) Result { return Result{kind: replaced, value: v} }

// Handled tells the driver the rule already did its own erasing and
// inserting; touched lists values whose producers/users need
// re-enqueuing.
func Handled(touched ...*ir.Value) Result { return Result{kind: handled, touched: touched} }

var dispatch = map[ir.Opcode]Rule{}

// Register wires a rule function to the opcode it handles; called from
// each rules_*.go file's init(). This is the "table of opcode → rule
// function pointers" the design notes call out as the alternative to a
// visitor hierarchy.
func Register(op ir.Opcode, r Rule) {
	if _, dup := dispatch[op]; dup {
		panic("combine: duplicate rule registration for " + string(op))
	}

	dispatch[op] = r
}

// RunCombiner mutates f to a fixpoint under the rule catalog and reports
// whether anything changed — the first of the core's two entry points
// (§6).
func RunCombiner(ctx context.Context, f *ir.Function, st *stats.Counters) (changed bool) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "combine: run", "func", f.Name)
	defer tr.Finish()

	_ = ctx

	if st == nil {
		st = stats.New()
	}

	c := &Combiner{Func: f, B: build.New(f), Stats: st}

	wl := newWorklist()
	wl.seed(f)

	for wl.Len() > 0 {
		inst := wl.Pop()

		if inst.Erased() {
			continue
		}

		rule, ok := dispatch[inst.Opcode()]
		if !ok {
			continue
		}

		c.B.SetInsertionPoint(inst.Block, inst)

		res := rule(c, inst)

		switch res.kind {
		case noChange:
			continue

		case replaced:
			changed = true

			old := inst.ResultValue()
			invariant.Assertf(old != nil, "rule for %s returned Replace on a result-less instruction", inst.Opcode())

			c.reenqueueUsers(wl, old)
			ir.ReplaceAllUsesWith(old, res.value)
			ir.EraseInst(inst)
			c.reenqueueProducer(wl, res.value)

			st.Inc("sil-combine")

			tr.V("dump_rewrite").Printw("rewrite", "opcode", inst.Opcode(), "into", res.value)

		case handled:
			changed = true

			for _, v := range res.touched {
				c.reenqueueProducer(wl, v)
				c.reenqueueUsers(wl, v)
			}

			st.Inc("sil-combine")

			tr.V("dump_rewrite").Printw("rewrite (handled)", "opcode", inst.Opcode())
		}
	}

	return changed
}

func (c *Combiner) reenqueueUsers(wl *worklist, v *ir.Value) {
	if v == nil {
		return
	}

	for _, u := range v.Uses() {
		wl.Push(u.User)
	}
}

func (c *Combiner) reenqueueProducer(wl *worklist, v *ir.Value) {
	if v == nil || v.Def == nil {
		return
	}

	wl.Push(v.Def)
}
