package main

import (
	"context"
	"fmt"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/silopt/build"
	"github.com/slowlang/silopt/combine"
	"github.com/slowlang/silopt/inline"
	"github.com/slowlang/silopt/ir"
	"github.com/slowlang/silopt/stats"
)

func main() {
	smokeCmd := &cli.Command{
		Name:        "smoke",
		Description: "build a small function in memory, run the combiner and mandatory inlining, print counters",
		Action:      smokeAct,
	}

	app := &cli.Command{
		Name:        "silopt",
		Description: "silopt exercises the peephole combiner and inliner on synthetic IR",
		Commands: []*cli.Command{
			smokeCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func smokeAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	st := stats.New()

	caller, callee := buildSmokeFunctions()

	if combine.RunCombiner(ctx, callee, st) {
		fmt.Println("combiner: callee changed")
	}

	if combine.RunCombiner(ctx, caller, st) {
		fmt.Println("combiner: caller changed")
	}

	for _, b := range caller.Blocks {
		for _, inst := range b.Insts {
			if inst.Erased() || inst.Opcode() != ir.OpApply {
				continue
			}

			ok, err := inline.InlineCall(ctx, inst, inline.Mandatory, st)
			if err != nil {
				return errors.Wrap(err, "inline smoke call")
			}
			if ok {
				fmt.Println("inline: call site inlined")
			}
		}
	}

	combine.RunCombiner(ctx, caller, st)

	n := 0
	caller.AllInsts(func(*ir.Instruction) { n++ })

	fmt.Printf("caller instructions after optimization: %d\n", n)

	for name, v := range st.Snapshot() {
		fmt.Printf("%s: %d\n", name, v)
	}

	return nil
}

// buildSmokeFunctions constructs identity, a transparent one-block
// function that returns its argument unchanged, and caller, which
// retains a trivial literal (folded away by the combiner) and calls
// identity — a call the mandatory inliner then splices away entirely.
func buildSmokeFunctions() (caller, identity *ir.Function) {
	loc := ir.Location{File: "smoke.go", Line: 1}

	identity = ir.NewFunction("identity")
	identity.Transparent = true

	entry := identity.NewBlock()
	identity.Entry = entry
	identity.RootScope = ir.NewRootScope(identity, loc)

	p := entry.AddParam(ir.TrivialType())

	ib := build.New(identity)
	ib.SetInsertionPoint(entry, nil)
	ib.CreateReturn(loc, identity.RootScope, p)

	caller = ir.NewFunction("caller")
	callerEntry := caller.NewBlock()
	caller.Entry = callerEntry
	caller.RootScope = ir.NewRootScope(caller, loc)

	cb := build.New(caller)
	cb.SetInsertionPoint(callerEntry, nil)

	lit := cb.CreateIntegerLiteral(loc, caller.RootScope, 41, ir.TrivialType())
	cb.CreateRetainValue(loc, caller.RootScope, lit.ResultValue())

	ref := cb.CreateFunctionRef(loc, caller.RootScope, identity, []*ir.Type{ir.TrivialType()}, ir.TrivialType())
	call := cb.CreateApply(loc, caller.RootScope, ref.ResultValue(), []*ir.Value{lit.ResultValue()}, ir.TrivialType())

	cb.CreateReturn(loc, caller.RootScope, call.ResultValue())

	return caller, identity
}
