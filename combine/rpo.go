package combine

import (
	"github.com/slowlang/silopt/internal/set"
	"github.com/slowlang/silopt/ir"
)

// reversePostOrder walks the function's control-flow graph from the
// entry block and returns blocks in reverse postorder — the seeding
// order §4.3 asks for, so that a use is visited only after (or in the
// same pass as) its producer whenever possible.
func reversePostOrder(f *ir.Function) []*ir.Block {
	if f.Entry == nil {
		return nil
	}

	visited := set.NewBitmap(len(f.Blocks))

	var post []*ir.Block

	var walk func(b *ir.Block)
	walk = func(b *ir.Block) {
		id := int(b.ID())
		if visited.IsSet(id) {
			return
		}
		visited.Set(id)

		if term := b.Terminator(); term != nil {
			for _, s := range ir.TerminatorSuccessors(term.Op) {
				if s != nil {
					walk(s)
				}
			}
		}

		post = append(post, b)
	}

	walk(f.Entry)

	// blocks unreachable from entry (dead code, or a caller that hasn't
	// wired a terminator yet) still get visited so the worklist covers
	// the whole function.
	for _, b := range f.Blocks {
		walk(b)
	}

	rpo := make([]*ir.Block, len(post))
	for i, b := range post {
		rpo[len(post)-1-i] = b
	}

	return rpo
}
