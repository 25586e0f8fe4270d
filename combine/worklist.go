package combine

import (
	"nikand.dev/go/heap"

	"github.com/slowlang/silopt/internal/set"
	"github.com/slowlang/silopt/ir"
)

type (
	wlItem struct {
		inst  *ir.Instruction
		order int
	}

	// worklist is the set-backed FIFO of §4.3/§9: every insertion is
	// deduplicated by instruction identity, so a rewrite chain that keeps
	// touching the same value can't blow it up. Ordering is by first-seen
	// sequence number (reverse-post-order at seed time, append order for
	// anything discovered later), which is what makes termination
	// arguments about "processed in a stable order" possible even though
	// confluence doesn't depend on it.
	worklist struct {
		h       heap.Heap[wlItem]
		enq     set.Bits[ir.InstID]
		order   map[ir.InstID]int
		nextSeq int
	}
)

func newWorklist() *worklist {
	w := &worklist{
		order: map[ir.InstID]int{},
	}
	w.h.Less = func(d []wlItem, i, j int) bool { return d[i].order < d[j].order }

	return w
}

func (w *worklist) Push(inst *ir.Instruction) {
	if inst == nil || inst.Erased() {
		return
	}

	id := inst.ID()

	if w.enq.IsSet(id) {
		return
	}

	o, ok := w.order[id]
	if !ok {
		o = w.nextSeq
		w.nextSeq++
		w.order[id] = o
	}

	w.enq.Set(id)
	w.h.Push(wlItem{inst: inst, order: o})
}

func (w *worklist) Pop() *ir.Instruction {
	if w.h.Len() == 0 {
		return nil
	}

	it := w.h.Pop()
	w.enq.Clear(it.inst.ID())

	return it.inst
}

func (w *worklist) Len() int { return w.h.Len() }

// seed pushes every instruction of f in reverse-post-order.
func (w *worklist) seed(f *ir.Function) {
	for _, b := range reversePostOrder(f) {
		for _, inst := range b.Insts {
			w.Push(inst)
		}
	}
}
