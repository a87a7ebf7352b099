package progcache

import (
	"testing"

	"github.com/arnek/gpufft/fparams"
)

type fakeCode struct{ destroyed bool }

func (f *fakeCode) Destroy() { f.destroyed = true }

type fakePipeline struct{ destroyed bool }

func (f *fakePipeline) Destroy() { f.destroyed = true }

func TestFindMissReturnsNil(t *testing.T) {
	c := New()
	defer c.Release()
	p := fparams.New()
	p.Radix = 4
	if prog := c.Find(p); prog != nil {
		t.Fatalf("Find on empty cache:\nhave %v\nwant nil", prog)
	}
}

func TestInsertThenFind(t *testing.T) {
	c := New()
	defer c.Release()
	p := fparams.New()
	p.Radix = 8
	p.VectorWidth = 4
	code := &fakeCode{}
	pipe := &fakePipeline{}
	inserted := c.Insert(p, code, pipe)
	found := c.Find(p)
	if found != inserted {
		t.Fatalf("Find after Insert:\nhave %v\nwant %v", found, inserted)
	}
	if x := c.Size(); x != 1 {
		t.Fatalf("Size:\nhave %d\nwant 1", x)
	}
}

func TestInsertOverwritesAndDestroysPrior(t *testing.T) {
	c := New()
	defer c.Release()
	p := fparams.New()
	p.Radix = 2

	oldCode, oldPipe := &fakeCode{}, &fakePipeline{}
	c.Insert(p, oldCode, oldPipe)

	newCode, newPipe := &fakeCode{}, &fakePipeline{}
	c.Insert(p, newCode, newPipe)

	if !oldCode.destroyed || !oldPipe.destroyed {
		t.Fatalf("overwritten entry was not destroyed: code=%v pipeline=%v", oldCode.destroyed, oldPipe.destroyed)
	}
	if newCode.destroyed || newPipe.destroyed {
		t.Fatalf("new entry was destroyed unexpectedly")
	}
	if x := c.Size(); x != 1 {
		t.Fatalf("Size after overwrite:\nhave %d\nwant 1", x)
	}
}

func TestSizeCountsDistinctParameters(t *testing.T) {
	c := New()
	defer c.Release()
	for radix := 1; radix <= 3; radix++ {
		p := fparams.New()
		p.Radix = int32(radix)
		c.Insert(p, &fakeCode{}, &fakePipeline{})
	}
	if x := c.Size(); x != 3 {
		t.Fatalf("Size:\nhave %d\nwant 3", x)
	}
}

func TestReleaseDestroysAllEntriesAtZeroRefs(t *testing.T) {
	c := New()
	c.Retain()

	p := fparams.New()
	p.Radix = 16
	code, pipe := &fakeCode{}, &fakePipeline{}
	c.Insert(p, code, pipe)

	c.Release() // refs: 2 -> 1, still alive
	if code.destroyed {
		t.Fatalf("program destroyed while cache still has an owner")
	}

	c.Release() // refs: 1 -> 0, now destroyed
	if !code.destroyed || !pipe.destroyed {
		t.Fatalf("program not destroyed once the last owner released the cache")
	}
}

func TestDebugIDIsNotPartOfIdentity(t *testing.T) {
	c := New()
	defer c.Release()
	p := fparams.New()
	p.Radix = 4
	prog := c.Insert(p, &fakeCode{}, &fakePipeline{})
	if prog.DebugID() == "" {
		t.Fatalf("DebugID is empty")
	}
	// A byte-identical Parameters value must still find the same
	// entry regardless of the random debug label assigned above.
	q := fparams.New()
	q.Radix = 4
	if c.Find(q) != prog {
		t.Fatalf("Find did not locate the entry for an equal Parameters value")
	}
}
