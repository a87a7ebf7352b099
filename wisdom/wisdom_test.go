package wisdom

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arnek/gpufft/enumerate"
	"github.com/arnek/gpufft/fparams"
)

func TestLookupFallsBackThroughTiers(t *testing.T) {
	w := New()
	key := SizeKey{Length: 64, Radix: 8, PassPos: 0, Precision: "fp32"}

	if _, source := w.Lookup(key, "Unknown Renderer"); source != "default" {
		t.Fatalf("Lookup with no learned entry and no prior match:\nhave source %q\nwant %q", source, "default")
	}
	if _, source := w.Lookup(key, "Mali-G78"); source != "static-prior" {
		t.Fatalf("Lookup with a matching prior:\nhave source %q\nwant %q", source, "static-prior")
	}

	w.set(key, Entry{Performance: fparams.Performance{WorkGroupSizeX: 16, VectorWidth: 4}, Cost: 1})
	perf, source := w.Lookup(key, "Mali-G78")
	if source != "learned" {
		t.Fatalf("Lookup with a learned entry:\nhave source %q\nwant %q", source, "learned")
	}
	if perf.WorkGroupSizeX != 16 {
		t.Fatalf("Lookup returned wrong entry: %+v", perf)
	}
}

type fakeBench struct{ calls int }

// BenchCandidate returns a deterministic synthetic time favoring
// larger work groups slightly, so there is always a unique winner to
// exercise idempotence.
func (f *fakeBench) BenchCandidate(key SizeKey, cand enumerate.Candidate) (float64, error) {
	f.calls++
	return 1.0 / float64(cand.WorkGroupX*cand.WorkGroupY*cand.VectorWidth), nil
}

func TestLearnOptimalOptionsExhaustiveIsIdempotent(t *testing.T) {
	tuples := []SizeKey{{Length: 64, Radix: 8, PassPos: 0, Precision: "fp32"}}
	cons := enumerate.Constraints{MaxWorkGroupInvocations: 256, SurfaceComponents: 2}

	w1 := New()
	if err := w1.LearnOptimalOptionsExhaustive(tuples, cons, fparams.TypeOptions{}, &fakeBench{}); err != nil {
		t.Fatalf("first learn: %v", err)
	}
	w2 := New()
	if err := w2.LearnOptimalOptionsExhaustive(tuples, cons, fparams.TypeOptions{}, &fakeBench{}); err != nil {
		t.Fatalf("second learn: %v", err)
	}

	p1, _ := w1.Lookup(tuples[0], "")
	p2, _ := w2.Lookup(tuples[0], "")
	if p1 != p2 {
		t.Fatalf("learning the same inputs twice produced different results:\nfirst  %+v\nsecond %+v", p1, p2)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	w := New()
	key := SizeKey{Length: 128, Radix: 4, PassPos: 1, InputTarget: fparams.Image, OutputTarget: fparams.SSBO, Precision: "fp16"}
	w.set(key, Entry{Performance: fparams.Performance{WorkGroupSizeX: 8, WorkGroupSizeY: 2, VectorWidth: 4, SharedBanked: true}, Cost: 42})

	path := filepath.Join(t.TempDir(), "wisdom.yaml")
	if err := w.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Save did not create file: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	perf, source := loaded.Lookup(key, "")
	if source != "learned" {
		t.Fatalf("loaded wisdom did not recognize the round-tripped key: source=%q", source)
	}
	if perf.WorkGroupSizeX != 8 || perf.WorkGroupSizeY != 2 || perf.VectorWidth != 4 || !perf.SharedBanked {
		t.Fatalf("round-tripped entry mismatch: %+v", perf)
	}
}

func TestStaticPriorFirstMatchWins(t *testing.T) {
	if _, ok := StaticPrior("totally unknown device"); ok {
		t.Fatalf("StaticPrior matched an unknown renderer string")
	}
	perf, ok := StaticPrior("Apple M2 Pro")
	if !ok {
		t.Fatalf("StaticPrior did not match a substring it should have")
	}
	if perf.VectorWidth != 4 {
		t.Fatalf("unexpected prior: %+v", perf)
	}
}
