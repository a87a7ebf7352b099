// Package wisdom implements the per-size auto-tuning cache of spec
// §4.4: a map from a transform-shape size key to the measured-best
// Performance option tuple, learned by exhaustive micro-benchmarking
// and seeded by a renderer-identity static prior.
package wisdom

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/sirupsen/logrus"

	"github.com/arnek/gpufft/cost"
	"github.com/arnek/gpufft/enumerate"
	"github.com/arnek/gpufft/fparams"
)

var log = logrus.WithField("pkg", "wisdom")

// SizeKey identifies one distinct (length, pass-position,
// surface-kind-pair) tuple that the plan builder or exhaustive
// learning loop can encounter. It must stay comparable (no slices or
// maps) so it can serve as a Go map key.
type SizeKey struct {
	Length       int
	Radix        int
	PassPos      int
	InputTarget  fparams.Target
	OutputTarget fparams.Target
	// Precision is a short discriminator string ("fp32" or "fp16")
	// rather than the full TypeOptions struct, since only the core
	// precision profile affects which options are legal/optimal.
	Precision string
}

func precisionOf(t fparams.TypeOptions) string {
	if t.FP16Core {
		return "fp16"
	}
	return "fp32"
}

// Entry is one learned recommendation.
type Entry struct {
	Performance fparams.Performance
	Cost        float64
}

// Benchmarker is the collaborator the exhaustive learner uses to
// measure a single candidate. Package fft implements it by building
// and running a single-pass plan for the candidate, so that wisdom
// itself has no dependency on the runtime (which, in turn, depends on
// wisdom for its own lookups).
type Benchmarker interface {
	BenchCandidate(key SizeKey, cand enumerate.Candidate) (seconds float64, err error)
}

// Wisdom is the learned-options map plus the static prior table. The
// zero value is not usable; construct with New.
type Wisdom struct {
	mu sync.Mutex
	m  map[SizeKey]Entry
}

// New returns an empty Wisdom.
func New() *Wisdom {
	return &Wisdom{m: make(map[SizeKey]Entry)}
}

// Lookup returns the best known Performance for key. It tries, in
// order: the learned map (O(1) amortized), the static prior table
// keyed by rendererString, and finally the library's documented
// defaults. The returned source string identifies which tier
// answered, for logging/debugging.
func (w *Wisdom) Lookup(key SizeKey, rendererString string) (perf fparams.Performance, source string) {
	w.mu.Lock()
	entry, ok := w.m[key]
	w.mu.Unlock()
	if ok {
		return entry.Performance, "learned"
	}
	if p, ok := StaticPrior(rendererString); ok {
		return p, "static-prior"
	}
	return fparams.DefaultPerformance(), "default"
}

// set stores (or overwrites) the entry for key. Unexported: entries
// are only ever produced by LearnOptimalOptionsExhaustive or Load.
func (w *Wisdom) set(key SizeKey, e Entry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.m[key] = e
}

// Len returns the number of learned entries.
func (w *Wisdom) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.m)
}

// LearnOptimalOptionsExhaustive implements spec §4.4's learning
// procedure for one (Nx, Ny, type, input, output, options) request:
// it discovers the distinct tuples the request's decomposition would
// exercise, enumerates every legal candidate for each tuple, measures
// each with bench, and persists the winner.
//
// Running this twice for the same inputs is idempotent (the testable
// "wisdom idempotence" property): ties are broken deterministically
// by (1) measured time, (2) lower cost-model score, (3) smaller
// work-group, (4) lexicographic order on the tuple, so repeated runs
// over the same measurements always pick the same winner.
func (w *Wisdom) LearnOptimalOptionsExhaustive(
	tuples []SizeKey,
	limits enumerate.Constraints,
	typeOpts fparams.TypeOptions,
	bench Benchmarker,
) error {
	for _, key := range tuples {
		cons := limits
		cons.Length = key.Length
		cons.IsResolve = key.Radix == 0
		cons.FP16Core = typeOpts.FP16Core

		type scored struct {
			cand enumerate.Candidate
			time float64
			cost float64
		}
		var best *scored

		for cand := range enumerate.Options(cons) {
			seconds, err := bench.BenchCandidate(key, cand)
			if err != nil {
				log.WithError(err).WithField("size_key", key).Debug("candidate bench failed, skipping")
				continue
			}
			c := cost.Pass(cost.Candidate{
				Radix:             cand.Radix,
				WorkGroupX:        cand.WorkGroupX,
				WorkGroupY:        cand.WorkGroupY,
				VectorWidth:       cand.VectorWidth,
				SharedBanked:      cand.SharedBanked,
				SurfaceComponents: cons.SurfaceComponents,
			})
			s := scored{cand: cand, time: seconds, cost: c}
			if best == nil || better(s, *best) {
				sCopy := s
				best = &sCopy
			}
		}
		if best == nil {
			log.WithField("size_key", key).Warn("no legal candidate found during exhaustive learning")
			continue
		}
		w.set(key, Entry{
			Performance: fparams.Performance{
				WorkGroupSizeX: best.cand.WorkGroupX,
				WorkGroupSizeY: best.cand.WorkGroupY,
				VectorWidth:    best.cand.VectorWidth,
				SharedBanked:   best.cand.SharedBanked,
			},
			Cost: best.cost,
		})
	}
	return nil
}

// better implements the tie-break chain of spec §4.4 step 3: measured
// time first, then cost-model score, then work-group size, then a
// deterministic lexicographic fallback on the candidate fields.
func better(a, b struct {
	cand enumerate.Candidate
	time float64
	cost float64
}) bool {
	if a.time != b.time {
		return a.time < b.time
	}
	if a.cost != b.cost {
		return a.cost < b.cost
	}
	aSize := a.cand.WorkGroupX * a.cand.WorkGroupY
	bSize := b.cand.WorkGroupX * b.cand.WorkGroupY
	if aSize != bSize {
		return aSize < bSize
	}
	return lexLess(a.cand, b.cand)
}

func lexLess(a, b enumerate.Candidate) bool {
	if a.Radix != b.Radix {
		return a.Radix < b.Radix
	}
	if a.WorkGroupX != b.WorkGroupX {
		return a.WorkGroupX < b.WorkGroupX
	}
	if a.WorkGroupY != b.WorkGroupY {
		return a.WorkGroupY < b.WorkGroupY
	}
	if a.VectorWidth != b.VectorWidth {
		return a.VectorWidth < b.VectorWidth
	}
	return !a.SharedBanked && b.SharedBanked
}

// persistedEntry is the YAML-friendly encoding of one (SizeKey, Entry)
// pair. YAML (via yaml.v3) cannot marshal a map keyed by a struct, so
// Save/Load flatten the map to a slice of these records -- the format
// the spec leaves unmandated for the "persisted state" of the wisdom
// cache (§3, §6).
type persistedEntry struct {
	Length       int     `yaml:"length"`
	Radix        int     `yaml:"radix"`
	PassPos      int     `yaml:"pass_pos"`
	InputTarget  string  `yaml:"input_target"`
	OutputTarget string  `yaml:"output_target"`
	Precision    string  `yaml:"precision"`
	WorkGroupX   int     `yaml:"work_group_x"`
	WorkGroupY   int     `yaml:"work_group_y"`
	VectorWidth  int     `yaml:"vector_width"`
	SharedBanked bool    `yaml:"shared_banked"`
	Cost         float64 `yaml:"cost"`
}

// Save serializes the learned entries of w as YAML to path.
func (w *Wisdom) Save(path string) error {
	w.mu.Lock()
	entries := make([]persistedEntry, 0, len(w.m))
	for k, e := range w.m {
		entries = append(entries, persistedEntry{
			Length:       k.Length,
			Radix:        k.Radix,
			PassPos:      k.PassPos,
			InputTarget:  k.InputTarget.String(),
			OutputTarget: k.OutputTarget.String(),
			Precision:    k.Precision,
			WorkGroupX:   e.Performance.WorkGroupSizeX,
			WorkGroupY:   e.Performance.WorkGroupSizeY,
			VectorWidth:  e.Performance.VectorWidth,
			SharedBanked: e.Performance.SharedBanked,
			Cost:         e.Cost,
		})
	}
	w.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Length != entries[j].Length {
			return entries[i].Length < entries[j].Length
		}
		return entries[i].PassPos < entries[j].PassPos
	})

	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("wisdom: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads a YAML-encoded wisdom map previously written by Save.
func Load(path string) (*Wisdom, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wisdom: read: %w", err)
	}
	var entries []persistedEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("wisdom: unmarshal: %w", err)
	}
	w := New()
	for _, e := range entries {
		key := SizeKey{
			Length:       e.Length,
			Radix:        e.Radix,
			PassPos:      e.PassPos,
			InputTarget:  targetFromString(e.InputTarget),
			OutputTarget: targetFromString(e.OutputTarget),
			Precision:    e.Precision,
		}
		w.set(key, Entry{
			Performance: fparams.Performance{
				WorkGroupSizeX: e.WorkGroupX,
				WorkGroupSizeY: e.WorkGroupY,
				VectorWidth:    e.VectorWidth,
				SharedBanked:   e.SharedBanked,
			},
			Cost: e.Cost,
		})
	}
	return w, nil
}

func targetFromString(s string) fparams.Target {
	switch strings.ToLower(s) {
	case "image":
		return fparams.Image
	case "image-real":
		return fparams.ImageReal
	default:
		return fparams.SSBO
	}
}
