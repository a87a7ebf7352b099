// Package enumerate implements the legal-option enumerator of spec
// §4.3: given a transform length, a pass's position within its axis
// decomposition, the surface kinds involved, and a precision profile,
// it yields every legal (radix, work-group-x, work-group-y,
// vector-width, shared-banked) tuple.
//
// The enumerator is lazy and restartable: Options returns a fresh
// iter.Seq each call, so callers (the wisdom package's exhaustive
// learning loop, in particular) can re-run it on demand rather than
// caching a materialized slice.
package enumerate

import (
	"iter"

	"github.com/arnek/gpufft/fparams"
)

// Candidate is one legal combination of performance options for a
// single pass.
type Candidate struct {
	Radix        int
	WorkGroupX   int
	WorkGroupY   int
	VectorWidth  int
	SharedBanked bool
}

// Constraints bounds the search space for one pass.
type Constraints struct {
	// Length is the transform length along the axis this pass
	// operates on.
	Length int
	// SurfaceComponents is the number of scalar components the
	// bound surface natively exposes (1, 2, or 4).
	SurfaceComponents int
	// MaxWorkGroupInvocations is the platform's limit on
	// work_group_size_x * work_group_size_y * work_group_size_z,
	// queried once at context creation (driver.Limits).
	MaxWorkGroupInvocations int
	// FP16Core reports whether the plan requests fp16 core
	// precision; width-8 vectors require it.
	FP16Core bool
	// SupportsVectorWidth8 reports whether the platform supports
	// width-8 vectors at all (a capability distinct from the
	// requested precision).
	SupportsVectorWidth8 bool
	// IsResolve marks a resolve pass, whose radix is fixed at 2
	// (an effective radix-2 combine) regardless of the transform
	// length.
	IsResolve bool
}

// radices, workGroupXs, workGroupYs, and vectorWidths enumerate the
// legal value sets named in spec §4.3. They are package-level so the
// search space is auditable in one place.
var (
	radices     = []int{2, 4, 8, 16, 64}
	workGroupXs = []int{4, 8, 16, 32, 64}
	workGroupYs = []int{1, 2, 4, 8}
	vectorWidths = []int{2, 4, 8}
)

// Options returns every (radix, work-group-x, work-group-y,
// vector-width, shared-banked) tuple that is legal under c.
func Options(c Constraints) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		for _, r := range radices {
			if c.IsResolve && r != 2 {
				continue
			}
			if !c.IsResolve && r > c.Length {
				continue
			}
			for _, wx := range workGroupXs {
				for _, wy := range workGroupYs {
					total := wx * wy
					if total > c.MaxWorkGroupInvocations {
						continue
					}
					for _, vw := range vectorWidths {
						if vw == 4 && c.SurfaceComponents < 4 {
							continue
						}
						if vw == 8 && (!c.FP16Core || !c.SupportsVectorWidth8) {
							continue
						}
						// A work-group must field enough lanes
						// (threads * vector width) to cover one
						// butterfly of the chosen radix.
						if total*vw < r {
							continue
						}
						for _, banked := range [2]bool{false, true} {
							if !yield(Candidate{
								Radix:        r,
								WorkGroupX:   wx,
								WorkGroupY:   wy,
								VectorWidth:  vw,
								SharedBanked: banked,
							}) {
								return
							}
						}
					}
				}
			}
		}
	}
}

// ValidInputTarget reports whether target is a legal input-target for
// a pass at the given zero-based position within its axis
// decomposition. Only the first pass of an axis may read a textured
// (Image/ImageReal) surface; every later pass must read the
// ping-pong SSBO temporaries.
func ValidInputTarget(passPos int, target fparams.Target) bool {
	if passPos == 0 {
		return true
	}
	return target == fparams.SSBO
}
