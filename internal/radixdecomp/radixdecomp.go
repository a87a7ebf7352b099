// Package radixdecomp implements the radix sequence portion of the
// plan builder's decomposition (spec §4.5 step 3), isolated from the
// plan and wisdom packages so that both can share it without an
// import cycle (the plan builder consults wisdom, so wisdom cannot
// import plan).
//
// It picks, for an axis of a given power-of-two length, a sequence of
// radices from {2, 4, 8, 16, 64} whose product equals the length,
// breaking ties toward fewer passes and then toward larger early
// radices -- the provisional, cost-minimizing-by-construction
// decomposition that the plan builder and the wisdom package's
// exhaustive learner both need in order to discover which (length,
// pass-position) tuples will appear in a transform. The learned
// Performance options for each tuple (package wisdom) refine how a
// pass executes; they never change this radix sequence.
package radixdecomp

// legalRadices is ordered from largest to smallest so the greedy
// search in Axis naturally prefers larger early radices.
var legalRadices = []int{64, 16, 8, 4, 2}

// Axis returns the radix sequence for a transform of the given
// power-of-two length. The product of the returned values equals
// length. length must be a positive power of two; Axis panics
// otherwise, since plan construction validates this before calling
// in.
func Axis(length int) []int {
	if length <= 0 || length&(length-1) != 0 {
		panic("radixdecomp: length must be a positive power of two")
	}
	var seq []int
	remaining := length
	for remaining > 1 {
		r := pick(remaining)
		seq = append(seq, r)
		remaining /= r
	}
	return seq
}

// pick returns the largest legal radix that evenly divides remaining,
// preferring fewer total passes (hence larger radices) as required by
// the spec's tie-break rule. If remaining is itself smaller than the
// smallest legal radix (i.e. remaining == 1 is handled by the Axis
// loop already; any other remainder is impossible for a power of two
// factored purely by powers of two in {2,4,8,16,64}), it falls back
// to radix 2.
func pick(remaining int) int {
	for _, r := range legalRadices {
		if remaining%r == 0 {
			return r
		}
	}
	return 2
}
