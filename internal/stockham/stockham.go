// Package stockham implements the self-sorting Stockham FFT butterfly
// math that the in-process reference backend (package driver/mem)
// executes on behalf of a compiled program. It is deliberately kept
// independent of the fparams/plan packages: it knows nothing about
// Parameters, descriptor bindings, or surfaces, only complex slices and
// the Stockham bookkeeping (span, radix) that drives one stage.
//
// Every legal radix in this engine (2, 4, 8, 16, 64) is itself a power
// of two, so a radix-r stage is implemented here as log2(r) radix-2
// stages: mathematically identical to a native radix-r combine, and
// confined to the one butterfly formula that needs to be gotten right.
package stockham

import "math"

// Stage performs one radix-2 Stockham combine: src has length n, p is
// the size of the sub-transforms already combined (so the output sub-
// transform size is 2p). The result is in natural order; Stockham's
// self-sorting property means no separate bit-reversal pass is ever
// needed.
func Stage(src []complex128, p int, inverse bool) []complex128 {
	n := len(src)
	dst := make([]complex128, n)
	sign := -1.0
	if inverse {
		sign = 1.0
	}
	half := n / 2
	for k := 0; k < half/p; k++ {
		for j := 0; j < p; j++ {
			angle := sign * 2 * math.Pi * float64(j) / float64(2*p)
			w := complex(math.Cos(angle), math.Sin(angle))
			a := src[k*p+j]
			b := src[k*p+j+half]
			dst[2*k*p+j] = a + w*b
			dst[2*k*p+j+p] = a - w*b
		}
	}
	return dst
}

// Axis runs the full stage sequence for an axis decomposed into
// radices (as produced by internal/radixdecomp.Axis), starting from
// sub-transform size 1, and returns the transformed data in natural
// order.
func Axis(data []complex128, radices []int, inverse bool) []complex128 {
	cur := data
	p := 1
	for _, r := range radices {
		cur = PassStage(cur, p, r, inverse)
		p *= r
	}
	return cur
}

// PassStage runs the log2(radix) radix-2 combines that make up one
// Stockham pass of the given radix, starting from sub-transform size
// p. It is what a single compiled program's Dispatch performs: Axis is
// just PassStage called once per entry of a radix decomposition, with
// p carried forward between calls.
func PassStage(data []complex128, p, radix int, inverse bool) []complex128 {
	cur := data
	for s := 0; (1 << s) < radix; s++ {
		cur = Stage(cur, p, inverse)
		p *= 2
	}
	return cur
}

// Normalize scales data by 1/n in place, as the final inverse pass
// does when FFTOptions.Normalize is set.
func Normalize(data []complex128) {
	n := float64(len(data))
	for i := range data {
		data[i] /= complex(n, 0)
	}
}

// ResolveR2C converts the length-M complex result of treating 2M real
// samples as an interleaved length-M complex sequence into the true
// M+1-point half-spectrum of the original real signal (the standard
// "real FFT via half-length complex FFT" packing trick).
func ResolveR2C(half []complex128) []complex128 {
	m := len(half)
	out := make([]complex128, m+1)
	for k := 0; k <= m; k++ {
		xk := half[k%m]
		xmk := half[(m-k)%m]
		even := 0.5 * (xk + cmplxConj(xmk))
		odd := 0.5 * (xk - cmplxConj(xmk))
		angle := -2 * math.Pi * float64(k) / float64(2*m)
		w := complex(math.Cos(angle), math.Sin(angle))
		out[k] = even - complex(0, 1)*w*odd
	}
	return out
}

// ResolveC2R is the inverse of ResolveR2C: given the M+1-point
// half-spectrum, it reconstructs the length-M interleaved complex
// sequence that, fed through an inverse length-M complex Stockham
// axis, de-interleaves back into 2M real samples.
func ResolveC2R(full []complex128, m int) []complex128 {
	out := make([]complex128, m)
	for k := 0; k < m; k++ {
		zk := full[k]
		zmk := full[m-k]
		angle := 2 * math.Pi * float64(k) / float64(2*m)
		w := complex(math.Cos(angle), math.Sin(angle))
		even := 0.5 * (zk + cmplxConj(zmk))
		odd := 0.5 * complex(0, 1) * w * (zk - cmplxConj(zmk))
		out[k] = even + odd
	}
	return out
}

func cmplxConj(c complex128) complex128 {
	return complex(real(c), -imag(c))
}
