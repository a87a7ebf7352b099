// Package refcheck is the test suite's independent numeric reference:
// a CPU-side DFT used only to compute expected values for the round-
// trip, linearity, Parseval, and convolution-identity properties of
// spec §8. It deliberately does not share any code with
// internal/stockham, the engine's own transform math, so a bug common
// to both would not cancel out in a test's comparison.
package refcheck

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// DFT returns the forward discrete Fourier transform of x.
func DFT(x []complex128) []complex128 {
	t := fourier.NewCmplxFFT(len(x))
	return t.Coefficients(nil, x)
}

// IDFT returns the inverse discrete Fourier transform of coeff,
// normalized by 1/n so that IDFT(DFT(x)) recovers x.
func IDFT(coeff []complex128) []complex128 {
	t := fourier.NewCmplxFFT(len(coeff))
	out := t.Sequence(nil, coeff)
	n := complex(float64(len(out)), 0)
	for i := range out {
		out[i] /= n
	}
	return out
}

// RDFT returns the half-spectrum (n/2+1 complex bins) of a real
// sequence x, the reference this repo's ResolveR2C is checked against.
func RDFT(x []float64) []complex128 {
	t := fourier.NewFFT(len(x))
	return t.Coefficients(nil, x)
}

// IRDFT is the inverse of RDFT: given the half-spectrum of a length-n
// real sequence, it reconstructs the n real samples.
func IRDFT(halfSpectrum []complex128, n int) []float64 {
	t := fourier.NewFFT(n)
	out := t.Sequence(nil, halfSpectrum)
	for i := range out {
		out[i] /= float64(n)
	}
	return out
}

// Convolve returns the circular (cyclic) convolution of a and b, both
// of length n, computed via the convolution theorem: DFT, pointwise
// multiply, IDFT. This is the independent check for the testable
// "convolution identity" property InverseConvolve is meant to satisfy.
func Convolve(a, b []complex128) []complex128 {
	n := len(a)
	fa := DFT(a)
	fb := DFT(b)
	prod := make([]complex128, n)
	for i := range prod {
		prod[i] = fa[i] * fb[i]
	}
	return IDFT(prod)
}

// Parseval returns sum(|x_i|^2) and (1/n)*sum(|X_k|^2) for a sequence
// x and its DFT X, which must be equal up to floating-point error --
// the testable "Parseval" property.
func Parseval(x []complex128) (timeEnergy, freqEnergy float64) {
	for _, v := range x {
		timeEnergy += real(v)*real(v) + imag(v)*imag(v)
	}
	X := DFT(x)
	for _, v := range X {
		freqEnergy += real(v)*real(v) + imag(v)*imag(v)
	}
	freqEnergy /= float64(len(x))
	return timeEnergy, freqEnergy
}
