package fft_test

import (
	"errors"
	"math"
	"testing"

	"github.com/arnek/gpufft/driver"
	"github.com/arnek/gpufft/driver/mem"
	"github.com/arnek/gpufft/fft"
	"github.com/arnek/gpufft/fparams"
	"github.com/arnek/gpufft/internal/refcheck"
	"github.com/arnek/gpufft/plan"
	"github.com/arnek/gpufft/progcache"
	"github.com/arnek/gpufft/wisdom"
)

func openGPU(t *testing.T) driver.GPU {
	t.Helper()
	var d mem.Driver
	gpu, err := d.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return gpu
}

func newBuffer(t *testing.T, gpu driver.GPU, n int, usg driver.Usage) driver.Buffer {
	t.Helper()
	b, err := gpu.NewBuffer(int64(n*8), true, usg)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	return b
}

func writeComplex(buf driver.Buffer, data []complex128) {
	b := buf.Bytes()
	for i, c := range data {
		putF32(b, i*8, float32(real(c)))
		putF32(b, i*8+4, float32(imag(c)))
	}
}

func readComplex(buf driver.Buffer, n int) []complex128 {
	b := buf.Bytes()
	out := make([]complex128, n)
	for i := range out {
		out[i] = complex(float64(getF32(b, i*8)), float64(getF32(b, i*8+4)))
	}
	return out
}

func putF32(b []byte, off int, v float32) {
	bits := math.Float32bits(v)
	b[off] = byte(bits)
	b[off+1] = byte(bits >> 8)
	b[off+2] = byte(bits >> 16)
	b[off+3] = byte(bits >> 24)
}

func getF32(b []byte, off int) float32 {
	bits := uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24
	return math.Float32frombits(bits)
}

func maxAbsDiff(a, b []complex128) float64 {
	var m float64
	for i := range a {
		d := cmplxAbs(a[i] - b[i])
		if d > m {
			m = d
		}
	}
	return m
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// scenario 1: Nx=64 C2C Forward SSBO->SSBO fp32, checked against the
// independent reference transform.
func TestForwardC2CMatchesReference(t *testing.T) {
	gpu := openGPU(t)
	cache := progcache.New()
	defer cache.Release()
	w := wisdom.New()

	const n = 64
	in := make([]complex128, n)
	for i := range in {
		in[i] = complex(math.Sin(2*math.Pi*3*float64(i)/float64(n)), float64(i)*0.01)
	}
	want := refcheck.DFT(in)

	req := plan.Request{Nx: n, Type: fparams.C2C, Direction: fparams.Forward, InputTarget: fparams.SSBO, OutputTarget: fparams.SSBO}
	e, err := fft.New(gpu, cache, w, req)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Destroy()

	inBuf := newBuffer(t, gpu, n, driver.UShaderRead)
	outBuf := newBuffer(t, gpu, n, driver.UShaderWrite)
	writeComplex(inBuf, in)

	if err := e.Process(fft.FromBuffer(outBuf), fft.FromBuffer(inBuf), nil); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got := readComplex(outBuf, n)
	if d := maxAbsDiff(got, want); d > 1e-2 {
		t.Fatalf("max abs diff %v too large", d)
	}
}

// scenario 3: Nx=2048 R2C Forward SSBO->SSBO fp32, half-spectrum
// compared against the independent real-input reference transform.
func TestForwardR2CMatchesReference(t *testing.T) {
	gpu := openGPU(t)
	cache := progcache.New()
	defer cache.Release()
	w := wisdom.New()

	const n = 2048
	real := make([]float64, n)
	for i := range real {
		real[i] = math.Cos(2*math.Pi*5*float64(i)/float64(n))
	}
	want := refcheck.RDFT(real)

	in := make([]complex128, n)
	for i := range real {
		in[i] = complex(real[i], 0)
	}

	req := plan.Request{Nx: n, Type: fparams.R2C, Direction: fparams.Forward, InputTarget: fparams.SSBO, OutputTarget: fparams.SSBO}
	e, err := fft.New(gpu, cache, w, req)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Destroy()

	inBuf := newBuffer(t, gpu, n, driver.UShaderRead)
	outBuf := newBuffer(t, gpu, n, driver.UShaderWrite)
	writeComplex(inBuf, in)

	if err := e.Process(fft.FromBuffer(outBuf), fft.FromBuffer(inBuf), nil); err != nil {
		t.Fatalf("Process: %v", err)
	}

	got := readComplex(outBuf, n/2+1)
	if d := maxAbsDiff(got, want); d > 5e-1 {
		t.Fatalf("max abs diff %v too large", d)
	}
}

// scenario 5: Nx=128 C2C InverseConvolve SSBO->SSBO. process(out,in,nil)
// must fail as a ContractViolation; process(out,in,in) must realize
// Inverse(Forward(in) . Forward(in)) within tolerance of the
// independent circular-convolution reference.
func TestInverseConvolveContractAndIdentity(t *testing.T) {
	gpu := openGPU(t)
	cache := progcache.New()
	defer cache.Release()
	w := wisdom.New()

	const n = 128
	in := make([]complex128, n)
	for i := range in {
		in[i] = complex(math.Cos(2*math.Pi*float64(i)/float64(n)), math.Sin(2*math.Pi*2*float64(i)/float64(n)))
	}

	req := plan.Request{Nx: n, Type: fparams.C2C, Direction: fparams.InverseConvolve, InputTarget: fparams.SSBO, OutputTarget: fparams.SSBO, TypeOpts: fparams.TypeOptions{Normalize: true}}
	e, err := fft.New(gpu, cache, w, req)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Destroy()

	inBuf := newBuffer(t, gpu, n, driver.UShaderRead)
	outBuf := newBuffer(t, gpu, n, driver.UShaderWrite)
	writeComplex(inBuf, in)

	if err := e.Process(fft.FromBuffer(outBuf), fft.FromBuffer(inBuf), nil); !errors.Is(err, fft.ErrContractViolation) {
		t.Fatalf("expected ErrContractViolation, got %v", err)
	}

	auxSurf := fft.FromBuffer(inBuf)
	if err := e.Process(fft.FromBuffer(outBuf), fft.FromBuffer(inBuf), &auxSurf); err != nil {
		t.Fatalf("Process: %v", err)
	}

	want := refcheck.Convolve(in, in)
	got := readComplex(outBuf, n)
	if d := maxAbsDiff(got, want); d > 1.5*1e-2*float64(n) {
		t.Fatalf("max abs diff %v too large: got %v want %v", d, got[:4], want[:4])
	}
}

// scenario 6: bench hits max_time well before the requested iteration
// count and still reports a finite mean.
func TestBenchReportsTimeoutWithPartialMean(t *testing.T) {
	gpu := openGPU(t)
	cache := progcache.New()
	defer cache.Release()
	w := wisdom.New()

	const n = 64
	req := plan.Request{Nx: n, Type: fparams.C2C, Direction: fparams.Forward, InputTarget: fparams.SSBO, OutputTarget: fparams.SSBO}
	e, err := fft.New(gpu, cache, w, req)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Destroy()

	inBuf := newBuffer(t, gpu, n, driver.UShaderRead)
	outBuf := newBuffer(t, gpu, n, driver.UShaderWrite)

	mean, completed, err := e.Bench(fft.FromBuffer(outBuf), fft.FromBuffer(inBuf), 0, 1000000, 1, 1e-6)
	if !errors.Is(err, fft.ErrBenchTimeout) {
		t.Fatalf("expected ErrBenchTimeout, got %v", err)
	}
	if completed >= 1000000 {
		t.Fatalf("expected completed_iterations << requested, got %d", completed)
	}
	if mean < 0 || math.IsInf(mean, 0) || math.IsNaN(mean) {
		t.Fatalf("expected a finite mean, got %v", mean)
	}
}

// A buffer range smaller than a transform's footprint is rejected as a
// ContractViolation rather than silently truncated or overrun.
func TestInputRangeTooSmallIsContractViolation(t *testing.T) {
	gpu := openGPU(t)
	cache := progcache.New()
	defer cache.Release()
	w := wisdom.New()

	const n = 64
	req := plan.Request{Nx: n, Type: fparams.C2C, Direction: fparams.Forward, InputTarget: fparams.SSBO, OutputTarget: fparams.SSBO}
	e, err := fft.New(gpu, cache, w, req)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Destroy()

	inBuf := newBuffer(t, gpu, n, driver.UShaderRead)
	outBuf := newBuffer(t, gpu, n, driver.UShaderWrite)

	e.SetInputBufferRange(0, int64(n*8)-8)
	if err := e.Process(fft.FromBuffer(outBuf), fft.FromBuffer(inBuf), nil); !errors.Is(err, fft.ErrContractViolation) {
		t.Fatalf("expected ErrContractViolation, got %v", err)
	}
}

// New rejects a non-power-of-two transform length as a
// ConfigurationError rather than attempting to build a plan for it.
func TestNewRejectsNonPowerOfTwo(t *testing.T) {
	gpu := openGPU(t)
	cache := progcache.New()
	defer cache.Release()
	w := wisdom.New()

	req := plan.Request{Nx: 100, Type: fparams.C2C, Direction: fparams.Forward, InputTarget: fparams.SSBO, OutputTarget: fparams.SSBO}
	_, err := fft.New(gpu, cache, w, req)
	if !errors.Is(err, fft.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

// forwardOnce runs a single SSBO->SSBO Forward C2C transform and
// returns its output, a helper shared by the linearity and Parseval
// properties below.
func forwardOnce(t *testing.T, gpu driver.GPU, cache *progcache.Cache, w *wisdom.Wisdom, n int, in []complex128) []complex128 {
	t.Helper()
	req := plan.Request{Nx: n, Type: fparams.C2C, Direction: fparams.Forward, InputTarget: fparams.SSBO, OutputTarget: fparams.SSBO}
	e, err := fft.New(gpu, cache, w, req)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Destroy()

	inBuf := newBuffer(t, gpu, n, driver.UShaderRead)
	outBuf := newBuffer(t, gpu, n, driver.UShaderWrite)
	writeComplex(inBuf, in)
	if err := e.Process(fft.FromBuffer(outBuf), fft.FromBuffer(inBuf), nil); err != nil {
		t.Fatalf("Process: %v", err)
	}
	return readComplex(outBuf, n)
}

// Linearity: FFT(a*x + b*y) == a*FFT(x) + b*FFT(y) for scalar a, b.
func TestForwardIsLinear(t *testing.T) {
	gpu := openGPU(t)
	cache := progcache.New()
	defer cache.Release()
	w := wisdom.New()

	const n = 64
	x := make([]complex128, n)
	y := make([]complex128, n)
	for i := range x {
		x[i] = complex(math.Sin(2*math.Pi*3*float64(i)/float64(n)), 0)
		y[i] = complex(0, math.Cos(2*math.Pi*7*float64(i)/float64(n)))
	}
	a, b := complex(2.5, -1.0), complex(-0.5, 3.0)

	combined := make([]complex128, n)
	for i := range combined {
		combined[i] = a*x[i] + b*y[i]
	}

	fx := forwardOnce(t, gpu, cache, w, n, x)
	fy := forwardOnce(t, gpu, cache, w, n, y)
	fCombined := forwardOnce(t, gpu, cache, w, n, combined)

	want := make([]complex128, n)
	for i := range want {
		want[i] = a*fx[i] + b*fy[i]
	}
	if d := maxAbsDiff(fCombined, want); d > 5e-1 {
		t.Fatalf("linearity violated, max abs diff %v too large", d)
	}
}

// Parseval/energy preservation: the independent reference transform's
// energy identity holds for the signal the engine is about to
// transform, and the engine's own output carries the same frequency
// content the reference predicts (checked via DFT, not a GPU energy
// dispatch -- the engine exposes no separate energy operation).
func TestForwardPreservesParsevalEnergy(t *testing.T) {
	gpu := openGPU(t)
	cache := progcache.New()
	defer cache.Release()
	w := wisdom.New()

	const n = 64
	in := make([]complex128, n)
	for i := range in {
		in[i] = complex(math.Sin(2*math.Pi*5*float64(i)/float64(n)), math.Cos(2*math.Pi*2*float64(i)/float64(n)))
	}

	timeEnergy, freqEnergy := refcheck.Parseval(in)
	if d := math.Abs(timeEnergy - freqEnergy); d > 1e-9 {
		t.Fatalf("reference Parseval identity does not hold: time=%v freq=%v", timeEnergy, freqEnergy)
	}

	got := forwardOnce(t, gpu, cache, w, n, in)
	var gotFreqEnergy float64
	for _, c := range got {
		gotFreqEnergy += real(c)*real(c) + imag(c)*imag(c)
	}
	gotFreqEnergy /= float64(n)
	if d := math.Abs(gotFreqEnergy - timeEnergy); d > 5e-1 {
		t.Fatalf("engine output energy %v does not match input energy %v within tolerance", gotFreqEnergy, timeEnergy)
	}
}
