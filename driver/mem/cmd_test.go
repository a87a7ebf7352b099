package mem_test

import (
	"math"
	"testing"

	"github.com/arnek/gpufft/driver"
	"github.com/arnek/gpufft/driver/mem"
	"github.com/arnek/gpufft/fparams"
	"github.com/arnek/gpufft/internal/shadertmpl"
	"github.com/arnek/gpufft/plan"
	"github.com/arnek/gpufft/progcache"
	"github.com/arnek/gpufft/wisdom"
)

// templateCompiler implements plan.Compiler by round-tripping a
// Parameters record through the generated-source/embedded-fingerprint
// convention (package internal/shadertmpl), exactly the way a real
// runtime compiler would, just without an external GLSL compiler.
type templateCompiler struct{}

func (templateCompiler) Compile(gpu driver.GPU, p fparams.Parameters) (driver.ShaderCode, driver.Pipeline, error) {
	src := shadertmpl.Generate(p)
	code, err := gpu.NewShaderCode(src)
	if err != nil {
		return nil, nil, err
	}
	pl, err := gpu.NewPipeline(&driver.CompState{Func: driver.ShaderFunc{Code: code, Name: "main"}})
	if err != nil {
		return nil, nil, err
	}
	return code, pl, nil
}

func openGPU(t *testing.T) driver.GPU {
	t.Helper()
	var d mem.Driver
	gpu, err := d.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return gpu
}

func runPlan(t *testing.T, gpu driver.GPU, p *plan.Plan, input, output driver.Buffer) {
	t.Helper()
	for i, pass := range p.Passes {
		inBuf, outBuf := input, output
		if !pass.ReadsUserInput {
			inBuf = p.Temp[i%2]
		}
		if !pass.WritesUserOutput {
			outBuf = p.Temp[(i+1)%2]
		}

		heap, err := gpu.NewDescHeap([]driver.Descriptor{
			{Type: driver.DBuffer, Nr: driver.DescInput, Len: 1},
			{Type: driver.DBuffer, Nr: driver.DescOutput, Len: 1},
		})
		if err != nil {
			t.Fatalf("NewDescHeap: %v", err)
		}
		if err := heap.New(1); err != nil {
			t.Fatalf("heap.New: %v", err)
		}
		heap.SetBuffer(0, driver.DescInput, 0, []driver.Buffer{inBuf}, nil, nil)
		heap.SetBuffer(0, driver.DescOutput, 0, []driver.Buffer{outBuf}, nil, nil)

		dtable, err := gpu.NewDescTable([]driver.DescHeap{heap})
		if err != nil {
			t.Fatalf("NewDescTable: %v", err)
		}

		cb, err := gpu.NewCmdBuffer()
		if err != nil {
			t.Fatalf("NewCmdBuffer: %v", err)
		}
		if err := cb.Begin(); err != nil {
			t.Fatalf("Begin: %v", err)
		}
		cb.BeginWork(false)
		cb.SetPipeline(pass.Program.Pipeline)
		cb.SetDescTableComp(dtable, 0, []int{0})
		cb.Dispatch(pass.WorkGroupCountX, pass.WorkGroupCountY, 1)
		cb.EndWork()
		if err := cb.End(); err != nil {
			t.Fatalf("pass %d: Dispatch failed: %v", i, err)
		}
	}
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

func TestDispatchForwardInverseRoundTrip(t *testing.T) {
	gpu := openGPU(t)
	cache := progcache.New()
	defer cache.Release()
	w := wisdom.New()

	const n = 16
	original := make([]complex128, n)
	for i := range original {
		original[i] = complex(math.Cos(2*math.Pi*float64(i)/float64(n)), 0)
	}

	fwdReq := plan.Request{Nx: n, Type: fparams.C2C, Direction: fparams.Forward, InputTarget: fparams.SSBO, OutputTarget: fparams.SSBO}
	fwdPlan, err := plan.Build(gpu, cache, w, templateCompiler{}, fwdReq)
	if err != nil {
		t.Fatalf("Build forward: %v", err)
	}
	defer fwdPlan.Destroy()

	in, _ := gpu.NewBuffer(int64(n*8), true, driver.UShaderRead)
	freq, _ := gpu.NewBuffer(int64(n*8), true, driver.UShaderRead|driver.UShaderWrite)
	writeComplex(in, original)
	runPlan(t, gpu, fwdPlan, in, freq)

	invOpts := fparams.TypeOptions{Normalize: true}
	invReq := plan.Request{Nx: n, Type: fparams.C2C, Direction: fparams.Inverse, InputTarget: fparams.SSBO, OutputTarget: fparams.SSBO, TypeOpts: invOpts}
	invPlan, err := plan.Build(gpu, cache, w, templateCompiler{}, invReq)
	if err != nil {
		t.Fatalf("Build inverse: %v", err)
	}
	defer invPlan.Destroy()

	out, _ := gpu.NewBuffer(int64(n*8), true, driver.UShaderWrite)
	runPlan(t, gpu, invPlan, freq, out)

	got := readComplex(out, n)
	for i := range original {
		if diff := math.Abs(real(got[i]) - real(original[i])); diff > 1e-3 {
			t.Fatalf("element %d: got %v want %v", i, got[i], original[i])
		}
	}
}
