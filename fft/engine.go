// Package fft implements the runtime of spec §4.6: binding a compiled
// Plan's passes to caller-supplied surfaces, dispatching them in
// order, and the single-pass micro-benchmark that package wisdom's
// exhaustive learning loop drives through the Benchmarker interface.
package fft

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/arnek/gpufft/driver"
	"github.com/arnek/gpufft/fparams"
	"github.com/arnek/gpufft/plan"
	"github.com/arnek/gpufft/progcache"
	"github.com/arnek/gpufft/wisdom"
)

var log = logrus.WithField("pkg", "fft")

// Surface is a handle to a caller-owned resource a pass can bind to:
// exactly one of Buffer or Image is set, matching whichever Target a
// given pass's Parameters declare.
type Surface struct {
	Buffer driver.Buffer
	Image  driver.Image
}

// FromBuffer wraps a storage buffer as a Surface.
func FromBuffer(b driver.Buffer) Surface { return Surface{Buffer: b} }

// FromImage wraps a storage/sampled image as a Surface.
func FromImage(i driver.Image) Surface { return Surface{Image: i} }

type bufferRange struct {
	off, size int64
	set       bool
}

// bindingOverlay holds the runtime state the setters in spec §4.6
// mutate between calls to Process: declared buffer ranges (checked as
// a ContractViolation guard), a texture offset/scale pair, and a
// sampler set. It starts empty; an unset range performs no size check.
type bindingOverlay struct {
	textureOffsetX, textureOffsetY float64
	textureScaleX, textureScaleY   float64
	inputRange, inputAuxRange      bufferRange
	outputRange                    bufferRange
	samplers                       []driver.Sampler
}

// Engine is one compiled, ready-to-run transform. It owns its plan(s)
// and any scratch buffers InverseConvolve needs beyond the ordinary
// ping-pong temporaries a single Plan already owns.
type Engine struct {
	gpu   driver.GPU
	cache *progcache.Cache
	req   plan.Request

	p *plan.Plan // nil for InverseConvolve

	// InverseConvolve-only state: two independent forward transforms
	// feed a fused pointwise multiply, whose product feeds the closing
	// inverse transform.
	fwd, inv        *plan.Plan
	freqA, freqB    driver.Buffer
	multiplyProgram *progcache.Program
	multiplyParams  fparams.Parameters
	multiplyWG      int
	n               int

	overlay bindingOverlay
}

// New compiles req into a ready Engine, consulting w for per-size
// performance options and sharing cache across every program it
// compiles or looks up.
func New(gpu driver.GPU, cache *progcache.Cache, w *wisdom.Wisdom, req plan.Request) (*Engine, error) {
	if req.Nx <= 0 || req.Nx&(req.Nx-1) != 0 {
		return nil, newError(ConfigurationError, fmt.Sprintf("Nx=%d is not a positive power of two", req.Nx), nil)
	}
	ny := req.Ny
	if ny <= 0 {
		ny = 1
	}
	if ny > 1 && ny&(ny-1) != 0 {
		return nil, newError(ConfigurationError, fmt.Sprintf("Ny=%d is not a positive power of two", ny), nil)
	}

	if !validSurfaceTriple(req.Type, req.InputTarget, req.OutputTarget) {
		return nil, newError(ConfigurationError, fmt.Sprintf("%s with input-target=%s output-target=%s is not a supported surface-kind/type combination", req.Type, req.InputTarget, req.OutputTarget), nil)
	}

	e := &Engine{gpu: gpu, cache: cache, req: req}

	if req.Direction != fparams.InverseConvolve {
		p, err := plan.Build(gpu, cache, w, templateCompiler{}, req)
		if err != nil {
			return nil, classifyBuildErr(err)
		}
		e.p = p
		return e, nil
	}

	fwdReq := plan.Request{
		Nx: req.Nx, Ny: req.Ny, Type: fparams.C2C, Direction: fparams.Forward,
		InputTarget: req.InputTarget, OutputTarget: fparams.SSBO,
		TypeOpts: fparams.TypeOptions{FP16Core: req.TypeOpts.FP16Core, FP16Input: req.TypeOpts.FP16Input},
		RendererString: req.RendererString,
	}
	fwd, err := plan.Build(gpu, cache, w, templateCompiler{}, fwdReq)
	if err != nil {
		return nil, classifyBuildErr(err)
	}
	invReq := plan.Request{
		Nx: req.Nx, Ny: req.Ny, Type: fparams.C2C, Direction: fparams.Inverse,
		InputTarget: fparams.SSBO, OutputTarget: req.OutputTarget,
		TypeOpts: req.TypeOpts, RendererString: req.RendererString,
	}
	inv, err := plan.Build(gpu, cache, w, templateCompiler{}, invReq)
	if err != nil {
		fwd.Destroy()
		return nil, classifyBuildErr(err)
	}

	e.fwd, e.inv = fwd, inv
	e.n = req.Nx * ny
	e.freqA, err = gpu.NewBuffer(int64(e.n*8), false, driver.UShaderRead|driver.UShaderWrite)
	if err != nil {
		fwd.Destroy()
		inv.Destroy()
		return nil, newError(ResourceError, "allocating InverseConvolve scratch buffer A", err)
	}
	e.freqB, err = gpu.NewBuffer(int64(e.n*8), false, driver.UShaderRead|driver.UShaderWrite)
	if err != nil {
		e.freqA.Destroy()
		fwd.Destroy()
		inv.Destroy()
		return nil, newError(ResourceError, "allocating InverseConvolve scratch buffer B", err)
	}

	e.multiplyWG = plan.ClampDivisor(e.n, fparams.DefaultPerformance().WorkGroupSizeX)
	mparams := fparams.New()
	mparams.Mode = fparams.Multiply
	mparams.InputTarget, mparams.OutputTarget = fparams.SSBO, fparams.SSBO
	mparams.WorkGroupX, mparams.WorkGroupY, mparams.WorkGroupZ = int32(e.multiplyWG), 1, 1
	mparams.Radix, mparams.VectorWidth = 1, 1
	prog, err := compileProgram(gpu, cache, mparams)
	if err != nil {
		e.freqA.Destroy()
		e.freqB.Destroy()
		fwd.Destroy()
		inv.Destroy()
		return nil, newError(CompilationError, "compiling InverseConvolve multiply pass", err)
	}
	e.multiplyProgram = prog
	e.multiplyParams = mparams

	return e, nil
}

// Destroy releases everything the Engine owns.
func (e *Engine) Destroy() {
	if e.p != nil {
		e.p.Destroy()
	}
	if e.fwd != nil {
		e.fwd.Destroy()
	}
	if e.inv != nil {
		e.inv.Destroy()
	}
	if e.freqA != nil {
		e.freqA.Destroy()
	}
	if e.freqB != nil {
		e.freqB.Destroy()
	}
}

func (e *Engine) SetTextureOffsetScale(offX, offY, scaleX, scaleY float64) {
	e.overlay.textureOffsetX, e.overlay.textureOffsetY = offX, offY
	e.overlay.textureScaleX, e.overlay.textureScaleY = scaleX, scaleY
}

func (e *Engine) SetInputBufferRange(off, size int64) {
	e.overlay.inputRange = bufferRange{off: off, size: size, set: true}
}

func (e *Engine) SetInputAuxBufferRange(off, size int64) {
	e.overlay.inputAuxRange = bufferRange{off: off, size: size, set: true}
}

func (e *Engine) SetOutputBufferRange(off, size int64) {
	e.overlay.outputRange = bufferRange{off: off, size: size, set: true}
}

func (e *Engine) SetSamplers(s []driver.Sampler) {
	e.overlay.samplers = s
}

// Process runs the engine's stored pass list once, per spec §4.6.
func (e *Engine) Process(output, input Surface, inputAux *Surface) error {
	if e.req.Direction == fparams.InverseConvolve {
		return e.processConvolve(output, input, inputAux)
	}
	if err := e.checkRange(e.overlay.inputRange, e.footprintBytes(e.req.InputTarget, e.req.Type == fparams.R2C, e.req.Type.Dual())); err != nil {
		return err
	}
	if err := e.checkRange(e.overlay.outputRange, e.footprintBytes(e.req.OutputTarget, e.req.Type == fparams.C2R, e.req.Type.Dual())); err != nil {
		return err
	}
	return e.runPlanTo(e.p, input, output)
}

func (e *Engine) processConvolve(output, input Surface, inputAux *Surface) error {
	if inputAux == nil {
		return newError(ContractViolation, "InverseConvolve requires a non-nil input_aux handle", nil)
	}
	if err := e.runPlanTo(e.fwd, input, Surface{Buffer: e.freqA}); err != nil {
		return err
	}
	if err := e.runPlanTo(e.fwd, *inputAux, Surface{Buffer: e.freqB}); err != nil {
		return err
	}
	mpass := plan.Pass{
		Params:          e.multiplyParams,
		WorkGroupCountX: e.n / e.multiplyWG,
		WorkGroupCountY: 1,
		Program:         e.multiplyProgram,
	}
	if err := e.dispatchPass(mpass, Surface{Buffer: e.freqA}, Surface{Buffer: e.freqA}, e.freqB); err != nil {
		return newError(ResourceError, "InverseConvolve multiply dispatch failed", err)
	}
	return e.runPlanTo(e.inv, Surface{Buffer: e.freqA}, output)
}

// runPlanTo dispatches every pass of p in order, binding input/output
// at the passes the plan marked as touching the user's surfaces and
// the plan's own temporaries everywhere else.
func (e *Engine) runPlanTo(p *plan.Plan, input, output Surface) error {
	for i, pass := range p.Passes {
		in, out := input, output
		if !pass.ReadsUserInput {
			in = Surface{Buffer: p.Temp[i%2]}
		}
		if !pass.WritesUserOutput {
			out = Surface{Buffer: p.Temp[(i+1)%2]}
		}
		if err := e.dispatchPass(pass, in, out, nil); err != nil {
			return newError(ResourceError, fmt.Sprintf("pass %d dispatch failed", i), err)
		}
	}
	return nil
}

func (e *Engine) dispatchPass(pass plan.Pass, in, out Surface, aux driver.Buffer) error {
	descs := []driver.Descriptor{
		{Type: descType(pass.Params.InputTarget), Nr: driver.DescInput, Len: 1},
		{Type: descType(pass.Params.OutputTarget), Nr: driver.DescOutput, Len: 1},
	}
	if aux != nil {
		descs = append(descs, driver.Descriptor{Type: driver.DBuffer, Nr: driver.DescAux, Len: 1})
	}
	heap, err := e.gpu.NewDescHeap(descs)
	if err != nil {
		return err
	}
	if err := heap.New(1); err != nil {
		return err
	}
	if err := bindSurface(heap, driver.DescInput, pass.Params.InputTarget, in); err != nil {
		return err
	}
	if err := bindSurface(heap, driver.DescOutput, pass.Params.OutputTarget, out); err != nil {
		return err
	}
	if aux != nil {
		heap.SetBuffer(0, driver.DescAux, 0, []driver.Buffer{aux}, nil, nil)
	}
	if len(e.overlay.samplers) > 0 {
		heap.SetSampler(0, driver.DescAux, 0, e.overlay.samplers)
	}

	table, err := e.gpu.NewDescTable([]driver.DescHeap{heap})
	if err != nil {
		return err
	}
	cb, err := e.gpu.NewCmdBuffer()
	if err != nil {
		return err
	}
	if err := cb.Begin(); err != nil {
		return err
	}
	cb.BeginWork(false)
	cb.SetPipeline(pass.Program.Pipeline)
	cb.SetDescTableComp(table, 0, []int{0})
	cb.Dispatch(pass.WorkGroupCountX, pass.WorkGroupCountY, 1)
	cb.Barrier([]driver.Barrier{pass.Barrier})
	cb.EndWork()
	if err := cb.End(); err != nil {
		return err
	}
	ch := make(chan error, 1)
	e.gpu.Commit([]driver.CmdBuffer{cb}, ch)
	return <-ch
}

// validSurfaceTriple implements spec §6's support matrix: SSBO->SSBO
// for every type; Image->SSBO for C2C/C2C-dual/C2R; ImageReal->SSBO
// for R2C; SSBO->Image for C2C/C2C-dual/R2C; SSBO->ImageReal for C2R;
// Image->Image (in any combination) is never supported.
func validSurfaceTriple(t fparams.Type, in, out fparams.Target) bool {
	switch in {
	case fparams.SSBO:
		switch out {
		case fparams.SSBO:
			return true
		case fparams.Image:
			return t == fparams.C2C || t == fparams.C2CDual || t == fparams.R2C
		case fparams.ImageReal:
			return t == fparams.C2R
		}
	case fparams.Image:
		return out == fparams.SSBO && (t == fparams.C2C || t == fparams.C2CDual || t == fparams.C2R)
	case fparams.ImageReal:
		return out == fparams.SSBO && t == fparams.R2C
	}
	return false
}

func descType(t fparams.Target) driver.DescType {
	if t == fparams.SSBO {
		return driver.DBuffer
	}
	return driver.DImage
}

func bindSurface(heap driver.DescHeap, nr int, target fparams.Target, s Surface) error {
	if target == fparams.SSBO {
		if s.Buffer == nil {
			return fmt.Errorf("fft: surface at descriptor %d has no buffer for an SSBO binding", nr)
		}
		heap.SetBuffer(0, nr, 0, []driver.Buffer{s.Buffer}, nil, nil)
		return nil
	}
	if s.Image == nil {
		return fmt.Errorf("fft: surface at descriptor %d has no image for an image binding", nr)
	}
	heap.SetImage(0, nr, 0, []driver.Image{s.Image})
	return nil
}

// footprintBytes estimates the byte footprint a surface of the given
// target/realness/duality must provide for this transform's shape, to
// back the ContractViolation range check.
func (e *Engine) footprintBytes(target fparams.Target, real, dual bool) int64 {
	ny := e.req.Ny
	if ny <= 0 {
		ny = 1
	}
	elems := int64(e.req.Nx) * int64(ny)
	bytesPerElem := int64(8)
	if dual {
		bytesPerElem = 16
	}
	if real {
		bytesPerElem /= 2
	}
	return elems * bytesPerElem
}

func (e *Engine) checkRange(r bufferRange, required int64) error {
	if !r.set {
		return nil
	}
	if r.size < required {
		return newError(ContractViolation, fmt.Sprintf("buffer range of %d bytes is smaller than the transform's %d-byte footprint", r.size, required), nil)
	}
	return nil
}

func compileProgram(gpu driver.GPU, cache *progcache.Cache, params fparams.Parameters) (*progcache.Program, error) {
	if prog := cache.Find(params); prog != nil {
		return prog, nil
	}
	code, pl, err := (templateCompiler{}).Compile(gpu, params)
	if err != nil {
		return nil, err
	}
	return cache.Insert(params, code, pl), nil
}

func classifyBuildErr(err error) *Error {
	msg := err.Error()
	switch {
	case containsAny(msg, "allocating"):
		return newError(ResourceError, "plan temporary allocation failed", err)
	case containsAny(msg, "compiling"):
		return newError(CompilationError, "shader compilation failed", err)
	default:
		return newError(ConfigurationError, "invalid transform configuration", err)
	}
}

func containsAny(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
