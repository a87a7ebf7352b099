// Package plan implements the plan compiler of spec §4.5: given a
// transform shape and the surfaces it reads and writes, it produces an
// ordered sequence of passes, each already bound to a compiled program
// from the cache, ready for the runtime (package fft) to dispatch.
package plan

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/arnek/gpufft/cost"
	"github.com/arnek/gpufft/driver"
	"github.com/arnek/gpufft/enumerate"
	"github.com/arnek/gpufft/fparams"
	"github.com/arnek/gpufft/internal/radixdecomp"
	"github.com/arnek/gpufft/progcache"
	"github.com/arnek/gpufft/wisdom"
)

var log = logrus.WithField("pkg", "plan")

// Compiler turns one Parameters fingerprint into a compiled program. It
// is the collaborator package fft provides so that plan stays free of
// any concrete shader-source generation strategy.
type Compiler interface {
	Compile(gpu driver.GPU, p fparams.Parameters) (driver.ShaderCode, driver.Pipeline, error)
}

// Request describes the transform a Plan must realize.
type Request struct {
	Nx, Ny                    int
	Type                      fparams.Type
	Direction                 fparams.Direction
	InputTarget, OutputTarget fparams.Target
	TypeOpts                  fparams.TypeOptions
	RendererString            string
}

// Pass is one dispatch of a compiled program, fully resolved except
// for the descriptor bindings the runtime attaches at Process time.
type Pass struct {
	Params          fparams.Parameters
	WorkGroupCountX int
	WorkGroupCountY int
	Program         *progcache.Program
	Barrier         driver.Barrier
	// ReadsUserInput and WritesUserOutput mark the passes that bind
	// directly to the caller-supplied surfaces rather than to the
	// plan's own ping-pong temporaries.
	ReadsUserInput   bool
	WritesUserOutput bool
}

// Plan is a fully compiled sequence of passes realizing one transform
// shape. A Plan owns two ping-pong temporary buffers and a Retain on
// the shared program cache; Destroy must be called exactly once.
type Plan struct {
	Nx, Ny                    int
	Type                      fparams.Type
	Direction                 fparams.Direction
	InputTarget, OutputTarget fparams.Target
	Passes                    []Pass
	Temp                      [2]driver.Buffer
	Cost                      float64

	cache *progcache.Cache
}

// Destroy releases the plan's temporaries and its share of the program
// cache. It does not destroy programs still in use by other plans: the
// cache itself is reference counted (package progcache).
func (p *Plan) Destroy() {
	for _, t := range p.Temp {
		if t != nil {
			t.Destroy()
		}
	}
	if p.cache != nil {
		p.cache.Release()
	}
}

// axisPlan is one axis's decomposition before interleaving into steps.
type axisPlan struct {
	mode        fparams.Mode
	dualMode    fparams.Mode
	length      int
	radices     []int
	resolveFor  fparams.Type
	crossLength int // the perpendicular axis length (parallel transform count)
}

// stepKind distinguishes a Stockham combine step from a resolve step
// within the flattened pass sequence.
type stepKind int

const (
	stepStockham stepKind = iota
	stepResolve
)

// step is one entry of the flattened, final pass order: axis
// decomposition turns into a list of axisPlans, but resolve passes can
// precede or follow their axis's Stockham passes depending on
// direction, so the final order is built as a flat list before any
// pass is actually compiled.
type step struct {
	kind        stepKind
	mode        fparams.Mode
	length      int
	crossLength int
	radices     []int
	radixIdx    int
}

// Build compiles req into a Plan, consulting w for the learned or
// prior-seeded Performance of every (length, pass-position) tuple it
// encounters and compiler/cache to obtain a program for each resulting
// Parameters fingerprint.
func Build(gpu driver.GPU, cache *progcache.Cache, w *wisdom.Wisdom, compiler Compiler, req Request) (*Plan, error) {
	if req.Nx <= 0 || req.Nx&(req.Nx-1) != 0 {
		return nil, fmt.Errorf("plan: Nx must be a positive power of two, got %d", req.Nx)
	}
	ny := req.Ny
	if ny <= 0 {
		ny = 1
	}
	if ny > 1 && ny&(ny-1) != 0 {
		return nil, fmt.Errorf("plan: Ny must be a positive power of two, got %d", ny)
	}

	steps := stepsFor(req, ny)
	if len(steps) == 0 {
		return nil, fmt.Errorf("plan: request produced no passes")
	}

	cache = cache.Retain()
	out := &Plan{
		Nx: req.Nx, Ny: ny,
		Type: req.Type, Direction: req.Direction,
		InputTarget: req.InputTarget, OutputTarget: req.OutputTarget,
		cache: cache,
	}

	var cands []cost.Candidate
	limits := gpu.Limits()

	for si, st := range steps {
		isFirst := si == 0
		isLast := si == len(steps)-1

		if st.kind == stepResolve {
			pass, cand, err := buildResolvePass(gpu, cache, w, compiler, req, st, isFirst, isLast)
			if err != nil {
				cache.Release()
				return nil, fmt.Errorf("plan: compiling resolve pass %d: %w", si, err)
			}
			out.Passes = append(out.Passes, pass)
			cands = append(cands, cand)
			continue
		}

		mode := st.mode
		radix := st.radices[st.radixIdx]

		key := wisdom.SizeKey{Length: st.length, Radix: radix, PassPos: si, Precision: precisionOf(req.TypeOpts)}
		if isFirst {
			key.InputTarget = req.InputTarget
		}
		if isLast {
			key.OutputTarget = req.OutputTarget
		}
		perf, source := w.Lookup(key, req.RendererString)
		log.WithFields(logrus.Fields{"pass": si, "radix": radix, "source": source}).Debug("resolved pass performance")

		surfaceComponents := 2
		if req.Type.Dual() {
			surfaceComponents = 4
		}
		if isFirst && req.InputTarget == fparams.ImageReal {
			surfaceComponents = 1
		}

		// Every quantity here -- axis length, radix, and the legal
		// vector widths and work-group sizes enumerate.Options offers
		// -- is a power of two, so clamping a requested divisor down
		// to the dividend never leaves a remainder: dispatch coverage
		// is always exact, with no partial last group for a shader
		// body to bounds-check.
		elementsPerGroup := st.length / radix
		vwWant := perf.VectorWidth
		if surfaceComponents > vwWant {
			vwWant = surfaceComponents
		}
		if vwWant > 8 {
			vwWant = 8
		}
		vw := clampDivisor(elementsPerGroup, vwWant)
		threads := elementsPerGroup / vw
		wgX := clampDivisor(threads, perf.WorkGroupSizeX)
		wgY := clampDivisor(st.crossLength, perf.WorkGroupSizeY)
		for wgX*wgY > limits.MaxWorkGroupInvocations && wgY > 1 {
			wgY /= 2
		}

		params := fparams.New()
		params.WorkGroupX = int32(wgX)
		params.WorkGroupY = int32(wgY)
		params.WorkGroupZ = 1
		params.Radix = int32(radix)
		params.VectorWidth = int32(vw)
		params.Direction = req.Direction
		params.Mode = mode
		params.SharedBanked = perf.SharedBanked
		params.Pow2Stride = true
		params.FP16Core = req.TypeOpts.FP16Core
		params.Normalize = req.TypeOpts.Normalize && isLast
		params.P = int32(pValueFor(st.radices, st.radixIdx))
		// p sequencing (spec §4.5 step 4) marks p1 on the first pass
		// of each axis, i.e. wherever p == 1, not just the first pass
		// of the whole plan.
		params.P1 = params.P == 1
		if isFirst {
			if !enumerate.ValidInputTarget(si, req.InputTarget) {
				cache.Release()
				return nil, fmt.Errorf("plan: input target %s is not legal at pass %d", req.InputTarget, si)
			}
			params.InputTarget = req.InputTarget
			params.FP16Input = req.TypeOpts.FP16Input
		} else {
			params.InputTarget = fparams.SSBO
		}
		if isLast {
			params.OutputTarget = req.OutputTarget
			params.FP16Output = req.TypeOpts.FP16Output
		} else {
			params.OutputTarget = fparams.SSBO
		}

		prog, err := programFor(gpu, cache, compiler, params)
		if err != nil {
			cache.Release()
			return nil, fmt.Errorf("plan: compiling pass %d: %w", si, err)
		}

		cands = append(cands, cost.Candidate{
			Radix: radix, WorkGroupX: wgX, WorkGroupY: wgY,
			VectorWidth: vw, SharedBanked: perf.SharedBanked,
			Pow2Stride: true, SurfaceComponents: surfaceComponents, FirstPass: isFirst,
		})

		out.Passes = append(out.Passes, Pass{
			Params:           params,
			WorkGroupCountX:  threads / wgX,
			WorkGroupCountY:  st.crossLength / wgY,
			Program:          prog,
			Barrier:          passBarrier(),
			ReadsUserInput:   isFirst,
			WritesUserOutput: isLast,
		})
	}

	tempLen := req.Nx * ny * 16 // complex128-per-element headroom, enough for dual-packed elements too
	for i := range out.Temp {
		buf, err := gpu.NewBuffer(int64(tempLen), false, driver.UShaderRead|driver.UShaderWrite)
		if err != nil {
			out.Destroy()
			return nil, fmt.Errorf("plan: allocating temporary %d: %w", i, err)
		}
		out.Temp[i] = buf
	}

	out.Cost = cost.Plan(cands)
	return out, nil
}

// buildResolvePass compiles the single resolve pass for st, which may
// be the first or last pass of the whole plan (an inverse real
// transform resolves before its Stockham passes; a forward one
// resolves after).
func buildResolvePass(gpu driver.GPU, cache *progcache.Cache, w *wisdom.Wisdom, compiler Compiler, req Request, st step, isFirst, isLast bool) (Pass, cost.Candidate, error) {
	resolveMode := fparams.ResolveRealToComplex
	if req.Direction != fparams.Forward {
		resolveMode = fparams.ResolveComplexToReal
	}
	params := fparams.New()
	params.Mode = resolveMode
	params.Direction = req.Direction
	params.ResolveDim = int32(st.length)
	params.VectorWidth = 2
	params.WorkGroupX = int32(fparams.DefaultPerformance().WorkGroupSizeX)
	params.WorkGroupY = 1
	params.WorkGroupZ = 1
	params.Normalize = req.TypeOpts.Normalize && isLast
	if isFirst {
		params.InputTarget = req.InputTarget
		params.FP16Input = req.TypeOpts.FP16Input
	} else {
		params.InputTarget = fparams.SSBO
	}
	if isLast {
		params.OutputTarget = req.OutputTarget
		params.FP16Output = req.TypeOpts.FP16Output
	} else {
		params.OutputTarget = fparams.SSBO
	}

	prog, err := programFor(gpu, cache, compiler, params)
	if err != nil {
		return Pass{}, cost.Candidate{}, err
	}

	threads := ceilDiv(st.length/2+1, 2)
	pass := Pass{
		Params:           params,
		WorkGroupCountX:  ceilDiv(threads, int(params.WorkGroupX)),
		WorkGroupCountY:  st.crossLength,
		Program:          prog,
		Barrier:          passBarrier(),
		ReadsUserInput:   isFirst,
		WritesUserOutput: isLast,
	}
	cand := cost.Candidate{Radix: 2, WorkGroupX: int(params.WorkGroupX), WorkGroupY: 1, VectorWidth: 2, SurfaceComponents: 2, FirstPass: isFirst}
	return pass, cand, nil
}

// programFor looks the program up in cache first and only compiles on
// a miss, so that repeated Build calls for shapes sharing a pass
// configuration reuse the same compiled program (the dedup property
// the program cache exists to provide).
func programFor(gpu driver.GPU, cache *progcache.Cache, compiler Compiler, params fparams.Parameters) (*progcache.Program, error) {
	if prog := cache.Find(params); prog != nil {
		return prog, nil
	}
	code, pipeline, err := compiler.Compile(gpu, params)
	if err != nil {
		return nil, err
	}
	return cache.Insert(params, code, pipeline), nil
}

// axesFor returns the axis decompositions a request exercises: the
// horizontal (Nx) axis and, for a genuinely two-dimensional transform,
// the vertical (Ny) axis. A two-dimensional inverse transform runs its
// vertical pass before its horizontal one, mirroring the forward
// transform's order in reverse.
func axesFor(req Request, ny int) []axisPlan {
	hLength := req.Nx
	var resolveFor fparams.Type
	if req.Type.Real() {
		hLength = req.Nx / 2
		resolveFor = req.Type
	}
	axes := []axisPlan{{
		mode: fparams.Horizontal, dualMode: fparams.HorizontalDual, length: hLength,
		radices: radixdecomp.Axis(hLength), resolveFor: resolveFor, crossLength: ny,
	}}
	if ny > 1 {
		axes = append(axes, axisPlan{
			mode: fparams.Vertical, dualMode: fparams.VerticalDual, length: ny,
			radices: radixdecomp.Axis(ny), crossLength: req.Nx,
		})
		if req.Direction != fparams.Forward {
			reverse(axes)
		}
	}
	return axes
}

// stepsFor flattens the axis decomposition into the final pass order.
// A resolve step precedes its axis's Stockham steps for any non-
// forward (inverse) real transform, and follows them otherwise.
func stepsFor(req Request, ny int) []step {
	var steps []step
	for _, a := range axesFor(req, ny) {
		mode := a.mode
		if req.Type.Dual() {
			mode = a.dualMode
		}
		resolveBefore := a.resolveFor != 0 && req.Direction != fparams.Forward
		if a.resolveFor != 0 && resolveBefore {
			steps = append(steps, step{kind: stepResolve, length: a.length, crossLength: a.crossLength})
		}
		for i := range a.radices {
			steps = append(steps, step{
				kind: stepStockham, mode: mode, length: a.length,
				crossLength: a.crossLength, radices: a.radices, radixIdx: i,
			})
		}
		if a.resolveFor != 0 && !resolveBefore {
			steps = append(steps, step{kind: stepResolve, length: a.length, crossLength: a.crossLength})
		}
	}
	return steps
}

func reverse(a []axisPlan) {
	for i, j := 0, len(a)-1; i < j; i, j = i+1, j-1 {
		a[i], a[j] = a[j], a[i]
	}
}

// pValueFor returns the Stockham "already combined" size for the pass
// at index i within an axis's radix sequence: the product of every
// earlier radix, starting at 1 for the first pass.
func pValueFor(radices []int, i int) int {
	p := 1
	for _, r := range radices[:i] {
		p *= r
	}
	return p
}

func precisionOf(t fparams.TypeOptions) string {
	if t.FP16Core {
		return "fp16"
	}
	return "fp32"
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		b = 1
	}
	return (a + b - 1) / b
}

// ClampDivisor is the exported form of clampDivisor, for callers
// outside this package (package fft's InverseConvolve multiply pass)
// that need the same exact-division guarantee for a dispatch they
// build by hand rather than through Build.
func ClampDivisor(total, want int) int { return clampDivisor(total, want) }

// clampDivisor returns want if it evenly divides total, or the
// largest power-of-two value no greater than total otherwise. Every
// caller in this package passes powers of two for both arguments, so
// the result always evenly divides total.
func clampDivisor(total, want int) int {
	if want <= 0 {
		return 1
	}
	for want > total {
		want /= 2
	}
	return want
}

// passBarrier is the synchronization every Stockham or resolve pass
// needs against the previous one: a compute write must be visible to
// the next pass's compute read before it dispatches.
func passBarrier() driver.Barrier {
	return driver.Barrier{
		SyncBefore: driver.SComputeShading, SyncAfter: driver.SComputeShading,
		AccessBefore: driver.AShaderWrite, AccessAfter: driver.AShaderRead,
	}
}
