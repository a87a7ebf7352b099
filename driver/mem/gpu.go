package mem

import (
	"fmt"

	"github.com/arnek/gpufft/driver"
	"github.com/arnek/gpufft/internal/shadertmpl"
)

// GPU is the mem backend's driver.GPU implementation.
type GPU struct {
	limits driver.Limits
	time   float64
}

func newGPU() *GPU {
	return &GPU{
		limits: driver.Limits{
			MaxImage2D:              8192,
			MaxDescHeaps:            8,
			MaxDBuffer:              16,
			MaxDImage:               16,
			MaxDSampler:             8,
			MaxDBufferRange:         1 << 30,
			MaxWorkGroupInvocations: 1024,
			MaxWorkGroupSize:        [3]int{1024, 1024, 64},
			MaxDispatch:             [3]int{65535, 65535, 65535},
		},
	}
}

func (g *GPU) Driver() driver.Driver { return nil }

// Commit runs every recorded command buffer's work, which (per this
// backend's synchronous Dispatch) has already executed by the time End
// was called; Commit only reports completion.
func (g *GPU) Commit(cb []driver.CmdBuffer, ch chan<- error) {
	for _, c := range cb {
		if mc, ok := c.(*CmdBuffer); ok && mc.failed != nil {
			ch <- mc.failed
			return
		}
	}
	ch <- nil
}

func (g *GPU) NewCmdBuffer() (driver.CmdBuffer, error) {
	return &CmdBuffer{gpu: g}, nil
}

func (g *GPU) NewShaderCode(data []byte) (driver.ShaderCode, error) {
	params, ok := shadertmpl.ParseParams(data)
	if !ok {
		return nil, fmt.Errorf("mem: shader source has no embedded parameters")
	}
	return &ShaderCode{params: params}, nil
}

func (g *GPU) NewDescHeap(ds []driver.Descriptor) (driver.DescHeap, error) {
	return &DescHeap{descs: ds}, nil
}

func (g *GPU) NewDescTable(dh []driver.DescHeap) (driver.DescTable, error) {
	heaps := make([]*DescHeap, len(dh))
	for i, h := range dh {
		mh, ok := h.(*DescHeap)
		if !ok {
			return nil, fmt.Errorf("mem: foreign DescHeap implementation")
		}
		heaps[i] = mh
	}
	return &DescTable{heaps: heaps, copyIdx: make([]int, len(heaps))}, nil
}

func (g *GPU) NewPipeline(state *driver.CompState) (driver.Pipeline, error) {
	code, ok := state.Func.Code.(*ShaderCode)
	if !ok {
		return nil, fmt.Errorf("mem: foreign ShaderCode implementation")
	}
	return &Pipeline{params: code.params}, nil
}

func (g *GPU) NewBuffer(size int64, visible bool, usg driver.Usage) (driver.Buffer, error) {
	return &Buffer{data: make([]byte, size), visible: true}, nil
}

func (g *GPU) NewImage(pf driver.PixelFmt, size driver.Dim2D, usg driver.Usage) (driver.Image, error) {
	bytesPerPixel := pf.NComponents() * 4
	return &Image{
		data:   make([]byte, size.Width*size.Height*bytesPerPixel),
		size:   size,
		format: pf,
	}, nil
}

func (g *GPU) NewSampler(spln *driver.Sampling) (driver.Sampler, error) {
	return &Sampler{}, nil
}

func (g *GPU) Limits() driver.Limits { return g.limits }

func (g *GPU) RendererString() string { return "gpufft software reference (mem)" }

func (g *GPU) MonotonicTime() float64 {
	g.time += 1e-6
	return g.time
}

func (g *GPU) WaitIdle() error { return nil }
