package mem

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/arnek/gpufft/driver"
	"github.com/arnek/gpufft/fparams"
	"github.com/arnek/gpufft/internal/stockham"
)

// CmdBuffer is the mem backend's driver.CmdBuffer implementation. Every
// Dispatch runs synchronously against plain Go slices the moment it is
// called: there is no separate queue-submission step, so by the time
// End returns, the whole recorded sequence has already executed (or
// CmdBuffer.failed records why it didn't).
type CmdBuffer struct {
	gpu *GPU

	pipeline *Pipeline
	table    *DescTable

	recording bool
	failed    error
}

func (c *CmdBuffer) Destroy() {}

func (c *CmdBuffer) Begin() error {
	if c.recording {
		return fmt.Errorf("mem: Begin called while already recording")
	}
	c.recording = true
	c.failed = nil
	return nil
}

func (c *CmdBuffer) BeginWork(wait bool) {}

func (c *CmdBuffer) EndWork() {}

func (c *CmdBuffer) SetPipeline(pl driver.Pipeline) {
	mp, ok := pl.(*Pipeline)
	if !ok {
		c.failed = fmt.Errorf("mem: foreign Pipeline implementation")
		return
	}
	c.pipeline = mp
}

func (c *CmdBuffer) SetDescTableComp(table driver.DescTable, start int, heapCopy []int) {
	mt, ok := table.(*DescTable)
	if !ok {
		c.failed = fmt.Errorf("mem: foreign DescTable implementation")
		return
	}
	for i, cpy := range heapCopy {
		if i < len(mt.copyIdx) {
			mt.copyIdx[i] = cpy
		}
	}
	c.table = mt
}

// Dispatch executes exactly one pass of the transform: one Stockham
// combine of the pipeline's radix at its distance value, or one
// real/complex resolve, over the axis and cross-section described by
// the dispatch's thread-group counts together with the pipeline's
// Parameters. Per plan.Build, every work-group and vector-width
// divisor evenly divides its dividend, so the axis length and
// parallel-transform count recovered here from grpCountX/grpCountY are
// exact, never a padded approximation.
func (c *CmdBuffer) Dispatch(grpCountX, grpCountY, grpCountZ int) {
	if c.failed != nil {
		return
	}
	if c.pipeline == nil || c.table == nil {
		c.failed = fmt.Errorf("mem: Dispatch with no pipeline or descriptor table bound")
		return
	}
	p := c.pipeline.params
	crossLen := grpCountY * int(p.WorkGroupY)

	if p.Mode.IsMultiply() {
		c.dispatchMultiply(p, grpCountX*int(p.WorkGroupX))
		return
	}
	if p.Mode.IsResolve() {
		c.dispatchResolve(p, crossLen)
		return
	}

	axisLen := grpCountX * int(p.WorkGroupX) * int(p.VectorWidth) * int(p.Radix)
	c.dispatchStockham(p, axisLen, crossLen)
}

// dispatchMultiply computes the elementwise complex product of the
// buffers bound at DescInput and DescAux, writing the result to
// DescOutput, over n complex elements.
func (c *CmdBuffer) dispatchMultiply(p fparams.Parameters, n int) {
	in, err := c.surfaceFor(driver.DescInput, p.InputTarget, false)
	if err != nil {
		c.failed = fmt.Errorf("mem: multiply input: %w", err)
		return
	}
	aux, err := c.surfaceFor(driver.DescAux, fparams.SSBO, false)
	if err != nil {
		c.failed = fmt.Errorf("mem: multiply aux: %w", err)
		return
	}
	out, err := c.surfaceFor(driver.DescOutput, p.OutputTarget, false)
	if err != nil {
		c.failed = fmt.Errorf("mem: multiply output: %w", err)
		return
	}
	for k := 0; k < n; k++ {
		out.set(k, 0, in.at(k, 0)*aux.at(k, 0))
	}
}

func (c *CmdBuffer) dispatchStockham(p fparams.Parameters, axisLen, crossLen int) {
	vertical := p.Mode == fparams.Vertical || p.Mode == fparams.VerticalDual
	dual := p.Mode == fparams.HorizontalDual || p.Mode == fparams.VerticalDual
	planes := 1
	if dual {
		planes = 2
	}

	in, err := c.surfaceFor(driver.DescInput, p.InputTarget, dual)
	if err != nil {
		c.failed = fmt.Errorf("mem: dispatch input: %w", err)
		return
	}
	out, err := c.surfaceFor(driver.DescOutput, p.OutputTarget, dual)
	if err != nil {
		c.failed = fmt.Errorf("mem: dispatch output: %w", err)
		return
	}

	rowStart, sampleStride := rowLayout(vertical, axisLen, crossLen)
	inverse := p.Direction != fparams.Forward

	for plane := 0; plane < planes; plane++ {
		for row := 0; row < crossLen; row++ {
			start := rowStart(row)
			data := make([]complex128, axisLen)
			for k := 0; k < axisLen; k++ {
				data[k] = in.at(start+k*sampleStride, plane)
			}
			data = stockham.PassStage(data, int(p.P), int(p.Radix), inverse)
			if p.Normalize {
				stockham.Normalize(data)
			}
			for k := 0; k < axisLen; k++ {
				out.set(start+k*sampleStride, plane, data[k])
			}
		}
	}
}

// dispatchResolve runs the real/complex packing-trick conversion for
// one row of the resolving axis: ResolveR2C on a forward transform,
// ResolveC2R on an inverse one.
func (c *CmdBuffer) dispatchResolve(p fparams.Parameters, crossLen int) {
	m := int(p.ResolveDim)
	forward := p.Mode == fparams.ResolveRealToComplex

	in, err := c.surfaceFor(driver.DescInput, p.InputTarget, false)
	if err != nil {
		c.failed = fmt.Errorf("mem: dispatch input: %w", err)
		return
	}
	out, err := c.surfaceFor(driver.DescOutput, p.OutputTarget, false)
	if err != nil {
		c.failed = fmt.Errorf("mem: dispatch output: %w", err)
		return
	}

	var inLen, outLen int
	if forward {
		inLen, outLen = m, m+1
	} else {
		inLen, outLen = m+1, m
	}

	for row := 0; row < crossLen; row++ {
		inStart := row * inLen
		data := make([]complex128, inLen)
		for k := 0; k < inLen; k++ {
			data[k] = in.at(inStart+k, 0)
		}
		var result []complex128
		if forward {
			result = stockham.ResolveR2C(data)
		} else {
			result = stockham.ResolveC2R(data, m)
		}
		if p.Normalize {
			stockham.Normalize(result)
		}
		outStart := row * outLen
		for k := 0; k < outLen; k++ {
			out.set(outStart+k, 0, result[k])
		}
	}
}

// rowLayout returns, for the given orientation, the function mapping a
// parallel-transform index to its first complex-element index and the
// stride between consecutive samples of that transform. A horizontal
// pass's rows are contiguous (Nx fastest, row-major); a vertical
// pass's rows are columns, strided by the row-major width (which
// equals the cross length, since Nx is always the fastest dimension).
func rowLayout(vertical bool, axisLen, crossLen int) (rowStart func(int) int, sampleStride int) {
	if vertical {
		return func(row int) int { return row }, crossLen
	}
	return func(row int) int { return row * axisLen }, 1
}

func (c *CmdBuffer) CopyBuffer(cp *driver.BufferCopy) {
	from, ok := cp.From.(*Buffer)
	to, ok2 := cp.To.(*Buffer)
	if !ok || !ok2 {
		c.failed = fmt.Errorf("mem: foreign Buffer implementation in CopyBuffer")
		return
	}
	copy(to.data[cp.ToOff:cp.ToOff+cp.Size], from.data[cp.FromOff:cp.FromOff+cp.Size])
}

func (c *CmdBuffer) CopyBufToImg(cp *driver.BufImgCopy) {
	buf, ok := cp.Buf.(*Buffer)
	img, ok2 := cp.Img.(*Image)
	if !ok || !ok2 {
		c.failed = fmt.Errorf("mem: foreign implementation in CopyBufToImg")
		return
	}
	n := cp.Size.Width * cp.Size.Height * img.format.NComponents() * 4
	copy(img.data, buf.data[cp.BufOff:cp.BufOff+int64(n)])
}

func (c *CmdBuffer) CopyImgToBuf(cp *driver.BufImgCopy) {
	buf, ok := cp.Buf.(*Buffer)
	img, ok2 := cp.Img.(*Image)
	if !ok || !ok2 {
		c.failed = fmt.Errorf("mem: foreign implementation in CopyImgToBuf")
		return
	}
	n := cp.Size.Width * cp.Size.Height * img.format.NComponents() * 4
	copy(buf.data[cp.BufOff:cp.BufOff+int64(n)], img.data)
}

func (c *CmdBuffer) Barrier(b []driver.Barrier) {}

func (c *CmdBuffer) End() error {
	c.recording = false
	return c.failed
}

func (c *CmdBuffer) Reset() error {
	c.recording = false
	c.failed = nil
	c.pipeline = nil
	c.table = nil
	return nil
}

// complexSurface abstracts reading and writing complex samples from
// whichever resource (Buffer or Image) a descriptor currently binds,
// so Dispatch's row math stays the same regardless of backing target.
// plane selects which of a dual pass's two packed signals to touch;
// it is always 0 for a non-dual pass.
type complexSurface interface {
	at(index, plane int) complex128
	set(index, plane int, v complex128)
}

func (c *CmdBuffer) surfaceFor(nr int, target fparams.Target, dual bool) (complexSurface, error) {
	if target == fparams.SSBO {
		buf, off, _, ok := c.table.buffer(nr)
		if !ok || buf == nil {
			return nil, fmt.Errorf("no buffer bound at descriptor %d", nr)
		}
		return &bufferSurface{buf: buf, byteOff: off, dual: dual}, nil
	}
	img, ok := c.table.image(nr)
	if !ok || img == nil {
		return nil, fmt.Errorf("no image bound at descriptor %d", nr)
	}
	return &imageSurface{img: img}, nil
}

type bufferSurface struct {
	buf     *Buffer
	byteOff int64
	dual    bool
}

func (s *bufferSurface) elemFloats() int {
	if s.dual {
		return 4
	}
	return 2
}

func (s *bufferSurface) at(index, plane int) complex128 {
	base := int(s.byteOff) + index*s.elemFloats()*4 + plane*8
	re := readFloat32(s.buf.data, base)
	im := readFloat32(s.buf.data, base+4)
	return complex(float64(re), float64(im))
}

func (s *bufferSurface) set(index, plane int, v complex128) {
	base := int(s.byteOff) + index*s.elemFloats()*4 + plane*8
	writeFloat32(s.buf.data, base, float32(real(v)))
	writeFloat32(s.buf.data, base+4, float32(imag(v)))
}

// imageSurface treats a multi-component image (RG32f/RG16f) as one
// complex sample per pixel, and a single-component image (R32f/R16f,
// the ImageReal target) as two real pixels packed per complex sample --
// the same packing trick applied to the image's own pixel grid.
type imageSurface struct {
	img *Image
}

func (s *imageSurface) at(index, plane int) complex128 {
	comps := s.img.format.NComponents()
	if comps >= 2 {
		base := index * comps * 4
		return complex(float64(readFloat32(s.img.data, base)), float64(readFloat32(s.img.data, base+4)))
	}
	re := readFloat32(s.img.data, (2*index)*4)
	im := readFloat32(s.img.data, (2*index+1)*4)
	return complex(float64(re), float64(im))
}

func (s *imageSurface) set(index, plane int, v complex128) {
	comps := s.img.format.NComponents()
	if comps >= 2 {
		base := index * comps * 4
		writeFloat32(s.img.data, base, float32(real(v)))
		writeFloat32(s.img.data, base+4, float32(imag(v)))
		return
	}
	writeFloat32(s.img.data, (2*index)*4, float32(real(v)))
	writeFloat32(s.img.data, (2*index+1)*4, float32(imag(v)))
}

func readFloat32(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off : off+4]))
}

func writeFloat32(b []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(b[off:off+4], math.Float32bits(v))
}
