package mem

import "github.com/arnek/gpufft/driver"

// Image is the mem backend's driver.Image implementation: a flat byte
// slice of width*height*components float32 lanes, row-major.
type Image struct {
	data   []byte
	size   driver.Dim2D
	format driver.PixelFmt
}

func (i *Image) Destroy() {}

func (i *Image) Size() driver.Dim2D { return i.size }

func (i *Image) Format() driver.PixelFmt { return i.format }

// Bytes returns the image's backing storage for test/CLI readback,
// the image-surface counterpart to Buffer.Bytes -- the spec's
// collaborator interface documents map/unmap for exactly this
// purpose.
func (i *Image) Bytes() []byte { return i.data }

// Sampler is the mem backend's driver.Sampler implementation. It
// carries no state: the reference backend's resolve/Stockham math
// reads images directly by index rather than through filtered texture
// sampling, since every bound image is used as an exact-size storage
// surface (spec §4.6's texture offset/scale exists for a real
// sampler's normalized coordinates, not for this backend's integer
// indexing).
type Sampler struct{}

func (s *Sampler) Destroy() {}
