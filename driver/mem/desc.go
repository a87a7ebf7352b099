package mem

import "github.com/arnek/gpufft/driver"

// boundBuffer is one SetBuffer binding: the underlying Buffer plus the
// byte range the runtime declared for this descriptor slot.
type boundBuffer struct {
	buf  *Buffer
	off  int64
	size int64
}

// DescHeap stores, per heap copy and descriptor number, whichever
// resources were last bound there. The engine's binding convention
// (package fft) is fixed and small -- descriptor 0 is always a pass's
// input surface, descriptor 1 its output, descriptor 2 an optional
// auxiliary input for InverseConvolve -- so a heap never needs more
// than a handful of live bindings at once.
type DescHeap struct {
	descs    []driver.Descriptor
	buffers  []map[int][]boundBuffer
	images   []map[int][]*Image
	samplers []map[int][]*Sampler
}

func (h *DescHeap) Destroy() {}

func (h *DescHeap) New(n int) error {
	h.buffers = make([]map[int][]boundBuffer, n)
	h.images = make([]map[int][]*Image, n)
	h.samplers = make([]map[int][]*Sampler, n)
	for i := range h.buffers {
		h.buffers[i] = make(map[int][]boundBuffer)
		h.images[i] = make(map[int][]*Image)
		h.samplers[i] = make(map[int][]*Sampler)
	}
	return nil
}

func (h *DescHeap) SetBuffer(cpy, nr, start int, buf []driver.Buffer, off, size []int64) {
	bound := make([]boundBuffer, len(buf))
	for i, b := range buf {
		mb, _ := b.(*Buffer)
		var o, s int64
		if i < len(off) {
			o = off[i]
		}
		if i < len(size) {
			s = size[i]
		}
		bound[i] = boundBuffer{buf: mb, off: o, size: s}
	}
	h.buffers[cpy][nr] = bound
}

func (h *DescHeap) SetImage(cpy, nr, start int, img []driver.Image) {
	bound := make([]*Image, len(img))
	for i, im := range img {
		bound[i], _ = im.(*Image)
	}
	h.images[cpy][nr] = bound
}

func (h *DescHeap) SetSampler(cpy, nr, start int, splr []driver.Sampler) {
	bound := make([]*Sampler, len(splr))
	for i, s := range splr {
		bound[i], _ = s.(*Sampler)
	}
	h.samplers[cpy][nr] = bound
}

func (h *DescHeap) Count() int { return len(h.buffers) }

func (h *DescHeap) buffer(cpy, nr int) (*Buffer, int64, int64, bool) {
	if cpy >= len(h.buffers) {
		return nil, 0, 0, false
	}
	bound, ok := h.buffers[cpy][nr]
	if !ok || len(bound) == 0 {
		return nil, 0, 0, false
	}
	return bound[0].buf, bound[0].off, bound[0].size, true
}

func (h *DescHeap) image(cpy, nr int) (*Image, bool) {
	if cpy >= len(h.images) {
		return nil, false
	}
	bound, ok := h.images[cpy][nr]
	if !ok || len(bound) == 0 || bound[0] == nil {
		return nil, false
	}
	return bound[0], true
}

// DescTable groups a number of DescHeaps together with a per-heap
// selected copy index, updated by CmdBuffer.SetDescTableComp.
type DescTable struct {
	heaps   []*DescHeap
	copyIdx []int
}

func (t *DescTable) Destroy() {}

func (t *DescTable) buffer(nr int) (*Buffer, int64, int64, bool) {
	for i, h := range t.heaps {
		if b, off, size, ok := h.buffer(t.copyIdx[i], nr); ok {
			return b, off, size, true
		}
	}
	return nil, 0, 0, false
}

func (t *DescTable) image(nr int) (*Image, bool) {
	for i, h := range t.heaps {
		if im, ok := h.image(t.copyIdx[i], nr); ok {
			return im, true
		}
	}
	return nil, false
}
