package mem

// Buffer is the mem backend's driver.Buffer implementation: a plain
// byte slice standing in for device memory. Since there is no separate
// host/device address space to bridge, every Buffer is host visible.
type Buffer struct {
	data    []byte
	visible bool
}

func (b *Buffer) Destroy() {}

func (b *Buffer) Visible() bool { return b.visible }

func (b *Buffer) Bytes() []byte {
	if !b.visible {
		return nil
	}
	return b.data
}

func (b *Buffer) Cap() int64 { return int64(len(b.data)) }
