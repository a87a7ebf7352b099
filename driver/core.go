// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package driver

// GPU is the main interface to an underlying driver
// implementation.
// It is used to create other types and to execute commands.
// A GPU is obtained from a call to Driver.Open.
//
// Unlike a general-purpose graphics GPU interface, this one is
// trimmed to the compute-only subset that a GPU-resident FFT
// engine exercises: there is no render pass, framebuffer, or
// graphics pipeline state here, since the engine never
// rasterizes anything.
type GPU interface {
	// Driver returns the Driver that owns the GPU.
	Driver() Driver

	// Commit commits a batch of command buffers to the GPU
	// for execution. This method sends the result to ch when
	// all commands complete execution. Command buffers in cb
	// cannot be used for recording until then.
	Commit(cb []CmdBuffer, ch chan<- error)

	// NewCmdBuffer creates a new command buffer.
	NewCmdBuffer() (CmdBuffer, error)

	// NewShaderCode creates a new shader code.
	NewShaderCode(data []byte) (ShaderCode, error)

	// NewDescHeap creates a new descriptor heap.
	NewDescHeap(ds []Descriptor) (DescHeap, error)

	// NewDescTable creates a new descriptor table.
	NewDescTable(dh []DescHeap) (DescTable, error)

	// NewPipeline creates a new compute pipeline.
	NewPipeline(state *CompState) (Pipeline, error)

	// NewBuffer creates a new buffer.
	NewBuffer(size int64, visible bool, usg Usage) (Buffer, error)

	// NewImage creates a new 2-D storage/sampled image.
	NewImage(pf PixelFmt, size Dim2D, usg Usage) (Image, error)

	// NewSampler creates a new Sampler.
	NewSampler(spln *Sampling) (Sampler, error)

	// Limits returns the implementation limits.
	// They are immutable for the lifetime of the GPU.
	Limits() Limits

	// RendererString identifies the underlying device/driver,
	// e.g. "Mali-G78" or "NVIDIA GeForce RTX". Used by the
	// wisdom package to select a static option prior.
	RendererString() string

	// MonotonicTime returns a monotonically increasing time
	// value in seconds, used by the runtime's bench method.
	MonotonicTime() float64

	// WaitIdle blocks until all committed work has completed.
	WaitIdle() error
}

// Destroyer is the interface that wraps the Destroy method.
// Types that implement this interface may allocate external
// memory that is not managed by GC, so Destroy must be
// called explicitly to ensure such memory is deallocated.
type Destroyer interface {
	Destroy()
}

// CmdBuffer is the interface that defines a command buffer
// restricted to the operations a compute-only consumer needs.
// Commands are recorded into command buffers and later
// committed to the GPU for execution. The usage is as follows:
//
// To record compute commands:
//	1. call Begin
//	2. call BeginWork
//	3. call Set* methods to configure compute state
//	4. call Dispatch commands
//	5. repeat 3-4 as needed
//	6. call EndWork
//
// Copy commands (for staging or ping-pong setup) may be
// interleaved with compute work; the engine never needs a
// dedicated blit block since every copy it issues is itself
// compute-adjacent bookkeeping.
//
// Finally, call End and, if it succeeds, GPU.Commit.
type CmdBuffer interface {
	Destroyer

	// Begin prepares the command buffer for recording.
	Begin() error

	// BeginWork begins compute work.
	// If wait is set, compute work only starts when all
	// previous commands recorded in the same command buffer
	// are done executing.
	BeginWork(wait bool)

	// EndWork ends the current compute work.
	EndWork()

	// SetPipeline sets the compute pipeline.
	SetPipeline(pl Pipeline)

	// SetDescTableComp sets a descriptor table range for
	// the compute pipeline.
	SetDescTableComp(table DescTable, start int, heapCopy []int)

	// Dispatch dispatches compute thread groups.
	// It must only be called during compute work.
	Dispatch(grpCountX, grpCountY, grpCountZ int)

	// CopyBuffer copies data between buffers.
	CopyBuffer(param *BufferCopy)

	// CopyBufToImg copies data from a buffer to an image.
	CopyBufToImg(param *BufImgCopy)

	// CopyImgToBuf copies data from an image to a buffer.
	CopyImgToBuf(param *BufImgCopy)

	// Barrier inserts a number of global barriers in the
	// command buffer.
	Barrier(b []Barrier)

	// End ends command recording and prepares the command
	// buffer for execution.
	End() error

	// Reset discards all recorded commands from the command
	// buffer.
	Reset() error
}

// BufferCopy describes the parameters of a copy command
// that copies data from one buffer to another.
type BufferCopy struct {
	From    Buffer
	FromOff int64
	To      Buffer
	ToOff   int64
	Size    int64
}

// BufImgCopy describes the parameters of a copy command
// that copies data between a buffer and an image.
type BufImgCopy struct {
	Buf    Buffer
	BufOff int64
	Img    Image
	ImgOff Off2D
	Size   Dim2D
}

// Sync is the type of a synchronization scope.
type Sync int

// Synchronization scopes.
const (
	SComputeShading Sync = 1 << iota
	SCopy
	SAll
	SNone Sync = 0
)

// Access is the type of a memory access scope.
type Access int

// Memory access scopes.
const (
	AShaderRead Access = 1 << iota
	AShaderWrite
	ACopyRead
	ACopyWrite
	AAnyRead
	AAnyWrite
	ANone Access = 0
)

// Barrier represents a synchronization barrier.
type Barrier struct {
	SyncBefore   Sync
	SyncAfter    Sync
	AccessBefore Access
	AccessAfter  Access
}

// ShaderCode is the interface that defines a shader binary
// for execution in the compute pipeline stage.
type ShaderCode interface {
	Destroyer
}

// ShaderFunc specifies the compute function within a shader
// binary.
type ShaderFunc struct {
	Code ShaderCode
	Name string
}

// DescType is the type of a descriptor.
type DescType int

// Descriptor types.
const (
	// Read/write buffer (SSBO).
	DBuffer DescType = iota
	// Read/write image.
	DImage
	// Sampled texture.
	DTexture
	// Texture sampler.
	DSampler
)

// Descriptor describes data for use in the compute shader.
type Descriptor struct {
	Type DescType
	Nr   int
	Len  int
}

// DescHeap is the interface that defines a set of descriptors
// for use in the compute pipeline stage.
type DescHeap interface {
	Destroyer

	// New creates enough storage for n copies of each
	// descriptor. Calling New(0) frees all storage.
	New(n int) error

	// SetBuffer updates the buffer ranges referred by the
	// given descriptor of the given heap copy.
	SetBuffer(cpy, nr, start int, buf []Buffer, off, size []int64)

	// SetImage updates the images referred by the given
	// descriptor of the given heap copy.
	SetImage(cpy, nr, start int, img []Image)

	// SetSampler updates the samplers referred by the given
	// descriptor of the given heap copy.
	SetSampler(cpy, nr, start int, splr []Sampler)

	// Count returns the number of heap copies created by New.
	Count() int
}

// DescTable is the interface that defines the bindings
// between a number of descriptor heaps and the compute
// shader in a pipeline.
type DescTable interface {
	Destroyer
}

// CompState defines the state of a compute pipeline.
// Compute pipelines are created from compute states. The
// state is comprised of a single compute shader and a
// descriptor table describing the resources accessible to
// this shader.
type CompState struct {
	Func ShaderFunc
	Desc DescTable
}

// Pipeline is the interface that defines a GPU pipeline.
type Pipeline interface {
	Destroyer
}

// Usage is a mask indicating valid uses for a resource.
type Usage int

// Usage flags for Buffer and Image.
const (
	// The resource can be read in shaders.
	UShaderRead Usage = 1 << iota
	// The resource can be written in shaders.
	UShaderWrite
	// The resource can be sampled in shaders.
	// Valid only for Image.
	UShaderSample
	// The resource can be used for any purpose.
	UGeneric Usage = 1<<iota - 1
)

// Buffer is the interface that defines a GPU buffer.
// The size of the buffer is fixed. When a larger buffer
// is necessary, a new one must be created and the data
// must be copied explicitly.
type Buffer interface {
	Destroyer

	// Visible returns whether the buffer is host visible.
	// Non-visible memory cannot be accessed by the CPU.
	Visible() bool

	// Bytes returns a slice of length Cap referring to the
	// underlying data. If the buffer is not host visible,
	// it returns nil instead. The slice is valid for the
	// lifetime of the buffer and stands in for the separate
	// map/unmap calls a lower-level API would require.
	Bytes() []byte

	// Cap returns the capacity of the buffer in bytes, which
	// may be greater than the size requested during buffer
	// creation. This value is immutable.
	Cap() int64
}

// PixelFmt describes the format of a pixel.
type PixelFmt int

// Pixel formats. Only the formats an FFT surface can take
// are represented: two-component (complex) and one-component
// (real) images, in 32-bit and 16-bit float precision, plus
// a four-component format, which the CLI uses for dual-signal
// images.
const (
	RGBA8un PixelFmt = iota
	RG32f
	R32f
	RG16f
	R16f
)

// NComponents returns the number of color components
// encoded by the format.
func (f PixelFmt) NComponents() int {
	switch f {
	case RG32f, RG16f:
		return 2
	case R32f, R16f:
		return 1
	default:
		return 4
	}
}

// Dim2D is a two-dimensional size.
type Dim2D struct {
	Width, Height int
}

// Off2D is a two-dimensional offset.
type Off2D struct {
	X, Y int
}

// Image is the interface that defines a GPU image used as a
// storage or sampled surface.
// Unlike a general-purpose image abstraction, FFT surfaces
// are always single-level, single-layer 2-D images, so no
// separate typed-view type is needed: an Image is directly
// bindable in a descriptor heap.
type Image interface {
	Destroyer

	// Size returns the image's width and height.
	Size() Dim2D

	// Format returns the image's pixel format.
	Format() PixelFmt
}

// Filter is the type of sampler filters.
type Filter int

// Filters.
const (
	FNearest Filter = iota
	FLinear
)

// AddrMode is the type of sampler address modes.
type AddrMode int

// Address modes.
const (
	AWrap AddrMode = iota
	AMirror
	AClamp
)

// Sampler is the interface that defines an image sampler.
type Sampler interface {
	Destroyer
}

// Sampling describes image sampler state.
type Sampling struct {
	Min   Filter
	Mag   Filter
	AddrU AddrMode
	AddrV AddrMode
}

// Limits describes implementation limits.
// These may vary across drivers and devices.
type Limits struct {
	// Maximum width/height of a 2-D image.
	MaxImage2D int

	// Maximum number of descriptor heaps in a descriptor
	// table.
	MaxDescHeaps int
	// Maximum number of buffer descriptors in a descriptor
	// table.
	MaxDBuffer int
	// Maximum number of image descriptors in a descriptor
	// table.
	MaxDImage int
	// Maximum number of sampler descriptors in a descriptor
	// table.
	MaxDSampler int
	// Maximum range of buffer descriptors.
	MaxDBufferRange int64

	// Maximum total number of invocations in a work group
	// (work_group_size_x * work_group_size_y * work_group_size_z).
	MaxWorkGroupInvocations int
	// Maximum work-group size per dimension.
	MaxWorkGroupSize [3]int
	// Maximum dispatch count per dimension.
	MaxDispatch [3]int
}
