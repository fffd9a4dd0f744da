package gpu

import (
	"errors"
	"fmt"

	"github.com/gekko3d/gpuparticles/particlert/rt/core"
)

var (
	ErrFloatTargetsUnsupported = errors.New("float32 color attachments are not supported by this GPU")
	ErrFeedbackLoop            = errors.New("texture bound as sampler input is the pass render target")
	ErrOutOfOrder              = core.ErrOutOfOrder
	ErrInvalidDelta            = errors.New("delta time must be finite and non-negative")
	ErrTooLarge                = errors.New("texture exceeds device limits")
	ErrUnknownUniform          = errors.New("unknown uniform")
	ErrUniformType             = errors.New("uniform value has the wrong type")
)

// AllocationError reports a texture or framebuffer that could not be created
// at the requested size.
type AllocationError struct {
	Label  string
	Width  int
	Height int
	Err    error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocate %s (%dx%d): %v", e.Label, e.Width, e.Height, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

// ProgramError reports a shader program that failed to compile or link.
type ProgramError struct {
	Name string
	Err  error
}

func (e *ProgramError) Error() string {
	return fmt.Sprintf("program %s: %v", e.Name, e.Err)
}

func (e *ProgramError) Unwrap() error { return e.Err }

type TextureFormat int

const (
	FormatRGBA32Float TextureFormat = iota
	FormatRGBA8UnormSrgb
)

func (f TextureFormat) BytesPerTexel() int {
	switch f {
	case FormatRGBA32Float:
		return 16
	case FormatRGBA8UnormSrgb:
		return 4
	}
	panic(fmt.Sprintf("unknown texture format %d", int(f)))
}

type Capabilities struct {
	// FloatRenderTargets is true when RGBA32F textures can be color attachments.
	FloatRenderTargets  bool
	MaxTextureDimension uint32
}

type TextureDesc struct {
	Label  string
	Width  int
	Height int
	Format TextureFormat
	// RenderTarget textures may be attached to a Framebuffer.
	RenderTarget bool
	// Exactly one of Float (RGBA32F, 4 per texel) or Pixels (RGBA8) may be set.
	// Both nil leaves the contents zeroed.
	Float  []float32
	Pixels []byte
}

type Texture interface {
	Label() string
	Size() (width, height int)
	Format() TextureFormat
}

// Framebuffer is a render target wrapping exactly one texture's color attachment.
type Framebuffer interface {
	Label() string
	Texture() Texture
}

type VertexFormat int

const (
	VertexFloat32x2 VertexFormat = iota
	VertexFloat32x3
	VertexFloat32x4
	VertexUint32
)

type StepMode int

const (
	StepVertex StepMode = iota
	StepInstance
)

type VertexAttribute struct {
	Location uint32
	Offset   uint64
	Format   VertexFormat
}

type VertexLayout struct {
	Stride     uint64
	StepMode   StepMode
	Attributes []VertexAttribute
}

// ShapeLayout is the layout of core.Vertex.
var ShapeLayout = VertexLayout{
	Stride:   core.VertexStride,
	StepMode: StepVertex,
	Attributes: []VertexAttribute{
		{Location: 0, Offset: 0, Format: VertexFloat32x3},
		{Location: 1, Offset: 12, Format: VertexFloat32x3},
		{Location: 2, Offset: 24, Format: VertexFloat32x2},
	},
}

// InstanceIDLayout carries the particle identifier, one per instance.
var InstanceIDLayout = VertexLayout{
	Stride:   4,
	StepMode: StepInstance,
	Attributes: []VertexAttribute{
		{Location: 3, Offset: 0, Format: VertexUint32},
	},
}

type VertexBufferData struct {
	Layout VertexLayout
	Data   []byte
}

type VertexArrayDesc struct {
	Label   string
	Buffers []VertexBufferData
}

type VertexArray interface {
	Label() string
	VertexCount() uint32
	// InstanceCount is the number of entries in the instance-rate buffer, 0 if none.
	InstanceCount() uint32
}

type TargetKind int

const (
	TargetDisplay TargetKind = iota
	TargetState
)

type TextureSlot struct {
	Name string
	// Filterable slots are sampled through a linear sampler; others use textureLoad.
	Filterable bool
}

type ProgramDesc struct {
	Name     string
	Source   string
	Uniforms []UniformField
	Textures []TextureSlot
	Vertex   []VertexLayout
	Target   TargetKind
	// Depth state, ignored for TargetState programs.
	DepthTest  bool
	DepthWrite bool
}

// Program is a compiled pipeline plus its uniform block.
type Program interface {
	Name() string
	SetUniform(name string, value any) error
}

type Viewport struct {
	X, Y          float32
	Width, Height float32
}

func FullViewport(width, height int) Viewport {
	return Viewport{Width: float32(width), Height: float32(height)}
}

type ClearValues struct {
	Color [4]float64
	Depth float32
}

type PassDesc struct {
	Label string
	// Target nil renders to the display.
	Target Framebuffer
	Clear  *ClearValues
}

type Pass interface {
	SetViewport(vp Viewport)
	UseProgram(p Program)
	BindTexture(slot int, tex Texture) error
	// Draw issues one draw of va; instances 0 draws a single non-instanced copy.
	Draw(va VertexArray, instances uint32) error
	End() error
}

type Frame interface {
	BeginPass(desc PassDesc) (Pass, error)
	Submit() error
}

// Device is the GPU capability the particle system is written against.
type Device interface {
	Capabilities() Capabilities
	CreateTexture(desc TextureDesc) (Texture, error)
	CreateFramebuffer(tex Texture) (Framebuffer, error)
	CreateProgram(desc ProgramDesc) (Program, error)
	CreateVertexArray(desc VertexArrayDesc) (VertexArray, error)
	ResizeDisplay(width, height int)
	BeginFrame() (Frame, error)
}

// CheckFeedback fails when tex is the texture attached to target.
// Every Pass implementation calls it from BindTexture.
func CheckFeedback(target Framebuffer, tex Texture) error {
	if target != nil && tex != nil && target.Texture() == tex {
		return fmt.Errorf("%w: %s", ErrFeedbackLoop, tex.Label())
	}
	return nil
}

// ValidateTextureDesc checks the size and payload of desc against caps.
func ValidateTextureDesc(desc TextureDesc, caps Capabilities) error {
	fail := func(err error) error {
		return &AllocationError{Label: desc.Label, Width: desc.Width, Height: desc.Height, Err: err}
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return fail(errors.New("non-positive size"))
	}
	if caps.MaxTextureDimension > 0 &&
		(uint32(desc.Width) > caps.MaxTextureDimension || uint32(desc.Height) > caps.MaxTextureDimension) {
		return fail(fmt.Errorf("%w: max dimension %d", ErrTooLarge, caps.MaxTextureDimension))
	}
	if desc.RenderTarget && desc.Format == FormatRGBA32Float && !caps.FloatRenderTargets {
		return fail(ErrFloatTargetsUnsupported)
	}
	texels := desc.Width * desc.Height
	if desc.Float != nil && len(desc.Float) != texels*4 {
		return fail(fmt.Errorf("float payload has %d values, want %d", len(desc.Float), texels*4))
	}
	if desc.Pixels != nil && len(desc.Pixels) != texels*desc.Format.BytesPerTexel() {
		return fail(fmt.Errorf("pixel payload has %d bytes, want %d", len(desc.Pixels), texels*desc.Format.BytesPerTexel()))
	}
	return nil
}
