package gpu

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/gekko3d/gpuparticles/particlert/rt/core"
	"github.com/go-gl/glfw/v3.3/glfw"
)

const depthFormat = wgpu.TextureFormatDepth24Plus

// WgpuDevice implements Device on top of WebGPU, rendering into a GLFW window surface.
type WgpuDevice struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	DepthTexture *wgpu.Texture
	DepthView    *wgpu.TextureView
	Sampler      *wgpu.Sampler

	caps     Capabilities
	programs []*wgpuProgram
	textures []*wgpuTexture
	arrays   []*wgpuVertexArray
	frame    *wgpuFrame
	log      core.Logger
}

// NewWgpuDevice creates the instance, surface, adapter and device for window
// and probes float render target support.
func NewWgpuDevice(window *glfw.Window, log core.Logger) (*WgpuDevice, error) {
	d := &WgpuDevice{log: core.OrNop(log)}
	d.Instance = wgpu.CreateInstance(nil)
	d.Surface = d.Instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(window))

	adapter, err := d.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: d.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	d.Adapter = adapter

	d.Device, err = adapter.RequestDevice(nil)
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}
	d.Queue = d.Device.GetQueue()

	width, height := window.GetFramebufferSize()
	surfaceCaps := d.Surface.GetCapabilities(adapter)
	d.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      surfaceCaps.Formats[0],
		Width:       uint32(max(width, 1)),
		Height:      uint32(max(height, 1)),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   surfaceCaps.AlphaModes[0],
	}
	d.Surface.Configure(adapter, d.Device, d.Config)
	if err := d.createDepth(); err != nil {
		return nil, err
	}

	d.Sampler, err = d.Device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, err
	}

	d.caps = Capabilities{
		FloatRenderTargets:  d.probeFloatTargets(),
		MaxTextureDimension: adapter.GetLimits().Limits.MaxTextureDimension2D,
	}
	d.log.Infof("WebGPU device ready: surface %dx%d %v, float targets %v, max texture %d",
		d.Config.Width, d.Config.Height, d.Config.Format, d.caps.FloatRenderTargets, d.caps.MaxTextureDimension)
	return d, nil
}

func (d *WgpuDevice) probeFloatTargets() bool {
	tex, err := d.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "float target probe",
		Size:          wgpu.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA32Float,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		d.log.Warnf("RGBA32Float render target probe failed: %v", err)
		return false
	}
	tex.Release()
	return true
}

func (d *WgpuDevice) createDepth() error {
	if d.DepthView != nil {
		d.DepthView.Release()
		d.DepthTexture.Release()
	}
	var err error
	d.DepthTexture, err = d.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "display depth",
		Size:          wgpu.Extent3D{Width: d.Config.Width, Height: d.Config.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        depthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return err
	}
	d.DepthView, err = d.DepthTexture.CreateView(nil)
	return err
}

func (d *WgpuDevice) Capabilities() Capabilities { return d.caps }

// ResizeDisplay reconfigures the surface and its depth buffer. Zero sizes
// (minimized window) are ignored.
func (d *WgpuDevice) ResizeDisplay(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	d.Config.Width = uint32(width)
	d.Config.Height = uint32(height)
	d.Surface.Configure(d.Adapter, d.Device, d.Config)
	if err := d.createDepth(); err != nil {
		d.log.Errorf("Recreate depth buffer %dx%d: %v", width, height, err)
	}
}

func (d *WgpuDevice) Release() {
	for _, p := range d.programs {
		p.release()
	}
	for _, t := range d.textures {
		t.view.Release()
		t.tex.Release()
	}
	for _, va := range d.arrays {
		for _, b := range va.buffers {
			b.Release()
		}
	}
	if d.DepthView != nil {
		d.DepthView.Release()
		d.DepthTexture.Release()
	}
	if d.Sampler != nil {
		d.Sampler.Release()
	}
	d.Queue.Release()
	d.Device.Release()
	d.Adapter.Release()
	d.Surface.Release()
	d.Instance.Release()
}

// Textures

type wgpuTexture struct {
	label  string
	width  int
	height int
	format TextureFormat
	tex    *wgpu.Texture
	view   *wgpu.TextureView
}

func (t *wgpuTexture) Label() string         { return t.label }
func (t *wgpuTexture) Size() (int, int)      { return t.width, t.height }
func (t *wgpuTexture) Format() TextureFormat { return t.format }
func (t *wgpuTexture) key() string           { return fmt.Sprintf("%p", t) }

func wgpuTextureFormat(f TextureFormat) wgpu.TextureFormat {
	if f == FormatRGBA8UnormSrgb {
		return wgpu.TextureFormatRGBA8UnormSrgb
	}
	return wgpu.TextureFormatRGBA32Float
}

func (d *WgpuDevice) CreateTexture(desc TextureDesc) (Texture, error) {
	if err := ValidateTextureDesc(desc, d.caps); err != nil {
		return nil, err
	}
	usage := wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst
	if desc.RenderTarget {
		usage |= wgpu.TextureUsageRenderAttachment
	}
	extent := wgpu.Extent3D{Width: uint32(desc.Width), Height: uint32(desc.Height), DepthOrArrayLayers: 1}
	tex, err := d.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         desc.Label,
		Size:          extent,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpuTextureFormat(desc.Format),
		Usage:         usage,
	})
	if err != nil {
		return nil, &AllocationError{Label: desc.Label, Width: desc.Width, Height: desc.Height, Err: err}
	}

	var data []byte
	switch {
	case desc.Float != nil:
		data = wgpu.ToBytes(desc.Float)
	case desc.Pixels != nil:
		data = desc.Pixels
	}
	if data != nil {
		err = d.Queue.WriteTexture(tex.AsImageCopy(), data, &wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(desc.Width * desc.Format.BytesPerTexel()),
			RowsPerImage: uint32(desc.Height),
		}, &extent)
		if err != nil {
			tex.Release()
			return nil, &AllocationError{Label: desc.Label, Width: desc.Width, Height: desc.Height, Err: err}
		}
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	t := &wgpuTexture{label: desc.Label, width: desc.Width, height: desc.Height, format: desc.Format, tex: tex, view: view}
	d.textures = append(d.textures, t)
	return t, nil
}

type wgpuFramebuffer struct {
	tex *wgpuTexture
}

func (f *wgpuFramebuffer) Label() string    { return f.tex.label + "/fb" }
func (f *wgpuFramebuffer) Texture() Texture { return f.tex }

func (d *WgpuDevice) CreateFramebuffer(tex Texture) (Framebuffer, error) {
	t, ok := tex.(*wgpuTexture)
	if !ok {
		return nil, fmt.Errorf("framebuffer %s: texture is not a WebGPU texture", tex.Label())
	}
	if t.format != FormatRGBA32Float {
		return nil, fmt.Errorf("framebuffer %s: only RGBA32Float state textures are render targets", t.label)
	}
	return &wgpuFramebuffer{tex: t}, nil
}

// Vertex arrays

type wgpuVertexArray struct {
	label     string
	buffers   []*wgpu.Buffer
	sizes     []uint64
	vertices  uint32
	instances uint32
}

func (va *wgpuVertexArray) Label() string         { return va.label }
func (va *wgpuVertexArray) VertexCount() uint32   { return va.vertices }
func (va *wgpuVertexArray) InstanceCount() uint32 { return va.instances }

func (d *WgpuDevice) CreateVertexArray(desc VertexArrayDesc) (VertexArray, error) {
	va := &wgpuVertexArray{label: desc.Label}
	for i, b := range desc.Buffers {
		if len(b.Data) == 0 || uint64(len(b.Data))%b.Layout.Stride != 0 {
			return nil, fmt.Errorf("vertex array %s buffer %d: %d bytes is not a multiple of stride %d",
				desc.Label, i, len(b.Data), b.Layout.Stride)
		}
		buf, err := d.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
			Label:    fmt.Sprintf("%s/%d", desc.Label, i),
			Contents: b.Data,
			Usage:    wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, err
		}
		va.buffers = append(va.buffers, buf)
		va.sizes = append(va.sizes, uint64(len(b.Data)))
		count := uint32(uint64(len(b.Data)) / b.Layout.Stride)
		if b.Layout.StepMode == StepInstance {
			va.instances = count
		} else {
			va.vertices = count
		}
	}
	d.arrays = append(d.arrays, va)
	return va, nil
}

// Programs

type wgpuProgram struct {
	desc      ProgramDesc
	uniforms  *UniformBlock
	pipeline  *wgpu.RenderPipeline
	layout    *wgpu.BindGroupLayout
	buffer    *wgpu.Buffer
	groups    map[string]*wgpu.BindGroup
	ring      uniformRing
	hasSample bool
}

func (p *wgpuProgram) Name() string { return p.desc.Name }

func (p *wgpuProgram) SetUniform(name string, value any) error {
	if err := p.uniforms.Set(name, value); err != nil {
		return fmt.Errorf("%s: %w", p.desc.Name, err)
	}
	return nil
}

func (p *wgpuProgram) release() {
	for _, g := range p.groups {
		g.Release()
	}
	p.buffer.Release()
	p.layout.Release()
	p.pipeline.Release()
}

func wgpuVertexFormat(f VertexFormat) wgpu.VertexFormat {
	switch f {
	case VertexFloat32x2:
		return wgpu.VertexFormatFloat32x2
	case VertexFloat32x3:
		return wgpu.VertexFormatFloat32x3
	case VertexFloat32x4:
		return wgpu.VertexFormatFloat32x4
	case VertexUint32:
		return wgpu.VertexFormatUint32
	}
	panic(fmt.Sprintf("unknown vertex format %d", int(f)))
}

func wgpuVertexLayouts(layouts []VertexLayout) []wgpu.VertexBufferLayout {
	out := make([]wgpu.VertexBufferLayout, len(layouts))
	for i, l := range layouts {
		attrs := make([]wgpu.VertexAttribute, len(l.Attributes))
		for j, a := range l.Attributes {
			attrs[j] = wgpu.VertexAttribute{
				Format:         wgpuVertexFormat(a.Format),
				Offset:         a.Offset,
				ShaderLocation: a.Location,
			}
		}
		step := wgpu.VertexStepModeVertex
		if l.StepMode == StepInstance {
			step = wgpu.VertexStepModeInstance
		}
		out[i] = wgpu.VertexBufferLayout{ArrayStride: l.Stride, StepMode: step, Attributes: attrs}
	}
	return out
}

// CreateProgram compiles desc.Source into a render pipeline with an explicit
// bind group layout: binding 0 is the uniform block, then one binding per
// texture slot, then a sampler if any slot is filterable.
func (d *WgpuDevice) CreateProgram(desc ProgramDesc) (Program, error) {
	p := &wgpuProgram{
		desc:     desc,
		uniforms: NewUniformBlock(desc.Uniforms),
		groups:   map[string]*wgpu.BindGroup{},
		ring:     uniformRing{program: desc.Name},
	}
	if p.uniforms.Size() > uniformSlotSize {
		return nil, &ProgramError{Name: desc.Name, Err: fmt.Errorf("uniform block of %d bytes exceeds %d", p.uniforms.Size(), uniformSlotSize)}
	}

	module, err := d.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          desc.Name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: desc.Source},
	})
	if err != nil {
		return nil, &ProgramError{Name: desc.Name, Err: err}
	}
	defer module.Release()

	visibility := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
	entries := []wgpu.BindGroupLayoutEntry{{
		Binding:    0,
		Visibility: visibility,
		Buffer: wgpu.BufferBindingLayout{
			Type:             wgpu.BufferBindingTypeUniform,
			HasDynamicOffset: true,
			MinBindingSize:   uint64(p.uniforms.Size()),
		},
	}}
	for i, slot := range desc.Textures {
		sampleType := wgpu.TextureSampleTypeUnfilterableFloat
		if slot.Filterable {
			sampleType = wgpu.TextureSampleTypeFloat
			p.hasSample = true
		}
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    uint32(i + 1),
			Visibility: visibility,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    sampleType,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		})
	}
	if p.hasSample {
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    uint32(len(desc.Textures) + 1),
			Visibility: wgpu.ShaderStageFragment,
			Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
		})
	}
	p.layout, err = d.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   desc.Name + " BGL",
		Entries: entries,
	})
	if err != nil {
		return nil, &ProgramError{Name: desc.Name, Err: err}
	}

	pipelineLayout, err := d.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.layout},
	})
	if err != nil {
		return nil, &ProgramError{Name: desc.Name, Err: err}
	}
	defer pipelineLayout.Release()

	colorFormat := d.Config.Format
	var depth *wgpu.DepthStencilState
	if desc.Target == TargetState {
		colorFormat = wgpu.TextureFormatRGBA32Float
	} else {
		compare := wgpu.CompareFunctionAlways
		if desc.DepthTest {
			compare = wgpu.CompareFunctionLessEqual
		}
		depth = &wgpu.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: desc.DepthWrite,
			DepthCompare:      compare,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		}
	}

	p.pipeline, err = d.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Name,
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers:    wgpuVertexLayouts(desc.Vertex),
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    colorFormat,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: depth,
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, &ProgramError{Name: desc.Name, Err: err}
	}

	p.buffer, err = d.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Name + " uniforms",
		Size:  uniformSlotSize * uniformSlots,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, &ProgramError{Name: desc.Name, Err: err}
	}
	d.programs = append(d.programs, p)
	d.log.Debugf("Program %s compiled (%d uniform bytes, %d textures)", desc.Name, p.uniforms.Size(), len(desc.Textures))
	return p, nil
}

// bindGroup returns the cached bind group for the bound texture set.
func (d *WgpuDevice) bindGroup(p *wgpuProgram, textures []*wgpuTexture) (*wgpu.BindGroup, error) {
	var key strings.Builder
	for _, t := range textures {
		key.WriteString(t.key())
	}
	if g, ok := p.groups[key.String()]; ok {
		return g, nil
	}
	entries := []wgpu.BindGroupEntry{{
		Binding: 0,
		Buffer:  p.buffer,
		Offset:  0,
		Size:    uint64(p.uniforms.Size()),
	}}
	for i, t := range textures {
		entries = append(entries, wgpu.BindGroupEntry{Binding: uint32(i + 1), TextureView: t.view})
	}
	if p.hasSample {
		entries = append(entries, wgpu.BindGroupEntry{Binding: uint32(len(textures) + 1), Sampler: d.Sampler})
	}
	g, err := d.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   p.desc.Name + " BG",
		Layout:  p.layout,
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	p.groups[key.String()] = g
	return g, nil
}

// Frames and passes

type wgpuFrame struct {
	dev        *WgpuDevice
	surfaceTex *wgpu.Texture
	view       *wgpu.TextureView
	encoder    *wgpu.CommandEncoder
	open       *wgpuPass
}

func (d *WgpuDevice) BeginFrame() (Frame, error) {
	if d.frame != nil {
		return nil, errors.New("previous frame not submitted")
	}
	surfaceTex, err := d.Surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("acquire surface texture: %w", err)
	}
	view, err := surfaceTex.CreateView(nil)
	if err != nil {
		surfaceTex.Release()
		return nil, err
	}
	encoder, err := d.Device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTex.Release()
		return nil, err
	}
	for _, p := range d.programs {
		p.ring.reset()
	}
	d.frame = &wgpuFrame{dev: d, surfaceTex: surfaceTex, view: view, encoder: encoder}
	return d.frame, nil
}

func (f *wgpuFrame) BeginPass(desc PassDesc) (Pass, error) {
	if f.open != nil {
		return nil, fmt.Errorf("pass %q still open", f.open.desc.Label)
	}
	loadOp := wgpu.LoadOpLoad
	var clear wgpu.Color
	if desc.Clear != nil {
		loadOp = wgpu.LoadOpClear
		clear = wgpu.Color{R: desc.Clear.Color[0], G: desc.Clear.Color[1], B: desc.Clear.Color[2], A: desc.Clear.Color[3]}
	}

	rp := &wgpu.RenderPassDescriptor{Label: desc.Label}
	if desc.Target == nil {
		rp.ColorAttachments = []wgpu.RenderPassColorAttachment{{
			View:       f.view,
			LoadOp:     loadOp,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: clear,
		}}
		depthLoad := wgpu.LoadOpLoad
		var depthClear float32
		if desc.Clear != nil {
			depthLoad = wgpu.LoadOpClear
			depthClear = desc.Clear.Depth
		}
		rp.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            f.dev.DepthView,
			DepthLoadOp:     depthLoad,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: depthClear,
		}
	} else {
		fb, ok := desc.Target.(*wgpuFramebuffer)
		if !ok {
			return nil, fmt.Errorf("pass %q: target is not a WebGPU framebuffer", desc.Label)
		}
		rp.ColorAttachments = []wgpu.RenderPassColorAttachment{{
			View:       fb.tex.view,
			LoadOp:     loadOp,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: clear,
		}}
	}

	f.open = &wgpuPass{frame: f, desc: desc, enc: f.encoder.BeginRenderPass(rp)}
	return f.open, nil
}

func (f *wgpuFrame) Submit() error {
	d := f.dev
	defer func() {
		f.encoder.Release()
		f.view.Release()
		f.surfaceTex.Release()
		d.frame = nil
	}()
	if f.open != nil {
		return fmt.Errorf("pass %q still open at submit", f.open.desc.Label)
	}
	cmd, err := f.encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish encoder: %w", err)
	}
	defer cmd.Release()
	d.Queue.Submit(cmd)
	d.Surface.Present()
	return nil
}

type wgpuPass struct {
	frame    *wgpuFrame
	desc     PassDesc
	enc      *wgpu.RenderPassEncoder
	program  *wgpuProgram
	textures []*wgpuTexture
	err      error
}

func (p *wgpuPass) SetViewport(vp Viewport) {
	p.enc.SetViewport(vp.X, vp.Y, vp.Width, vp.Height, 0, 1)
}

func (p *wgpuPass) UseProgram(prog Program) {
	wp, ok := prog.(*wgpuProgram)
	if !ok {
		p.err = fmt.Errorf("pass %q: program %s is not a WebGPU program", p.desc.Label, prog.Name())
		return
	}
	wantState := p.desc.Target != nil
	if (wp.desc.Target == TargetState) != wantState {
		p.err = fmt.Errorf("pass %q: program %s renders to the wrong target kind", p.desc.Label, wp.desc.Name)
		return
	}
	p.err = nil
	p.program = wp
	p.textures = make([]*wgpuTexture, len(wp.desc.Textures))
}

func (p *wgpuPass) BindTexture(slot int, tex Texture) error {
	if p.program == nil {
		return fmt.Errorf("pass %q: bind texture before program", p.desc.Label)
	}
	if slot < 0 || slot >= len(p.textures) {
		return fmt.Errorf("pass %q: program %s has no texture slot %d", p.desc.Label, p.program.desc.Name, slot)
	}
	if err := CheckFeedback(p.desc.Target, tex); err != nil {
		return err
	}
	t, ok := tex.(*wgpuTexture)
	if !ok {
		return fmt.Errorf("pass %q: texture %s is not a WebGPU texture", p.desc.Label, tex.Label())
	}
	p.textures[slot] = t
	return nil
}

func (p *wgpuPass) Draw(va VertexArray, instances uint32) error {
	if p.err != nil {
		return p.err
	}
	prog := p.program
	if prog == nil {
		return fmt.Errorf("pass %q: draw without program", p.desc.Label)
	}
	for i, t := range p.textures {
		if t == nil {
			return fmt.Errorf("pass %q: %s texture slot %s unbound", p.desc.Label, prog.desc.Name, prog.desc.Textures[i].Name)
		}
	}
	arr, ok := va.(*wgpuVertexArray)
	if !ok {
		return fmt.Errorf("pass %q: vertex array %s is not a WebGPU vertex array", p.desc.Label, va.Label())
	}
	if len(arr.buffers) != len(prog.desc.Vertex) {
		return fmt.Errorf("pass %q: %s expects %d vertex buffers, %s has %d",
			p.desc.Label, prog.desc.Name, len(prog.desc.Vertex), arr.label, len(arr.buffers))
	}

	d := p.frame.dev
	offset, err := prog.ring.push(func(off uint64, data []byte) error {
		return d.Queue.WriteBuffer(prog.buffer, off, data)
	}, prog.uniforms.Bytes())
	if err != nil {
		return fmt.Errorf("pass %q: %w", p.desc.Label, err)
	}

	group, err := d.bindGroup(prog, p.textures)
	if err != nil {
		return err
	}
	p.enc.SetPipeline(prog.pipeline)
	p.enc.SetBindGroup(0, group, []uint32{offset})
	for i, b := range arr.buffers {
		p.enc.SetVertexBuffer(uint32(i), b, 0, arr.sizes[i])
	}
	p.enc.Draw(arr.vertices, max(instances, 1), 0, 0)
	return nil
}

func (p *wgpuPass) End() error {
	if p.frame.open != p {
		return fmt.Errorf("pass %q already ended", p.desc.Label)
	}
	p.frame.open = nil
	err := p.enc.End()
	p.enc.Release()
	return err
}
