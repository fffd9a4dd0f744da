// Package softgpu is a CPU implementation of gpu.Device. It executes the
// particle update and draw programs on the host and records every command,
// so frame sequencing can be inspected without a GPU.
package softgpu

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gekko3d/gpuparticles/particlert/rt/core"
	"github.com/gekko3d/gpuparticles/particlert/rt/gpu"
	"github.com/go-gl/mathgl/mgl32"
)

type CommandKind int

const (
	CmdBeginFrame CommandKind = iota
	CmdBeginPass
	CmdViewport
	CmdDraw
	CmdEndPass
	CmdSubmit
	CmdResize
)

func (k CommandKind) String() string {
	switch k {
	case CmdBeginFrame:
		return "begin-frame"
	case CmdBeginPass:
		return "begin-pass"
	case CmdViewport:
		return "viewport"
	case CmdDraw:
		return "draw"
	case CmdEndPass:
		return "end-pass"
	case CmdSubmit:
		return "submit"
	case CmdResize:
		return "resize"
	}
	return fmt.Sprintf("CommandKind(%d)", int(k))
}

// Command is one entry of the device command log.
type Command struct {
	Kind CommandKind
	// Pass label for pass-scoped commands.
	Pass string
	// Target is the framebuffer label, empty for the display.
	Target    string
	Cleared   bool
	Program   string
	Textures  []string
	Viewport  gpu.Viewport
	Instances uint32
	Width     int
	Height    int
}

// Device is a host-memory gpu.Device.
type Device struct {
	Caps gpu.Capabilities
	// FailPrograms makes CreateProgram fail for the named programs.
	FailPrograms map[string]error

	Commands []Command
	// Instances holds the world offsets of the particles in the last particle draw.
	Instances []mgl32.Vec3

	displayW, displayH int
	textures           []*Texture
	frame              *frame
}

func NewDevice() *Device {
	return &Device{
		Caps: gpu.Capabilities{FloatRenderTargets: true, MaxTextureDimension: 8192},
	}
}

func (d *Device) Capabilities() gpu.Capabilities { return d.Caps }

func (d *Device) DisplaySize() (int, int) { return d.displayW, d.displayH }

func (d *Device) ResizeDisplay(width, height int) {
	d.displayW, d.displayH = width, height
	d.Commands = append(d.Commands, Command{Kind: CmdResize, Width: width, Height: height})
}

// ResetCommands clears the command log.
func (d *Device) ResetCommands() { d.Commands = nil }

// CommandsOf returns the logged commands of kind k.
func (d *Device) CommandsOf(k CommandKind) []Command {
	var out []Command
	for _, c := range d.Commands {
		if c.Kind == k {
			out = append(out, c)
		}
	}
	return out
}

// Textures returns every texture created so far.
func (d *Device) Textures() []*Texture { return d.textures }

type Texture struct {
	label  string
	width  int
	height int
	format gpu.TextureFormat
	// Texels backs RGBA32Float textures, Pixels RGBA8 ones.
	Texels []core.Texel
	Pixels []byte
}

func (t *Texture) Label() string             { return t.label }
func (t *Texture) Size() (int, int)          { return t.width, t.height }
func (t *Texture) Format() gpu.TextureFormat { return t.format }

func (t *Texture) Texel(x, y int) core.Texel { return t.Texels[y*t.width+x] }

// Snapshot copies the texel contents.
func (t *Texture) Snapshot() []core.Texel {
	return append([]core.Texel(nil), t.Texels...)
}

func (d *Device) CreateTexture(desc gpu.TextureDesc) (gpu.Texture, error) {
	if err := gpu.ValidateTextureDesc(desc, d.Caps); err != nil {
		return nil, err
	}
	t := &Texture{label: desc.Label, width: desc.Width, height: desc.Height, format: desc.Format}
	n := desc.Width * desc.Height
	switch desc.Format {
	case gpu.FormatRGBA32Float:
		if desc.Float != nil {
			t.Texels = core.UnflattenTexels(desc.Float)
		} else {
			t.Texels = make([]core.Texel, n)
		}
	default:
		if desc.Pixels != nil {
			t.Pixels = append([]byte(nil), desc.Pixels...)
		} else {
			t.Pixels = make([]byte, n*desc.Format.BytesPerTexel())
		}
	}
	d.textures = append(d.textures, t)
	return t, nil
}

type Framebuffer struct {
	tex *Texture
}

func (f *Framebuffer) Label() string        { return f.tex.label + "/fb" }
func (f *Framebuffer) Texture() gpu.Texture { return f.tex }

func (d *Device) CreateFramebuffer(tex gpu.Texture) (gpu.Framebuffer, error) {
	t, ok := tex.(*Texture)
	if !ok {
		return nil, fmt.Errorf("framebuffer %s: foreign texture", tex.Label())
	}
	if t.format != gpu.FormatRGBA32Float {
		return nil, fmt.Errorf("framebuffer %s: only RGBA32Float textures are render targets", t.label)
	}
	return &Framebuffer{tex: t}, nil
}

type VertexArray struct {
	label     string
	buffers   []gpu.VertexBufferData
	vertices  uint32
	instances uint32
}

func (va *VertexArray) Label() string         { return va.label }
func (va *VertexArray) VertexCount() uint32   { return va.vertices }
func (va *VertexArray) InstanceCount() uint32 { return va.instances }

// InstanceIDs decodes the uint32 identifier buffer, nil if there is none.
func (va *VertexArray) InstanceIDs() []uint32 {
	for _, b := range va.buffers {
		if b.Layout.StepMode != gpu.StepInstance {
			continue
		}
		ids := make([]uint32, len(b.Data)/4)
		for i := range ids {
			ids[i] = binary.LittleEndian.Uint32(b.Data[i*4:])
		}
		return ids
	}
	return nil
}

func (d *Device) CreateVertexArray(desc gpu.VertexArrayDesc) (gpu.VertexArray, error) {
	va := &VertexArray{label: desc.Label}
	for i, b := range desc.Buffers {
		if len(b.Data) == 0 || uint64(len(b.Data))%b.Layout.Stride != 0 {
			return nil, fmt.Errorf("vertex array %s buffer %d: %d bytes is not a multiple of stride %d",
				desc.Label, i, len(b.Data), b.Layout.Stride)
		}
		count := uint32(uint64(len(b.Data)) / b.Layout.Stride)
		if b.Layout.StepMode == gpu.StepInstance {
			va.instances = count
		} else {
			va.vertices = count
		}
		va.buffers = append(va.buffers, gpu.VertexBufferData{Layout: b.Layout, Data: append([]byte(nil), b.Data...)})
	}
	return va, nil
}

type Program struct {
	desc     gpu.ProgramDesc
	uniforms *gpu.UniformBlock
}

func (p *Program) Name() string { return p.desc.Name }

func (p *Program) SetUniform(name string, value any) error {
	if err := p.uniforms.Set(name, value); err != nil {
		return fmt.Errorf("%s: %w", p.desc.Name, err)
	}
	return nil
}

// Uniforms exposes the block for inspection.
func (p *Program) Uniforms() *gpu.UniformBlock { return p.uniforms }

func (d *Device) CreateProgram(desc gpu.ProgramDesc) (gpu.Program, error) {
	if err, ok := d.FailPrograms[desc.Name]; ok {
		return nil, &gpu.ProgramError{Name: desc.Name, Err: err}
	}
	if desc.Source == "" {
		return nil, &gpu.ProgramError{Name: desc.Name, Err: errors.New("empty shader source")}
	}
	return &Program{desc: desc, uniforms: gpu.NewUniformBlock(desc.Uniforms)}, nil
}

type frame struct {
	dev  *Device
	open *pass
}

func (d *Device) BeginFrame() (gpu.Frame, error) {
	if d.frame != nil {
		return nil, errors.New("previous frame not submitted")
	}
	d.frame = &frame{dev: d}
	d.Commands = append(d.Commands, Command{Kind: CmdBeginFrame, Width: d.displayW, Height: d.displayH})
	return d.frame, nil
}

func (f *frame) BeginPass(desc gpu.PassDesc) (gpu.Pass, error) {
	if f.open != nil {
		return nil, fmt.Errorf("pass %q still open", f.open.desc.Label)
	}
	p := &pass{frame: f, desc: desc}
	if desc.Target != nil {
		fb, ok := desc.Target.(*Framebuffer)
		if !ok {
			return nil, fmt.Errorf("pass %q: foreign framebuffer", desc.Label)
		}
		p.target = fb
	}
	f.open = p
	f.dev.Commands = append(f.dev.Commands, Command{
		Kind:    CmdBeginPass,
		Pass:    desc.Label,
		Target:  p.targetLabel(),
		Cleared: desc.Clear != nil,
	})
	return p, nil
}

func (f *frame) Submit() error {
	d := f.dev
	d.frame = nil
	if f.open != nil {
		return fmt.Errorf("pass %q still open at submit", f.open.desc.Label)
	}
	d.Commands = append(d.Commands, Command{Kind: CmdSubmit})
	return nil
}

type pass struct {
	frame    *frame
	desc     gpu.PassDesc
	target   *Framebuffer
	viewport gpu.Viewport
	program  *Program
	textures []*Texture
	err      error
}

func (p *pass) targetLabel() string {
	if p.target == nil {
		return ""
	}
	return p.target.Label()
}

func (p *pass) log(c Command) {
	c.Pass = p.desc.Label
	c.Target = p.targetLabel()
	p.frame.dev.Commands = append(p.frame.dev.Commands, c)
}

func (p *pass) SetViewport(vp gpu.Viewport) {
	p.viewport = vp
	p.log(Command{Kind: CmdViewport, Viewport: vp})
}

func (p *pass) UseProgram(prog gpu.Program) {
	sp, ok := prog.(*Program)
	if !ok {
		p.err = fmt.Errorf("pass %q: foreign program %s", p.desc.Label, prog.Name())
		return
	}
	if (sp.desc.Target == gpu.TargetState) != (p.target != nil) {
		p.err = fmt.Errorf("pass %q: program %s renders to the wrong target kind", p.desc.Label, sp.desc.Name)
		return
	}
	p.err = nil
	p.program = sp
	p.textures = make([]*Texture, len(sp.desc.Textures))
}

func (p *pass) BindTexture(slot int, tex gpu.Texture) error {
	if p.program == nil {
		return fmt.Errorf("pass %q: bind texture before program", p.desc.Label)
	}
	if slot < 0 || slot >= len(p.textures) {
		return fmt.Errorf("pass %q: program %s has no texture slot %d", p.desc.Label, p.program.desc.Name, slot)
	}
	var target gpu.Framebuffer
	if p.target != nil {
		target = p.target
	}
	if err := gpu.CheckFeedback(target, tex); err != nil {
		return err
	}
	t, ok := tex.(*Texture)
	if !ok {
		return fmt.Errorf("pass %q: foreign texture %s", p.desc.Label, tex.Label())
	}
	p.textures[slot] = t
	return nil
}

func (p *pass) Draw(va gpu.VertexArray, instances uint32) error {
	if p.err != nil {
		return p.err
	}
	prog := p.program
	if prog == nil {
		return fmt.Errorf("pass %q: draw without program", p.desc.Label)
	}
	labels := make([]string, len(p.textures))
	for i, t := range p.textures {
		if t == nil {
			return fmt.Errorf("pass %q: %s texture slot %s unbound", p.desc.Label, prog.desc.Name, prog.desc.Textures[i].Name)
		}
		labels[i] = t.label
	}
	arr, ok := va.(*VertexArray)
	if !ok {
		return fmt.Errorf("pass %q: foreign vertex array %s", p.desc.Label, va.Label())
	}
	if len(arr.buffers) != len(prog.desc.Vertex) {
		return fmt.Errorf("pass %q: %s expects %d vertex buffers, %s has %d",
			p.desc.Label, prog.desc.Name, len(prog.desc.Vertex), arr.label, len(arr.buffers))
	}

	var err error
	switch prog.desc.Name {
	case gpu.ProgramParticleUpdate:
		err = p.runUpdate()
	case gpu.ProgramParticleDraw:
		err = p.runDraw(arr, instances)
	}
	if err != nil {
		return err
	}
	p.log(Command{Kind: CmdDraw, Program: prog.desc.Name, Textures: labels, Viewport: p.viewport, Instances: instances})
	return nil
}

// runUpdate evaluates the update fragment stage for every texel covered by
// the viewport.
func (p *pass) runUpdate() error {
	u := p.program.uniforms
	dt, err := u.Float("delta_time")
	if err != nil {
		return err
	}
	pos, vel, dst := p.textures[gpu.SlotPositionRead], p.textures[gpu.SlotVelocity], p.target.tex
	x0, y0 := max(int(p.viewport.X), 0), max(int(p.viewport.Y), 0)
	x1 := min(int(p.viewport.X+p.viewport.Width), dst.width, pos.width, vel.width)
	y1 := min(int(p.viewport.Y+p.viewport.Height), dst.height, pos.height, vel.height)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			dst.Texels[y*dst.width+x] = core.StepTexel(pos.Texel(x, y), vel.Texel(x, y), dt)
		}
	}
	return nil
}

// runDraw resolves each instance identifier to its texel and records the
// sampled particle position.
func (p *pass) runDraw(arr *VertexArray, instances uint32) error {
	dims, err := p.program.uniforms.Vec2("tex_dims")
	if err != nil {
		return err
	}
	grid, err := core.NewGrid(int(dims.X()), int(dims.Y()))
	if err != nil {
		return fmt.Errorf("particle draw: %w", err)
	}
	pos := p.textures[gpu.SlotPosition]
	ids := arr.InstanceIDs()
	if uint32(len(ids)) < instances {
		return fmt.Errorf("particle draw: %d instances requested, %d identifiers", instances, len(ids))
	}
	out := make([]mgl32.Vec3, instances)
	for i := range out {
		x, y := grid.TexelOf(ids[i])
		out[i] = pos.Texel(x, y).Vec3()
	}
	p.frame.dev.Instances = out
	return nil
}

func (p *pass) End() error {
	if p.frame.open != p {
		return fmt.Errorf("pass %q already ended", p.desc.Label)
	}
	p.frame.open = nil
	p.log(Command{Kind: CmdEndPass})
	return nil
}
