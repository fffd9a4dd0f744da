package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type UniformType int

const (
	UniformFloat UniformType = iota
	UniformInt
	UniformUint
	UniformVec2
	UniformVec3
	UniformVec4
	UniformMat4
)

func (t UniformType) String() string {
	switch t {
	case UniformFloat:
		return "f32"
	case UniformInt:
		return "i32"
	case UniformUint:
		return "u32"
	case UniformVec2:
		return "vec2<f32>"
	case UniformVec3:
		return "vec3<f32>"
	case UniformVec4:
		return "vec4<f32>"
	case UniformMat4:
		return "mat4x4<f32>"
	}
	return fmt.Sprintf("UniformType(%d)", int(t))
}

// alignSize follows the WGSL uniform address space layout rules.
func (t UniformType) alignSize() (align, size int) {
	switch t {
	case UniformFloat, UniformInt, UniformUint:
		return 4, 4
	case UniformVec2:
		return 8, 8
	case UniformVec3:
		return 16, 12
	case UniformVec4:
		return 16, 16
	case UniformMat4:
		return 16, 64
	}
	panic(fmt.Sprintf("unknown uniform type %d", int(t)))
}

type UniformField struct {
	Name string
	Type UniformType
}

type uniformSlot struct {
	offset int
	typ    UniformType
}

// UniformBlock is the CPU copy of a program's uniform struct, laid out
// byte-for-byte as the WGSL struct declaring the same fields in order.
type UniformBlock struct {
	slots map[string]uniformSlot
	data  []byte
}

func NewUniformBlock(fields []UniformField) *UniformBlock {
	b := &UniformBlock{slots: make(map[string]uniformSlot, len(fields))}
	offset := 0
	for _, f := range fields {
		align, size := f.Type.alignSize()
		offset = roundUp(offset, align)
		b.slots[f.Name] = uniformSlot{offset: offset, typ: f.Type}
		offset += size
	}
	// uniform structs round up to 16; keep at least one vec4 so the binding is never empty
	size := roundUp(offset, 16)
	if size == 0 {
		size = 16
	}
	b.data = make([]byte, size)
	return b
}

func roundUp(v, align int) int {
	return (v + align - 1) / align * align
}

func (b *UniformBlock) Size() int { return len(b.data) }

func (b *UniformBlock) Bytes() []byte { return b.data }

// Offset returns the byte offset of a field, or -1 if unknown.
func (b *UniformBlock) Offset(name string) int {
	s, ok := b.slots[name]
	if !ok {
		return -1
	}
	return s.offset
}

func (b *UniformBlock) putF32(off int, vs ...float32) {
	for i, v := range vs {
		binary.LittleEndian.PutUint32(b.data[off+i*4:], math.Float32bits(v))
	}
}

// Set encodes value into the named field. Untyped Go numbers are accepted
// where the conversion is unambiguous (float64 for f32, int for i32/u32).
func (b *UniformBlock) Set(name string, value any) error {
	s, ok := b.slots[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUniform, name)
	}
	mismatch := func() error {
		return fmt.Errorf("%w: %s is %s, got %T", ErrUniformType, name, s.typ, value)
	}
	switch s.typ {
	case UniformFloat:
		switch v := value.(type) {
		case float32:
			b.putF32(s.offset, v)
		case float64:
			b.putF32(s.offset, float32(v))
		default:
			return mismatch()
		}
	case UniformInt:
		switch v := value.(type) {
		case int32:
			binary.LittleEndian.PutUint32(b.data[s.offset:], uint32(v))
		case int:
			binary.LittleEndian.PutUint32(b.data[s.offset:], uint32(int32(v)))
		default:
			return mismatch()
		}
	case UniformUint:
		switch v := value.(type) {
		case uint32:
			binary.LittleEndian.PutUint32(b.data[s.offset:], v)
		case int:
			if v < 0 {
				return mismatch()
			}
			binary.LittleEndian.PutUint32(b.data[s.offset:], uint32(v))
		default:
			return mismatch()
		}
	case UniformVec2:
		v, ok := value.(mgl32.Vec2)
		if !ok {
			return mismatch()
		}
		b.putF32(s.offset, v[:]...)
	case UniformVec3:
		v, ok := value.(mgl32.Vec3)
		if !ok {
			return mismatch()
		}
		b.putF32(s.offset, v[:]...)
	case UniformVec4:
		v, ok := value.(mgl32.Vec4)
		if !ok {
			return mismatch()
		}
		b.putF32(s.offset, v[:]...)
	case UniformMat4:
		v, ok := value.(mgl32.Mat4)
		if !ok {
			return mismatch()
		}
		b.putF32(s.offset, v[:]...)
	}
	return nil
}

func (b *UniformBlock) getF32(off, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b.data[off+i*4:]))
	}
	return out
}

func (b *UniformBlock) slot(name string, want UniformType) (uniformSlot, error) {
	s, ok := b.slots[name]
	if !ok {
		return s, fmt.Errorf("%w: %s", ErrUnknownUniform, name)
	}
	if s.typ != want {
		return s, fmt.Errorf("%w: %s is %s, read as %s", ErrUniformType, name, s.typ, want)
	}
	return s, nil
}

func (b *UniformBlock) Float(name string) (float32, error) {
	s, err := b.slot(name, UniformFloat)
	if err != nil {
		return 0, err
	}
	return b.getF32(s.offset, 1)[0], nil
}

func (b *UniformBlock) Vec2(name string) (mgl32.Vec2, error) {
	s, err := b.slot(name, UniformVec2)
	if err != nil {
		return mgl32.Vec2{}, err
	}
	v := b.getF32(s.offset, 2)
	return mgl32.Vec2{v[0], v[1]}, nil
}

func (b *UniformBlock) Mat4(name string) (mgl32.Mat4, error) {
	s, err := b.slot(name, UniformMat4)
	if err != nil {
		return mgl32.Mat4{}, err
	}
	var m mgl32.Mat4
	copy(m[:], b.getF32(s.offset, 16))
	return m, nil
}

const (
	// uniformSlotSize is the dynamic offset stride; it satisfies the default
	// minUniformBufferOffsetAlignment.
	uniformSlotSize = 256
	// uniformSlots bounds the draws per program per frame.
	uniformSlots = 64
)

// uniformRing hands out one uniform buffer slot per draw so every draw of a
// frame keeps its own snapshot of the block.
type uniformRing struct {
	program string
	next    int
}

func (r *uniformRing) reset() { r.next = 0 }

// push writes data into the next free slot and returns its byte offset.
func (r *uniformRing) push(write func(offset uint64, data []byte) error, data []byte) (uint32, error) {
	if r.next >= uniformSlots {
		return 0, fmt.Errorf("%s exceeded %d draws this frame", r.program, uniformSlots)
	}
	offset := r.next * uniformSlotSize
	if err := write(uint64(offset), data); err != nil {
		return 0, fmt.Errorf("%s: write uniforms at %d: %w", r.program, offset, err)
	}
	r.next++
	return uint32(offset), nil
}
