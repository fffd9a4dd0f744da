package core

// Vertex matches the WGSL VertexInput shared by every static shape:
// @location(0) position, @location(1) normal, @location(2) uv.
type Vertex struct {
	Pos    [3]float32
	Normal [3]float32
	UV     [2]float32
}

// VertexStride is the byte size of Vertex.
const VertexStride = 32

type face struct {
	normal  [3]float32
	corners [4][3]float32 // counter-clockwise seen from outside
}

var cubeFaces = []face{
	{[3]float32{0, 0, 1}, [4][3]float32{{-0.5, -0.5, 0.5}, {0.5, -0.5, 0.5}, {0.5, 0.5, 0.5}, {-0.5, 0.5, 0.5}}},
	{[3]float32{0, 0, -1}, [4][3]float32{{0.5, -0.5, -0.5}, {-0.5, -0.5, -0.5}, {-0.5, 0.5, -0.5}, {0.5, 0.5, -0.5}}},
	{[3]float32{1, 0, 0}, [4][3]float32{{0.5, -0.5, 0.5}, {0.5, -0.5, -0.5}, {0.5, 0.5, -0.5}, {0.5, 0.5, 0.5}}},
	{[3]float32{-1, 0, 0}, [4][3]float32{{-0.5, -0.5, -0.5}, {-0.5, -0.5, 0.5}, {-0.5, 0.5, 0.5}, {-0.5, 0.5, -0.5}}},
	{[3]float32{0, 1, 0}, [4][3]float32{{-0.5, 0.5, 0.5}, {0.5, 0.5, 0.5}, {0.5, 0.5, -0.5}, {-0.5, 0.5, -0.5}}},
	{[3]float32{0, -1, 0}, [4][3]float32{{-0.5, -0.5, -0.5}, {0.5, -0.5, -0.5}, {0.5, -0.5, 0.5}, {-0.5, -0.5, 0.5}}},
}

var quadUV = [4][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}}

func appendFace(dst []Vertex, f face) []Vertex {
	for _, i := range [6]int{0, 1, 2, 0, 2, 3} {
		dst = append(dst, Vertex{Pos: f.corners[i], Normal: f.normal, UV: quadUV[i]})
	}
	return dst
}

// UnitCube returns 36 vertices of a cube spanning [-0.5, 0.5].
func UnitCube() []Vertex {
	vs := make([]Vertex, 0, 36)
	for _, f := range cubeFaces {
		vs = appendFace(vs, f)
	}
	return vs
}

// UnitPlane returns 6 vertices of an XZ plane at y=0 spanning [-1, 1], facing +Y.
func UnitPlane() []Vertex {
	return appendFace(nil, face{
		normal:  [3]float32{0, 1, 0},
		corners: [4][3]float32{{-1, 0, 1}, {1, 0, 1}, {1, 0, -1}, {-1, 0, -1}},
	})
}

// UnitQuad returns 6 vertices covering clip space [-1, 1] in XY.
// Rasterizing it over a W x H viewport touches every pixel exactly once.
func UnitQuad() []Vertex {
	return appendFace(nil, face{
		normal:  [3]float32{0, 0, 1},
		corners: [4][3]float32{{-1, -1, 0}, {1, -1, 0}, {1, 1, 0}, {-1, 1, 0}},
	})
}
