package geom

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Vertex is one triangle corner together with its shading attributes.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Color    mgl32.Vec3
}

// TriMesh accumulates triangle geometry as flat float32 buffers in the layout
// instancing renderers upload directly. Indices are optional: merged
// procedural geometry stays unindexed, shared base meshes may index.
type TriMesh struct {
	Positions []float32
	Normals   []float32
	Colors    []float32
	Indices   []uint32
}

func NewTriMesh(vertexHint int) *TriMesh {
	if vertexHint < 0 {
		vertexHint = 0
	}
	return &TriMesh{
		Positions: make([]float32, 0, vertexHint*3),
		Normals:   make([]float32, 0, vertexHint*3),
		Colors:    make([]float32, 0, vertexHint*3),
	}
}

func (m *TriMesh) VertexCount() int {
	return len(m.Positions) / 3
}

// TriangleCount reports indexed triangles when indices are present, otherwise
// every three vertices form one triangle.
func (m *TriMesh) TriangleCount() int {
	if len(m.Indices) > 0 {
		return len(m.Indices) / 3
	}
	return m.VertexCount() / 3
}

func (m *TriMesh) AppendVertex(v Vertex) {
	m.Positions = append(m.Positions, v.Position.X(), v.Position.Y(), v.Position.Z())
	m.Normals = append(m.Normals, v.Normal.X(), v.Normal.Y(), v.Normal.Z())
	m.Colors = append(m.Colors, v.Color.X(), v.Color.Y(), v.Color.Z())
}

func (m *TriMesh) AppendTriangle(a, b, c Vertex) {
	m.AppendVertex(a)
	m.AppendVertex(b)
	m.AppendVertex(c)
}

// AppendQuad emits the quad a-b-c-d as two triangles sharing the a-c diagonal.
func (m *TriMesh) AppendQuad(a, b, c, d Vertex) {
	m.AppendTriangle(a, b, c)
	m.AppendTriangle(a, c, d)
}

// Append merges another mesh into this one, rebasing any indices.
func (m *TriMesh) Append(other *TriMesh) {
	if other == nil || other.VertexCount() == 0 {
		return
	}
	base := uint32(m.VertexCount())
	m.Positions = append(m.Positions, other.Positions...)
	m.Normals = append(m.Normals, other.Normals...)
	m.Colors = append(m.Colors, other.Colors...)
	for _, idx := range other.Indices {
		m.Indices = append(m.Indices, idx+base)
	}
}

func (m *TriMesh) Clone() *TriMesh {
	clone := &TriMesh{
		Positions: append([]float32(nil), m.Positions...),
		Normals:   append([]float32(nil), m.Normals...),
		Colors:    append([]float32(nil), m.Colors...),
	}
	if len(m.Indices) > 0 {
		clone.Indices = append([]uint32(nil), m.Indices...)
	}
	return clone
}

// Transform applies mat to every position and its inverse-transpose-free
// equivalent to normals; normals are re-normalized afterwards, so mat may
// carry uniform scale.
func (m *TriMesh) Transform(mat mgl32.Mat4) {
	for i := 0; i < m.VertexCount(); i++ {
		p := mgl32.TransformCoordinate(m.PositionAt(i), mat)
		m.Positions[i*3] = p.X()
		m.Positions[i*3+1] = p.Y()
		m.Positions[i*3+2] = p.Z()
	}
	if len(m.Normals) != len(m.Positions) {
		return
	}
	for i := 0; i < m.VertexCount(); i++ {
		n := mgl32.TransformNormal(m.NormalAt(i), mat)
		if n.LenSqr() > 0 {
			n = n.Normalize()
		}
		m.Normals[i*3] = n.X()
		m.Normals[i*3+1] = n.Y()
		m.Normals[i*3+2] = n.Z()
	}
}

func (m *TriMesh) PositionAt(i int) mgl32.Vec3 {
	return mgl32.Vec3{m.Positions[i*3], m.Positions[i*3+1], m.Positions[i*3+2]}
}

func (m *TriMesh) NormalAt(i int) mgl32.Vec3 {
	return mgl32.Vec3{m.Normals[i*3], m.Normals[i*3+1], m.Normals[i*3+2]}
}

func (m *TriMesh) ColorAt(i int) mgl32.Vec3 {
	return mgl32.Vec3{m.Colors[i*3], m.Colors[i*3+1], m.Colors[i*3+2]}
}

func (m *TriMesh) SetColorAt(i int, c mgl32.Vec3) {
	m.Colors[i*3] = c.X()
	m.Colors[i*3+1] = c.Y()
	m.Colors[i*3+2] = c.Z()
}

// RecomputeNormals rebuilds per-vertex normals by accumulating face normals.
// Unindexed meshes end up with flat faces, indexed meshes with smooth shared
// vertices.
func (m *TriMesh) RecomputeNormals() {
	m.Normals = make([]float32, len(m.Positions))
	eachTriangle := func(fn func(ia, ib, ic int)) {
		if len(m.Indices) > 0 {
			for t := 0; t+2 < len(m.Indices); t += 3 {
				fn(int(m.Indices[t]), int(m.Indices[t+1]), int(m.Indices[t+2]))
			}
			return
		}
		for v := 0; v+2 < m.VertexCount(); v += 3 {
			fn(v, v+1, v+2)
		}
	}
	eachTriangle(func(ia, ib, ic int) {
		n := FaceNormal(m.PositionAt(ia), m.PositionAt(ib), m.PositionAt(ic))
		for _, idx := range []int{ia, ib, ic} {
			m.Normals[idx*3] += n.X()
			m.Normals[idx*3+1] += n.Y()
			m.Normals[idx*3+2] += n.Z()
		}
	})
	for i := 0; i < m.VertexCount(); i++ {
		n := m.NormalAt(i)
		if n.LenSqr() > 0 {
			n = n.Normalize()
		}
		m.Normals[i*3] = n.X()
		m.Normals[i*3+1] = n.Y()
		m.Normals[i*3+2] = n.Z()
	}
}

// FaceNormal returns the unit normal of the triangle a-b-c, or the zero
// vector for degenerate triangles.
func FaceNormal(a, b, c mgl32.Vec3) mgl32.Vec3 {
	n := b.Sub(a).Cross(c.Sub(a))
	if n.LenSqr() == 0 {
		return mgl32.Vec3{}
	}
	return n.Normalize()
}

// Box builds an unindexed axis-aligned box around the origin, flat shaded in
// a single color.
func Box(half mgl32.Vec3, color mgl32.Vec3) *TriMesh {
	hx, hy, hz := half.X(), half.Y(), half.Z()
	mesh := NewTriMesh(36)
	quad := func(normal mgl32.Vec3, corners [4]mgl32.Vec3) {
		v := func(p mgl32.Vec3) Vertex {
			return Vertex{Position: p, Normal: normal, Color: color}
		}
		mesh.AppendQuad(v(corners[0]), v(corners[1]), v(corners[2]), v(corners[3]))
	}
	quad(mgl32.Vec3{1, 0, 0}, [4]mgl32.Vec3{{hx, -hy, -hz}, {hx, hy, -hz}, {hx, hy, hz}, {hx, -hy, hz}})
	quad(mgl32.Vec3{-1, 0, 0}, [4]mgl32.Vec3{{-hx, -hy, hz}, {-hx, hy, hz}, {-hx, hy, -hz}, {-hx, -hy, -hz}})
	quad(mgl32.Vec3{0, 1, 0}, [4]mgl32.Vec3{{-hx, hy, -hz}, {-hx, hy, hz}, {hx, hy, hz}, {hx, hy, -hz}})
	quad(mgl32.Vec3{0, -1, 0}, [4]mgl32.Vec3{{-hx, -hy, hz}, {-hx, -hy, -hz}, {hx, -hy, -hz}, {hx, -hy, hz}})
	quad(mgl32.Vec3{0, 0, 1}, [4]mgl32.Vec3{{-hx, -hy, hz}, {hx, -hy, hz}, {hx, hy, hz}, {-hx, hy, hz}})
	quad(mgl32.Vec3{0, 0, -1}, [4]mgl32.Vec3{{hx, -hy, -hz}, {-hx, -hy, -hz}, {-hx, hy, -hz}, {hx, hy, -hz}})
	return mesh
}

// Lerp3 interpolates between two vectors component-wise.
func Lerp3(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return mgl32.Vec3{
		a.X() + (b.X()-a.X())*t,
		a.Y() + (b.Y()-a.Y())*t,
		a.Z() + (b.Z()-a.Z())*t,
	}
}
