package geom

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func approxVec(a, b mgl32.Vec3, eps float32) bool {
	return a.Sub(b).Len() < eps
}

func TestAppendQuadEmitsTwoTriangles(t *testing.T) {
	mesh := NewTriMesh(6)
	n := mgl32.Vec3{0, 0, 1}
	c := mgl32.Vec3{1, 1, 1}
	mesh.AppendQuad(
		Vertex{Position: mgl32.Vec3{0, 0, 0}, Normal: n, Color: c},
		Vertex{Position: mgl32.Vec3{1, 0, 0}, Normal: n, Color: c},
		Vertex{Position: mgl32.Vec3{1, 1, 0}, Normal: n, Color: c},
		Vertex{Position: mgl32.Vec3{0, 1, 0}, Normal: n, Color: c},
	)
	if mesh.TriangleCount() != 2 {
		t.Fatalf("expected 2 triangles, got %d", mesh.TriangleCount())
	}
	if mesh.VertexCount() != 6 {
		t.Fatalf("expected 6 vertices, got %d", mesh.VertexCount())
	}
}

func TestAppendRebasesIndices(t *testing.T) {
	a := &TriMesh{
		Positions: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Normals:   make([]float32, 9),
		Colors:    make([]float32, 9),
		Indices:   []uint32{0, 1, 2},
	}
	b := &TriMesh{
		Positions: []float32{0, 0, 1, 1, 0, 1, 0, 1, 1},
		Normals:   make([]float32, 9),
		Colors:    make([]float32, 9),
		Indices:   []uint32{0, 1, 2},
	}
	a.Append(b)
	if a.VertexCount() != 6 {
		t.Fatalf("expected 6 vertices after merge, got %d", a.VertexCount())
	}
	want := []uint32{0, 1, 2, 3, 4, 5}
	for i, idx := range a.Indices {
		if idx != want[i] {
			t.Fatalf("index %d not rebased: got %d want %d", i, idx, want[i])
		}
	}
}

func TestTransformMovesPositionsAndKeepsUnitNormals(t *testing.T) {
	mesh := Box(mgl32.Vec3{1, 1, 1}, mgl32.Vec3{0.5, 0.5, 0.5})
	mat := mgl32.Translate3D(3, 0, 0).Mul4(mgl32.Scale3D(2, 2, 2))
	mesh.Transform(mat)

	min, max := mesh.PositionAt(0), mesh.PositionAt(0)
	for i := 1; i < mesh.VertexCount(); i++ {
		p := mesh.PositionAt(i)
		for axis := 0; axis < 3; axis++ {
			if p[axis] < min[axis] {
				min[axis] = p[axis]
			}
			if p[axis] > max[axis] {
				max[axis] = p[axis]
			}
		}
	}
	if !approxVec(min, mgl32.Vec3{1, -2, -2}, 1e-4) || !approxVec(max, mgl32.Vec3{5, 2, 2}, 1e-4) {
		t.Fatalf("unexpected transformed bounds: min=%v max=%v", min, max)
	}
	for i := 0; i < mesh.VertexCount(); i++ {
		l := mesh.NormalAt(i).Len()
		if l < 0.999 || l > 1.001 {
			t.Fatalf("normal %d not unit length after transform: %v", i, l)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	mesh := Box(mgl32.Vec3{1, 1, 1}, mgl32.Vec3{1, 0, 0})
	clone := mesh.Clone()
	clone.Transform(mgl32.Translate3D(10, 0, 0))
	if approxVec(mesh.PositionAt(0), clone.PositionAt(0), 1e-6) {
		t.Fatalf("transforming a clone must not move the original")
	}
}

func TestBoxShape(t *testing.T) {
	mesh := Box(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{0.2, 0.2, 0.2})
	if mesh.TriangleCount() != 12 {
		t.Fatalf("expected 12 triangles, got %d", mesh.TriangleCount())
	}
	for i := 0; i < mesh.VertexCount(); i++ {
		p := mesh.PositionAt(i)
		if mgl32.Abs(p.X()) > 1.0001 || mgl32.Abs(p.Y()) > 2.0001 || mgl32.Abs(p.Z()) > 3.0001 {
			t.Fatalf("vertex %d outside half extents: %v", i, p)
		}
	}
}

func TestRecomputeNormalsOnIndexedPlane(t *testing.T) {
	mesh := &TriMesh{
		Positions: []float32{
			0, 0, 0,
			1, 0, 0,
			1, 1, 0,
			0, 1, 0,
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
	mesh.RecomputeNormals()
	for i := 0; i < mesh.VertexCount(); i++ {
		if !approxVec(mesh.NormalAt(i), mgl32.Vec3{0, 0, 1}, 1e-5) {
			t.Fatalf("vertex %d normal not +Z: %v", i, mesh.NormalAt(i))
		}
	}
}

func TestBox3Intersection(t *testing.T) {
	a := Box3{Half: mgl32.Vec3{1, 1, 1}}
	b := Box3{Center: mgl32.Vec3{1.5, 0, 0}, Half: mgl32.Vec3{1, 1, 1}}
	if !a.Intersects(b) {
		t.Fatalf("overlapping boxes should intersect")
	}
	c := Box3{Center: mgl32.Vec3{2, 0, 0}, Half: mgl32.Vec3{1, 1, 1}}
	if a.Intersects(c) {
		t.Fatalf("touching boxes should not count as intersecting")
	}
	footprint := Box3{Center: mgl32.Vec3{3, 5, -2}, Half: mgl32.Vec3{1, 2, 4}}.Footprint()
	if footprint.Center.X() != 3 || footprint.Center.Y() != -2 {
		t.Fatalf("footprint center should project X/Z, got %v", footprint.Center)
	}
}
