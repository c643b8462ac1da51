package flora

import (
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
)

func TestTreeBuildsShareTriangleCountButNotVertexData(t *testing.T) {
	params := DefaultTreeParams()
	first := NewTreeBuilder(params, rand.New(rand.NewSource(1))).Build()
	second := NewTreeBuilder(params, rand.New(rand.NewSource(99))).Build()

	if first.TriangleCount() == 0 {
		t.Fatalf("expected a non-empty tree mesh")
	}
	if first.TriangleCount() != second.TriangleCount() {
		t.Fatalf("triangle count must be invariant across builds: %d vs %d",
			first.TriangleCount(), second.TriangleCount())
	}
	if len(first.Positions) != len(second.Positions) {
		t.Fatalf("vertex buffers must match in size: %d vs %d", len(first.Positions), len(second.Positions))
	}

	identical := true
	for i := range first.Positions {
		if first.Positions[i] != second.Positions[i] {
			identical = false
			break
		}
	}
	if identical {
		t.Fatalf("expected jitter to vary vertex data across builds")
	}
}

func TestTreeTrunkOnly(t *testing.T) {
	params := DefaultTreeParams()
	params.BranchLevels = 0
	mesh := NewTreeBuilder(params, rand.New(rand.NewSource(5))).Build()

	// 8 radial segments times 3 height segments, two triangles each.
	if mesh.TriangleCount() != 48 {
		t.Fatalf("expected 48 trunk triangles, got %d", mesh.TriangleCount())
	}
	for i := 0; i < mesh.VertexCount(); i++ {
		p := mesh.PositionAt(i)
		if p.Y() < -0.001 || p.Y() > params.TrunkHeight+0.001 {
			t.Fatalf("trunk vertex %d outside height range: %v", i, p)
		}
		if math32.Hypot(p.X(), p.Z()) > params.TrunkRadius+0.001 {
			t.Fatalf("trunk vertex %d outside radius: %v", i, p)
		}
	}
}

func TestTreeFallsBackToPlaceholderBox(t *testing.T) {
	params := DefaultTreeParams()
	params.TrunkHeight = 0
	params.BranchLevels = 0
	mesh := NewTreeBuilder(params, rand.New(rand.NewSource(3))).Build()
	if mesh.TriangleCount() != 12 {
		t.Fatalf("expected placeholder box with 12 triangles, got %d", mesh.TriangleCount())
	}
}

func TestSprigCarriesTwoTones(t *testing.T) {
	params := DefaultTreeParams()
	builder := NewTreeBuilder(params, rand.New(rand.NewSource(11)))
	sprig := builder.buildSprig()

	if sprig.TriangleCount() != params.NeedlesPerSprig*2 {
		t.Fatalf("expected %d needle triangles, got %d", params.NeedlesPerSprig*2, sprig.TriangleCount())
	}
	sawDark, sawLight := false, false
	for i := 0; i < sprig.VertexCount(); i++ {
		c := sprig.ColorAt(i)
		if c == params.NeedleDark {
			sawDark = true
		}
		if c == params.NeedleLight {
			sawLight = true
		}
	}
	if !sawDark || !sawLight {
		t.Fatalf("expected both needle tones in sprig: dark=%v light=%v", sawDark, sawLight)
	}
}

func TestPadShadowsLowerHalf(t *testing.T) {
	params := DefaultTreeParams()
	builder := NewTreeBuilder(params, rand.New(rand.NewSource(17)))
	pad := builder.buildPad(builder.buildSprig())

	if pad.TriangleCount() != params.SprigsPerPad*params.NeedlesPerSprig*2 {
		t.Fatalf("unexpected pad triangle count: %d", pad.TriangleCount())
	}

	minY, maxY := pad.PositionAt(0).Y(), pad.PositionAt(0).Y()
	for i := 1; i < pad.VertexCount(); i++ {
		y := pad.PositionAt(i).Y()
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}
	midY := (minY + maxY) / 2

	for i := 0; i < pad.VertexCount(); i++ {
		if pad.PositionAt(i).Y() >= midY {
			continue
		}
		c := pad.ColorAt(i)
		if c == params.NeedleDark || c == params.NeedleLight {
			t.Fatalf("lower-half vertex %d kept its original tone %v", i, c)
		}
	}
}
