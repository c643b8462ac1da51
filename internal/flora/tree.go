package flora

import (
	"math/rand"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"glade/internal/geom"
)

const (
	minBranchLength = 0.5
	goldenAngle     = 2.399963
	needleLength    = 0.45
	needleWidth     = 0.07
	padRadius       = 0.38
)

// TreeParams holds the structural constants and palette of the pine builder.
// The structural counts fix the triangle budget; randomness only perturbs
// vertex data.
type TreeParams struct {
	TrunkHeight      float32
	TrunkRadius      float32
	BranchLevels     int
	BranchesPerLevel int
	PadsPerBranch    int
	SprigsPerPad     int
	NeedlesPerSprig  int

	BarkDark     mgl32.Vec3
	BarkLight    mgl32.Vec3
	NeedleDark   mgl32.Vec3
	NeedleLight  mgl32.Vec3
	NeedleShadow mgl32.Vec3
}

func DefaultTreeParams() TreeParams {
	return TreeParams{
		TrunkHeight:      7.5,
		TrunkRadius:      0.3,
		BranchLevels:     10,
		BranchesPerLevel: 5,
		PadsPerBranch:    5,
		SprigsPerPad:     15,
		NeedlesPerSprig:  8,
		BarkDark:         mgl32.Vec3{0.29, 0.19, 0.11},
		BarkLight:        mgl32.Vec3{0.49, 0.32, 0.20},
		NeedleDark:       mgl32.Vec3{0.10, 0.23, 0.11},
		NeedleLight:      mgl32.Vec3{0.30, 0.48, 0.18},
		NeedleShadow:     mgl32.Vec3{0.06, 0.15, 0.08},
	}
}

// TreeBuilder synthesizes one pine mesh per Build call. Every call reuses the
// same structural skeleton and rolls fresh microvariation, so two trees share
// a triangle count but not vertex data.
type TreeBuilder struct {
	params TreeParams
	rng    *rand.Rand
}

func NewTreeBuilder(params TreeParams, rng *rand.Rand) *TreeBuilder {
	return &TreeBuilder{params: params, rng: rng}
}

// Build merges trunk, branch cones and foliage pads into one unindexed
// vertex-colored mesh. An empty merge falls back to a placeholder box rather
// than failing.
func (b *TreeBuilder) Build() *geom.TriMesh {
	p := b.params
	mesh := geom.NewTriMesh(0)

	if p.TrunkHeight > 0 && p.TrunkRadius > 0 {
		mesh.Append(b.buildTrunk())
	}

	// Canonical sprig and pad are built once per tree and cloned into place
	// for every branch.
	sprig := b.buildSprig()
	pad := b.buildPad(sprig)

	for level := 0; level < p.BranchLevels; level++ {
		ratio := float32(0)
		if p.BranchLevels > 1 {
			ratio = float32(level) / float32(p.BranchLevels-1)
		}
		length := minBranchLength + 2.5*math32.Sin(math32.Pi*ratio)
		if length < minBranchLength {
			continue
		}
		levelY := lerpf(0.9, p.TrunkHeight-1.2, ratio)
		for i := 0; i < p.BranchesPerLevel; i++ {
			b.buildBranch(mesh, pad, level, i, ratio, levelY, length)
		}
	}

	if mesh.VertexCount() == 0 {
		return geom.Box(mgl32.Vec3{0.5, 1.0, 0.5}, p.BarkLight)
	}
	return mesh
}

func (b *TreeBuilder) buildTrunk() *geom.TriMesh {
	p := b.params
	return b.cone(p.TrunkRadius, p.TrunkRadius*0.12, p.TrunkHeight, 8, 3, func(ratio float32) mgl32.Vec3 {
		jittered := mgl32.Clamp(ratio+(b.rng.Float32()*2-1)*0.08, 0, 1)
		return geom.Lerp3(p.BarkDark, p.BarkLight, jittered)
	})
}

// cone builds an open tapered tube along +Y with per-vertex colors supplied
// by colorAt(heightRatio).
func (b *TreeBuilder) cone(bottomRadius, topRadius, height float32, radialSegments, heightSegments int, colorAt func(float32) mgl32.Vec3) *geom.TriMesh {
	mesh := geom.NewTriMesh(radialSegments * heightSegments * 6)
	slope := (bottomRadius - topRadius) / height
	ringVertex := func(segment, ring int) geom.Vertex {
		ratio := float32(ring) / float32(heightSegments)
		radius := lerpf(bottomRadius, topRadius, ratio)
		angle := float32(segment) / float32(radialSegments) * 2 * math32.Pi
		sin, cos := math32.Sincos(angle)
		normal := mgl32.Vec3{cos, slope, sin}
		if normal.LenSqr() > 0 {
			normal = normal.Normalize()
		}
		return geom.Vertex{
			Position: mgl32.Vec3{cos * radius, ratio * height, sin * radius},
			Normal:   normal,
			Color:    colorAt(ratio),
		}
	}
	for ring := 0; ring < heightSegments; ring++ {
		for segment := 0; segment < radialSegments; segment++ {
			next := (segment + 1) % radialSegments
			mesh.AppendQuad(
				ringVertex(segment, ring),
				ringVertex(segment, ring+1),
				ringVertex(next, ring+1),
				ringVertex(next, ring),
			)
		}
	}
	return mesh
}

// buildSprig fans needle quads radially with angular jitter, dark at the base
// and light at the tip.
func (b *TreeBuilder) buildSprig() *geom.TriMesh {
	p := b.params
	mesh := geom.NewTriMesh(p.NeedlesPerSprig * 6)
	for i := 0; i < p.NeedlesPerSprig; i++ {
		fan := float32(i)/float32(p.NeedlesPerSprig)*2*math32.Pi + (b.rng.Float32()*2-1)*0.15
		tilt := 0.85 + (b.rng.Float32()*2-1)*0.2
		sinT, cosT := math32.Sincos(tilt)

		base := func(x float32) mgl32.Vec3 { return rotateY(mgl32.Vec3{x, 0, 0}, fan) }
		tip := func(x float32) mgl32.Vec3 {
			return rotateY(mgl32.Vec3{x, needleLength * sinT, needleLength * cosT}, fan)
		}
		bl := geom.Vertex{Position: base(-needleWidth / 2), Color: p.NeedleDark}
		br := geom.Vertex{Position: base(needleWidth / 2), Color: p.NeedleDark}
		tr := geom.Vertex{Position: tip(needleWidth * 0.3), Color: p.NeedleLight}
		tl := geom.Vertex{Position: tip(-needleWidth * 0.3), Color: p.NeedleLight}
		normal := geom.FaceNormal(bl.Position, br.Position, tr.Position)
		bl.Normal, br.Normal, tr.Normal, tl.Normal = normal, normal, normal, normal
		mesh.AppendQuad(bl, br, tr, tl)
	}
	return mesh
}

// buildPad scatters sprig clones over a flattened hemisphere, each oriented
// outward, then recolors the lower half toward the shadow tone.
func (b *TreeBuilder) buildPad(sprig *geom.TriMesh) *geom.TriMesh {
	p := b.params
	mesh := geom.NewTriMesh(sprig.VertexCount() * p.SprigsPerPad)
	for i := 0; i < p.SprigsPerPad; i++ {
		u := (float32(i) + 0.5) / float32(p.SprigsPerPad)
		phi := math32.Acos(1 - u)
		theta := float32(i)*goldenAngle + (b.rng.Float32()*2-1)*0.3
		sinPhi, cosPhi := math32.Sincos(phi)
		sinTheta, cosTheta := math32.Sincos(theta)
		dir := mgl32.Vec3{sinPhi * cosTheta, cosPhi * 0.6, sinPhi * sinTheta}
		if dir.LenSqr() == 0 {
			dir = mgl32.Vec3{0, 1, 0}
		}
		dir = dir.Normalize()

		pos := dir.Mul(padRadius * (0.7 + 0.3*b.rng.Float32()))
		scale := 0.8 + 0.3*b.rng.Float32()
		orient := mgl32.QuatBetweenVectors(mgl32.Vec3{0, 1, 0}, dir)
		mat := mgl32.Translate3D(pos.X(), pos.Y(), pos.Z()).
			Mul4(orient.Mat4()).
			Mul4(mgl32.Scale3D(scale, scale, scale))

		clone := sprig.Clone()
		clone.Transform(mat)
		mesh.Append(clone)
	}

	minY, maxY := float32(math32.MaxFloat32), float32(-math32.MaxFloat32)
	for i := 0; i < mesh.VertexCount(); i++ {
		y := mesh.PositionAt(i).Y()
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}
	midY := (minY + maxY) / 2
	for i := 0; i < mesh.VertexCount(); i++ {
		if mesh.PositionAt(i).Y() < midY {
			mesh.SetColorAt(i, geom.Lerp3(mesh.ColorAt(i), p.NeedleShadow, 0.65))
		}
	}
	return mesh
}

func (b *TreeBuilder) buildBranch(mesh, pad *geom.TriMesh, level, index int, ratio, levelY, length float32) {
	p := b.params

	// Base angles are deterministic; jitter perturbs geometry only, never the
	// pad skip decisions, keeping the triangle count stable across builds.
	droopBase := lerpf(0.45, -0.35, ratio)
	spiral := float32(level)*goldenAngle + float32(index)/float32(p.BranchesPerLevel)*2*math32.Pi +
		(b.rng.Float32()*2-1)*0.25
	droop := droopBase + (b.rng.Float32()*2-1)*0.08

	sinD, cosD := math32.Sincos(droop)
	sinS, cosS := math32.Sincos(spiral)
	dir := mgl32.Vec3{cosD * cosS, -sinD, cosD * sinS}

	baseRadius := p.TrunkRadius * 0.45 * (1 - 0.55*ratio)
	branch := b.cone(baseRadius, baseRadius*0.25, length, 5, 1, func(r float32) mgl32.Vec3 {
		return geom.Lerp3(p.BarkDark, p.BarkLight, r*0.6)
	})
	orient := mgl32.QuatBetweenVectors(mgl32.Vec3{0, 1, 0}, dir)
	branch.Transform(mgl32.Translate3D(0, levelY, 0).Mul4(orient.Mat4()))
	mesh.Append(branch)

	for k := 0; k < p.PadsPerBranch; k++ {
		along := (float32(k) + 1) / float32(p.PadsPerBranch)
		if along*length*math32.Cos(droopBase) < p.TrunkRadius {
			// pad would sit inside the trunk
			continue
		}
		offset := dir.Mul(along * length)
		sag := 0.12 * along
		scale := lerpf(1.0, 0.55, along) * (0.85 + 0.2*b.rng.Float32())
		yaw := b.rng.Float32() * 2 * math32.Pi

		clone := pad.Clone()
		clone.Transform(mgl32.Translate3D(offset.X(), levelY+offset.Y()-sag, offset.Z()).
			Mul4(mgl32.HomogRotate3DY(yaw)).
			Mul4(mgl32.Scale3D(scale, scale, scale)))
		mesh.Append(clone)
	}
}

func rotateY(v mgl32.Vec3, angle float32) mgl32.Vec3 {
	sin, cos := math32.Sincos(angle)
	return mgl32.Vec3{
		v.X()*cos + v.Z()*sin,
		v.Y(),
		-v.X()*sin + v.Z()*cos,
	}
}
