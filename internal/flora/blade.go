package flora

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"glade/internal/geom"
)

const (
	bladeWidth    = 0.1
	bladeHeight   = 1.0
	bladeSegments = 2
)

// NoInteraction parks the interaction point far outside any field so the
// push term evaluates to zero while nothing is touching the grass.
var NoInteraction = mgl32.Vec3{9999, 9999, 9999}

// BladeGeometry builds the shared grass blade: a two-segment vertical plane
// with both root vertices collapsed onto the stem line so the blade pinches
// to a point at the ground.
func BladeGeometry() *geom.TriMesh {
	mesh := &geom.TriMesh{}
	rows := bladeSegments + 1
	for row := 0; row < rows; row++ {
		y := bladeHeight * float32(row) / float32(bladeSegments)
		half := float32(bladeWidth) / 2
		if row == 0 {
			half = 0
		}
		mesh.Positions = append(mesh.Positions,
			-half, y, 0,
			half, y, 0,
		)
	}
	for seg := 0; seg < bladeSegments; seg++ {
		bl := uint32(seg * 2)
		br := bl + 1
		tl := bl + 2
		tr := bl + 3
		mesh.Indices = append(mesh.Indices, bl, br, tr, bl, tr, tl)
	}
	mesh.RecomputeNormals()
	return mesh
}

// AnimationParams is the typed parameter block the renderer's vertex stage
// evaluates per frame. AnimateVertex and ShadeVertex are the reference
// evaluation of the same contract, used by tests and CPU-side previews.
type AnimationParams struct {
	WindSpeed        float32    `json:"windSpeed"`
	WindStrength     float32    `json:"windStrength"`
	PushRadius       float32    `json:"pushRadius"`
	PushStrength     float32    `json:"pushStrength"`
	BaseColor        mgl32.Vec3 `json:"baseColor"`
	TipColor         mgl32.Vec3 `json:"tipColor"`
	ColorNoiseSpan   float32    `json:"colorNoiseSpan"`
	TranslucencyGain float32    `json:"translucencyGain"`
	ScatterGain      float32    `json:"scatterGain"`
}

func DefaultAnimationParams() AnimationParams {
	return AnimationParams{
		WindSpeed:        1.5,
		WindStrength:     0.15,
		PushRadius:       2.5,
		PushStrength:     0.8,
		BaseColor:        mgl32.Vec3{0.18, 0.42, 0.12},
		TipColor:         mgl32.Vec3{0.62, 0.83, 0.35},
		ColorNoiseSpan:   0.4,
		TranslucencyGain: 0.5,
		ScatterGain:      0.7,
	}
}

// AnimateVertex returns the displaced world position of one blade vertex:
// instance transform, then wind sway, then the radial push away from the
// interaction point. local is the vertex position in blade space with Y in
// [0, bladeHeight].
func AnimateVertex(p AnimationParams, local mgl32.Vec3, inst Instance, elapsed float32, interaction mgl32.Vec3) mgl32.Vec3 {
	world := inst.TransformPoint(local)

	sway := math32.Sin(elapsed*p.WindSpeed+world.Z()*0.5) * p.WindStrength * local.Y() * local.Y()
	world[0] += sway

	dx := world.X() - interaction.X()
	dz := world.Z() - interaction.Z()
	dist := math32.Hypot(dx, dz)
	if dist < p.PushRadius {
		falloff := 1 - dist/p.PushRadius
		falloff = falloff * falloff * falloff
		strength := p.PushStrength * falloff * math32.Pow(local.Y(), 1.5)
		if dist > 1e-6 {
			world[0] += dx / dist * strength
			world[2] += dz / dist * strength
		}
	}
	return world
}

// ShadeVertex returns the unlit vertex color: the per-instance base blended
// toward the tip color along the blade, with a noise-shifted break line, plus
// the translucency and scatter terms approximating light through the blade.
func ShadeVertex(p AnimationParams, local, normal mgl32.Vec3, inst Instance, view, sun mgl32.Vec3) mgl32.Vec3 {
	relHeight := mgl32.Clamp(local.Y()/bladeHeight, 0, 1)
	noise := (inst.Rand - 0.5) * p.ColorNoiseSpan
	t := mgl32.Clamp(relHeight*(1-noise)+noise, 0, 1)
	color := geom.Lerp3(inst.Color, p.TipColor, t)

	rotated := inst.RotateDirection(normal)
	translucency := math32.Max(0, rotated.Dot(sun.Mul(-1)))
	translucency = translucency * translucency * p.TranslucencyGain
	scatter := math32.Max(0, view.Dot(sun)+0.1)
	scatter = scatter * scatter * scatter * p.ScatterGain

	avg := p.BaseColor.Add(p.TipColor).Mul(0.5)
	return color.Add(avg.Mul(translucency + scatter))
}
