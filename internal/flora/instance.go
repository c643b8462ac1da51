package flora

import (
	"fmt"
	"math/rand"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"glade/internal/geom"
)

// Instance is one placed copy of a shared base mesh: ground position, yaw,
// uniform scale, tint and an auxiliary random scalar the animation contract
// reads.
type Instance struct {
	Position mgl32.Vec3
	Yaw      float32
	Scale    float32
	Color    mgl32.Vec3
	Rand     float32
}

// TransformPoint applies the instance transform (scale, yaw, translation) to
// a mesh-local point.
func (in Instance) TransformPoint(local mgl32.Vec3) mgl32.Vec3 {
	scaled := local.Mul(in.Scale)
	sin, cos := math32.Sincos(in.Yaw)
	rotated := mgl32.Vec3{
		scaled.X()*cos + scaled.Z()*sin,
		scaled.Y(),
		-scaled.X()*sin + scaled.Z()*cos,
	}
	return rotated.Add(in.Position)
}

// RotateDirection applies only the instance yaw to a direction vector.
func (in Instance) RotateDirection(d mgl32.Vec3) mgl32.Vec3 {
	sin, cos := math32.Sincos(in.Yaw)
	return mgl32.Vec3{
		d.X()*cos + d.Z()*sin,
		d.Y(),
		-d.X()*sin + d.Z()*cos,
	}
}

// Variation holds the per-instance randomization rules of one vegetation
// layer.
type Variation struct {
	YawRange         float32
	ScaleMin         float32
	ScaleMax         float32
	BaseColor        mgl32.Vec3
	BrightnessJitter float32
	Patch            *MeadowNoise
}

// BuildInstances places count instances inside the constraint and rolls
// their per-instance attributes. Grass yaw spans [0, pi) because blades are
// double sided; trees span the full circle.
func BuildInstances(count int, sampler *geom.Sampler, constraint geom.Constraint, v Variation, rng *rand.Rand) ([]Instance, error) {
	instances := make([]Instance, 0, count)
	for i := 0; i < count; i++ {
		point, err := sampler.Sample(constraint)
		if err != nil {
			return nil, fmt.Errorf("instance %d: %w", i, err)
		}
		brightness := float32(1)
		if v.BrightnessJitter > 0 {
			brightness = 1 + (rng.Float32()*2-1)*v.BrightnessJitter
		}
		brightness *= v.Patch.Factor(point.X(), point.Y())
		instances = append(instances, Instance{
			Position: mgl32.Vec3{point.X(), 0, point.Y()},
			Yaw:      rng.Float32() * v.YawRange,
			Scale:    v.ScaleMin + rng.Float32()*(v.ScaleMax-v.ScaleMin),
			Color:    v.BaseColor.Mul(brightness),
			Rand:     rng.Float32(),
		})
	}
	return instances, nil
}

// Field owns the renderable data of one vegetation layer: the shared base
// mesh plus instance records up to a fixed capacity. A visible cursor selects
// how many instances render without regenerating anything.
type Field struct {
	mesh      *geom.TriMesh
	instances []Instance
	visible   int
}

func NewField(mesh *geom.TriMesh, instances []Instance) *Field {
	return &Field{mesh: mesh, instances: instances, visible: len(instances)}
}

func (f *Field) Mesh() *geom.TriMesh {
	return f.mesh
}

func (f *Field) Capacity() int {
	return len(f.instances)
}

func (f *Field) Visible() int {
	return f.visible
}

// SetVisible clamps n into [0, capacity] and returns the applied value, so a
// renderer can never be told to read past the buffers.
func (f *Field) SetVisible(n int) int {
	if n < 0 {
		n = 0
	}
	if n > len(f.instances) {
		n = len(f.instances)
	}
	f.visible = n
	return n
}

func (f *Field) Instances() []Instance {
	return f.instances
}
