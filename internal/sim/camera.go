package sim

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// OrbitCameraParams tunes the follow camera.
type OrbitCameraParams struct {
	Offset      mgl32.Vec3
	LookOffset  mgl32.Vec3
	PointerSens float32
	TouchSens   float32
	Smoothing   float32
	PitchLimit  float32
}

func DefaultOrbitCameraParams() OrbitCameraParams {
	return OrbitCameraParams{
		Offset:      mgl32.Vec3{0, 2.5, -6},
		LookOffset:  mgl32.Vec3{0, 1.2, 0},
		PointerSens: 0.002,
		TouchSens:   0.004,
		Smoothing:   15,
		PitchLimit:  0.8 * (math32.Pi / 2),
	}
}

// OrbitCamera trails a target from a yaw/pitch orbit. Look deltas adjust the
// orbit angles; Update glides the camera toward its slot with exponential
// smoothing, snapping on the first frame so the scene never opens mid-glide.
type OrbitCamera struct {
	params      OrbitCameraParams
	yaw         float32
	pitch       float32
	position    mgl32.Vec3
	look        mgl32.Vec3
	initialized bool
}

func NewOrbitCamera(params OrbitCameraParams) *OrbitCamera {
	return &OrbitCamera{params: params}
}

func (c *OrbitCamera) ApplyPointerDelta(dx, dy float32) {
	c.rotate(dx*c.params.PointerSens, dy*c.params.PointerSens)
}

func (c *OrbitCamera) ApplyTouchDelta(dx, dy float32) {
	c.rotate(dx*c.params.TouchSens, dy*c.params.TouchSens)
}

func (c *OrbitCamera) rotate(dyaw, dpitch float32) {
	c.yaw += dyaw
	c.pitch = mgl32.Clamp(c.pitch+dpitch, -c.params.PitchLimit, c.params.PitchLimit)
}

func (c *OrbitCamera) Yaw() float32 { return c.yaw }

func (c *OrbitCamera) Pitch() float32 { return c.pitch }

func (c *OrbitCamera) Position() mgl32.Vec3 { return c.position }

func (c *OrbitCamera) LookAt() mgl32.Vec3 { return c.look }

// ViewDirection is the unit vector from the camera toward its look point.
func (c *OrbitCamera) ViewDirection() mgl32.Vec3 {
	d := c.look.Sub(c.position)
	if l := d.Len(); l > 1e-6 {
		return d.Mul(1 / l)
	}
	return mgl32.Vec3{0, 0, 1}
}

// Update moves the camera toward its orbit slot around the target.
func (c *OrbitCamera) Update(target mgl32.Vec3, delta float32) {
	rot := mgl32.QuatRotate(c.yaw, mgl32.Vec3{0, 1, 0}).Mul(mgl32.QuatRotate(c.pitch, mgl32.Vec3{1, 0, 0}))
	desired := target.Add(rot.Rotate(c.params.Offset))
	look := target.Add(c.params.LookOffset)

	if !c.initialized || c.params.Smoothing <= 0 || delta <= 0 {
		c.position = desired
		c.look = look
		c.initialized = true
		return
	}
	alpha := 1 - math32.Exp(-c.params.Smoothing*delta)
	c.position = c.position.Add(desired.Sub(c.position).Mul(alpha))
	c.look = c.look.Add(look.Sub(c.look).Mul(alpha))
}
