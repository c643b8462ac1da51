package sim

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"glade/internal/geom"
)

// CharacterParams tunes the third-person controller.
type CharacterParams struct {
	MoveSpeed   float32
	Damping     float32
	JumpSpeed   float32
	Gravity     float32
	HoverHeight float32
	TurnRate    float32
	HalfExtents mgl32.Vec3
}

func DefaultCharacterParams() CharacterParams {
	return CharacterParams{
		MoveSpeed:   5,
		Damping:     20,
		JumpSpeed:   7,
		Gravity:     20,
		HoverHeight: 1.5,
		TurnRate:    10,
		HalfExtents: mgl32.Vec3{0.4, 0.75, 0.4},
	}
}

// Character is the player actor: damped planar movement steered relative to
// the camera yaw, ballistic jumps back down to the hover height, and
// axis-separated AABB collision so a blocked axis still allows sliding along
// the other.
type Character struct {
	params      CharacterParams
	position    mgl32.Vec3
	orientation mgl32.Quat
	velocity    mgl32.Vec3
	vertical    float32
	airborne    bool
	active      bool
	spawn       mgl32.Vec3
	bounds      geom.Rect
	obstacles   []geom.Box3
}

func NewCharacter(params CharacterParams, spawn mgl32.Vec3, bounds geom.Rect, obstacles []geom.Box3) *Character {
	spawn[1] = params.HoverHeight
	return &Character{
		params:      params,
		position:    spawn,
		spawn:       spawn,
		orientation: mgl32.QuatIdent(),
		bounds:      bounds,
		obstacles:   obstacles,
	}
}

// Start makes the character respond to input.
func (c *Character) Start() {
	c.active = true
}

// Stop freezes the character in place. Position and facing survive so a
// later Start resumes where it left off.
func (c *Character) Stop() {
	c.active = false
	c.velocity = mgl32.Vec3{}
	c.vertical = 0
	c.airborne = false
	c.position[1] = c.params.HoverHeight
}

func (c *Character) Active() bool { return c.active }

func (c *Character) Position() mgl32.Vec3 { return c.position }

func (c *Character) Orientation() mgl32.Quat { return c.orientation }

func (c *Character) Velocity() mgl32.Vec3 { return c.velocity }

func (c *Character) Airborne() bool { return c.airborne }

// SetMoveSpeed retunes the walk speed live. Values <= 0 are ignored.
func (c *Character) SetMoveSpeed(v float32) {
	if v > 0 {
		c.params.MoveSpeed = v
	}
}

// Respawn teleports the character back to its spawn point at rest.
func (c *Character) Respawn() {
	c.position = c.spawn
	c.velocity = mgl32.Vec3{}
	c.vertical = 0
	c.airborne = false
	c.orientation = mgl32.QuatIdent()
}

// Update advances one tick. The order is load bearing: steering and damping
// first, horizontal movement with per-axis collision, then the vertical
// ballistic step, then jump starts, then facing.
func (c *Character) Update(in InputSample, cameraYaw float32, delta float32) {
	if !c.active || delta <= 0 {
		return
	}

	sin, cos := math32.Sincos(cameraYaw)
	forward := mgl32.Vec3{sin, 0, cos}
	right := mgl32.Vec3{cos, 0, -sin}
	desired := forward.Mul(in.Move.Y()).Add(right.Mul(in.Move.X()))
	if l := desired.Len(); l > 1e-6 {
		desired = desired.Mul(c.params.MoveSpeed / l)
	} else {
		desired = mgl32.Vec3{}
	}

	alpha := 1 - math32.Exp(-c.params.Damping*delta)
	c.velocity = c.velocity.Add(desired.Sub(c.velocity).Mul(alpha))

	c.moveAxis(0, c.velocity.X()*delta)
	c.moveAxis(2, c.velocity.Z()*delta)

	if c.airborne {
		c.vertical -= c.params.Gravity * delta
		c.position[1] += c.vertical * delta
		if c.position[1] <= c.params.HoverHeight {
			c.position[1] = c.params.HoverHeight
			c.vertical = 0
			c.airborne = false
		}
	}

	if in.Jump && !c.airborne {
		c.vertical = c.params.JumpSpeed
		c.airborne = true
	}

	planar := mgl32.Vec3{c.velocity.X(), 0, c.velocity.Z()}
	if planar.Len() > 0.1 {
		targetYaw := math32.Atan2(planar.X(), planar.Z())
		target := mgl32.QuatRotate(targetYaw, mgl32.Vec3{0, 1, 0})
		c.orientation = mgl32.QuatSlerp(c.orientation, target, mgl32.Clamp(c.params.TurnRate*delta, 0, 1))
	}
}

// moveAxis applies one axis of horizontal displacement, reverting it and
// zeroing that velocity component on obstacle contact or at the field edge.
func (c *Character) moveAxis(axis int, amount float32) {
	if amount == 0 {
		return
	}
	prev := c.position[axis]
	c.position[axis] = prev + amount

	body := geom.Box3{Center: c.position, Half: c.params.HalfExtents}
	for _, ob := range c.obstacles {
		if body.Intersects(ob) {
			c.position[axis] = prev
			c.velocity[axis] = 0
			return
		}
	}

	min, max := c.axisBounds(axis)
	if c.position[axis] < min {
		c.position[axis] = min
		c.velocity[axis] = 0
	} else if c.position[axis] > max {
		c.position[axis] = max
		c.velocity[axis] = 0
	}
}

func (c *Character) axisBounds(axis int) (float32, float32) {
	if axis == 0 {
		return c.bounds.Center.X() - c.bounds.Half.X(), c.bounds.Center.X() + c.bounds.Half.X()
	}
	return c.bounds.Center.Y() - c.bounds.Half.Y(), c.bounds.Center.Y() + c.bounds.Half.Y()
}
