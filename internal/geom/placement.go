package geom

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Planar coordinates are X/Z ground-plane positions; Y stays up.

// Circle is a circular exclusion zone on the ground plane.
type Circle struct {
	Center mgl32.Vec2
	Radius float32
}

// Contains uses a squared-distance test; points exactly on the rim count as
// outside.
func (c Circle) Contains(p mgl32.Vec2) bool {
	d := p.Sub(c.Center)
	return d.Dot(d) < c.Radius*c.Radius
}

func (c Circle) Expand(margin float32) Circle {
	return Circle{Center: c.Center, Radius: c.Radius + margin}
}

// Rect is an axis-aligned rectangle described by center and half extents.
type Rect struct {
	Center mgl32.Vec2
	Half   mgl32.Vec2
}

func (r Rect) Contains(p mgl32.Vec2) bool {
	return math32.Abs(p.X()-r.Center.X()) <= r.Half.X() &&
		math32.Abs(p.Y()-r.Center.Y()) <= r.Half.Y()
}

func (r Rect) Expand(margin float32) Rect {
	return Rect{Center: r.Center, Half: mgl32.Vec2{r.Half.X() + margin, r.Half.Y() + margin}}
}

// Constraint bounds placement to an area rectangle while keeping points out
// of every exclusion zone.
type Constraint struct {
	Area    Rect
	Circles []Circle
	Rects   []Rect
}

func (c Constraint) Allows(p mgl32.Vec2) bool {
	if !c.Area.Contains(p) {
		return false
	}
	for _, zone := range c.Circles {
		if zone.Contains(p) {
			return false
		}
	}
	for _, zone := range c.Rects {
		if zone.Contains(p) {
			return false
		}
	}
	return true
}

// maxSampleAttempts caps the rejection loop so an area crowded out by its
// exclusion zones surfaces as a configuration error instead of a hang.
const maxSampleAttempts = 10000

// Sampler draws placement points by rejection sampling.
type Sampler struct {
	rng *rand.Rand
}

func NewSampler(rng *rand.Rand) *Sampler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Sampler{rng: rng}
}

// Sample draws uniform candidates inside the constraint area until one clears
// every exclusion zone.
func (s *Sampler) Sample(c Constraint) (mgl32.Vec2, error) {
	for attempt := 0; attempt < maxSampleAttempts; attempt++ {
		p := mgl32.Vec2{
			c.Area.Center.X() + (s.rng.Float32()*2-1)*c.Area.Half.X(),
			c.Area.Center.Y() + (s.rng.Float32()*2-1)*c.Area.Half.Y(),
		}
		if c.Allows(p) {
			return p, nil
		}
	}
	return mgl32.Vec2{}, fmt.Errorf("placement: no admissible point after %d attempts", maxSampleAttempts)
}

// Float32 exposes the sampler's random stream for callers that jitter the
// attributes of a placed point.
func (s *Sampler) Float32() float32 {
	return s.rng.Float32()
}
