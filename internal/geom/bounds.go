package geom

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Box3 is an axis-aligned box described by center and half extents.
type Box3 struct {
	Center mgl32.Vec3
	Half   mgl32.Vec3
}

// Intersects reports whether the two boxes overlap; touching faces do not
// count as overlap.
func (b Box3) Intersects(other Box3) bool {
	return math32.Abs(b.Center.X()-other.Center.X()) < b.Half.X()+other.Half.X() &&
		math32.Abs(b.Center.Y()-other.Center.Y()) < b.Half.Y()+other.Half.Y() &&
		math32.Abs(b.Center.Z()-other.Center.Z()) < b.Half.Z()+other.Half.Z()
}

func (b Box3) Translated(offset mgl32.Vec3) Box3 {
	return Box3{Center: b.Center.Add(offset), Half: b.Half}
}

// Footprint projects the box onto the ground plane.
func (b Box3) Footprint() Rect {
	return Rect{
		Center: mgl32.Vec2{b.Center.X(), b.Center.Z()},
		Half:   mgl32.Vec2{b.Half.X(), b.Half.Z()},
	}
}
