package flora

import (
	"github.com/chewxy/math32"
)

// MeadowNoise modulates instance colors with a smooth large-scale factor so
// the field reads as uneven patches of tone rather than uniform green.
type MeadowNoise struct {
	seed      int64
	frequency float32
	span      float32
}

// NewMeadowNoise builds a patch-noise source. span is the half width of the
// output range around 1.0, e.g. 0.1 yields factors in [0.9, 1.1].
func NewMeadowNoise(seed int64, frequency, span float32) *MeadowNoise {
	if frequency <= 0 {
		frequency = 0.08
	}
	if span < 0 {
		span = 0
	}
	return &MeadowNoise{seed: seed, frequency: frequency, span: span}
}

// Factor samples the patch factor at a ground-plane position.
func (n *MeadowNoise) Factor(x, z float32) float32 {
	if n == nil {
		return 1
	}
	base := n.valueNoise(x*n.frequency, z*n.frequency)
	detail := n.valueNoise(x*n.frequency*3.1+57.0, z*n.frequency*3.1-31.0)
	blend := base*0.7 + detail*0.3
	return 1 + blend*n.span
}

func (n *MeadowNoise) valueNoise(x, z float32) float32 {
	x0 := int(math32.Floor(x))
	z0 := int(math32.Floor(z))
	x1 := x0 + 1
	z1 := z0 + 1

	sx := smooth(x - float32(x0))
	sz := smooth(z - float32(z0))

	n0 := random2D(x0, z0, n.seed)
	n1 := random2D(x1, z0, n.seed)
	ix0 := lerpf(n0, n1, sx)

	n2 := random2D(x0, z1, n.seed)
	n3 := random2D(x1, z1, n.seed)
	ix1 := lerpf(n2, n3, sx)

	return lerpf(ix0, ix1, sz)
}

func smooth(t float32) float32 {
	return t * t * (3 - 2*t)
}

func lerpf(a, b, t float32) float32 {
	return a + t*(b-a)
}

func random2D(x, z int, seed int64) float32 {
	return float32(hash3(x, z, int(seed))&0xFFFF)/0x8000 - 1.0
}

func hash3(x, y, z int) uint32 {
	h := uint32(x*374761393 + y*668265263 + z*2147483647)
	h = (h ^ (h >> 13)) * 1274126177
	return h ^ (h >> 16)
}
