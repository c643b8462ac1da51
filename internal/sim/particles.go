package sim

import (
	"math/rand"
	"time"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Particle is one live burst fragment. Life counts down to zero; renderers
// fade alpha with Life/MaxLife.
type Particle struct {
	Position mgl32.Vec3
	Velocity mgl32.Vec3
	Color    mgl32.Vec3
	Life     float32
	MaxLife  float32
	Size     float32
}

// ParticleParams tunes the pickup bursts.
type ParticleParams struct {
	MaxParticles int
	BurstCount   int
	Gravity      float32
	MinSpeed     float32
	MaxSpeed     float32
	MinLife      float32
	MaxLife      float32
	Size         float32
}

func DefaultParticleParams() ParticleParams {
	return ParticleParams{
		MaxParticles: 512,
		BurstCount:   24,
		Gravity:      9.8,
		MinSpeed:     2,
		MaxSpeed:     5,
		MinLife:      0.5,
		MaxLife:      1.1,
		Size:         0.08,
	}
}

// ParticleSystem owns a fixed pool. The first active entries are live; the
// tail is free. Triggering never steals a live particle and expiry swaps the
// dead entry into the free tail, so no allocation happens after construction.
type ParticleSystem struct {
	params ParticleParams
	rng    *rand.Rand
	pool   []Particle
	active int
}

func NewParticleSystem(params ParticleParams, rng *rand.Rand) *ParticleSystem {
	if params.MaxParticles <= 0 {
		params.MaxParticles = 512
	}
	if params.BurstCount <= 0 {
		params.BurstCount = 24
	}
	if params.MaxSpeed < params.MinSpeed {
		params.MaxSpeed = params.MinSpeed
	}
	if params.MaxLife < params.MinLife {
		params.MaxLife = params.MinLife
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &ParticleSystem{
		params: params,
		rng:    rng,
		pool:   make([]Particle, params.MaxParticles),
	}
}

// Trigger emits an upward-biased burst at origin. When the free tail cannot
// hold a full burst the burst truncates; the returned count is what was
// actually emitted.
func (s *ParticleSystem) Trigger(origin, color mgl32.Vec3) int {
	n := s.params.BurstCount
	if free := len(s.pool) - s.active; n > free {
		n = free
	}
	for i := 0; i < n; i++ {
		theta := s.rng.Float32() * 2 * math32.Pi
		up := 0.35 + s.rng.Float32()*0.6
		planar := math32.Sqrt(1 - up*up)
		psin, pcos := math32.Sincos(theta)
		dir := mgl32.Vec3{planar * pcos, up, planar * psin}

		speed := s.params.MinSpeed + s.rng.Float32()*(s.params.MaxSpeed-s.params.MinSpeed)
		life := s.params.MinLife + s.rng.Float32()*(s.params.MaxLife-s.params.MinLife)

		s.pool[s.active] = Particle{
			Position: origin,
			Velocity: dir.Mul(speed),
			Color:    color,
			Life:     life,
			MaxLife:  life,
			Size:     s.params.Size,
		}
		s.active++
	}
	return n
}

// Update integrates live particles and retires the expired ones.
func (s *ParticleSystem) Update(delta float32) {
	if delta <= 0 {
		return
	}
	for i := s.active - 1; i >= 0; i-- {
		p := &s.pool[i]
		p.Life -= delta
		if p.Life <= 0 {
			s.active--
			s.pool[i] = s.pool[s.active]
			continue
		}
		p.Velocity[1] -= s.params.Gravity * delta
		p.Position = p.Position.Add(p.Velocity.Mul(delta))
	}
}

// Particles returns the live slice, valid until the next Trigger or Update.
func (s *ParticleSystem) Particles() []Particle {
	return s.pool[:s.active]
}

func (s *ParticleSystem) Active() int { return s.active }

func (s *ParticleSystem) Capacity() int { return len(s.pool) }
