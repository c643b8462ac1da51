package sim

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"glade/internal/geom"
)

// OrbKind separates the regular collectibles from the one high-value orb
// every wave carries.
type OrbKind string

const (
	OrbNormal  OrbKind = "normal"
	OrbSpecial OrbKind = "special"
)

// Orb is one collectible: a fixed anchor plus the bob/drift/spin animation
// state recomputed every tick.
type Orb struct {
	ID         int
	Kind       OrbKind
	Value      int
	Color      mgl32.Vec3
	Base       mgl32.Vec3
	Position   mgl32.Vec3
	Spin       float32
	phase      float32
	driftPhase float32
}

// OrbParams tunes the minigame.
type OrbParams struct {
	Count               int
	NormalValue         int
	SpecialValue        int
	PickupRadius        float32
	Height              float32
	BobAmplitude        float32
	SpinRate            float32
	DriftRadius         float32
	WinScore            int
	RespawnDelay        float32
	CelebrationDuration float32
	NormalColor         mgl32.Vec3
	SpecialColor        mgl32.Vec3
}

func DefaultOrbParams() OrbParams {
	return OrbParams{
		Count:               12,
		NormalValue:         1,
		SpecialValue:        5,
		PickupRadius:        1.2,
		Height:              1.2,
		BobAmplitude:        0.25,
		SpinRate:            2,
		DriftRadius:         0.4,
		WinScore:            15,
		RespawnDelay:        4,
		CelebrationDuration: 6,
		NormalColor:         mgl32.Vec3{1, 0.85, 0.25},
		SpecialColor:        mgl32.Vec3{0.4, 0.9, 1},
	}
}

// OrbManager runs the collect-the-orbs loop: spawn a wave with one special
// orb, award pickups, start a celebration when the win score is reached and
// respawn the wave afterwards. A depleted wave without a win respawns after
// a shorter delay; a win cancels that so the celebration owns the field.
type OrbManager struct {
	params  OrbParams
	sampler *geom.Sampler
	zone    geom.Constraint
	timers  *Timers

	orbs        []Orb
	score       int
	nextID      int
	celebrating bool
	respawn     TimerHandle
	celebration TimerHandle

	OnScoreChanged func(int)
	OnCollected    func(Orb)
	OnWin          func()
	OnRespawn      func()
	OnError        func(error)
}

func NewOrbManager(params OrbParams, sampler *geom.Sampler, zone geom.Constraint, timers *Timers) *OrbManager {
	return &OrbManager{params: params, sampler: sampler, zone: zone, timers: timers}
}

// Spawn clears the field, places a fresh wave with the special orb included
// and resets the score.
func (m *OrbManager) Spawn() error {
	m.orbs = m.orbs[:0]
	m.score = 0
	m.celebrating = false
	if m.respawn != 0 {
		m.timers.Cancel(m.respawn)
		m.respawn = 0
	}
	if m.celebration != 0 {
		m.timers.Cancel(m.celebration)
		m.celebration = 0
	}

	for i := 0; i < m.params.Count; i++ {
		p, err := m.sampler.Sample(m.zone)
		if err != nil {
			return fmt.Errorf("orb %d: %w", i, err)
		}
		kind, value, color := OrbNormal, m.params.NormalValue, m.params.NormalColor
		if i == 0 {
			kind, value, color = OrbSpecial, m.params.SpecialValue, m.params.SpecialColor
		}
		m.nextID++
		base := mgl32.Vec3{p.X(), m.params.Height, p.Y()}
		m.orbs = append(m.orbs, Orb{
			ID:         m.nextID,
			Kind:       kind,
			Value:      value,
			Color:      color,
			Base:       base,
			Position:   base,
			phase:      m.sampler.Float32() * 2 * math32.Pi,
			driftPhase: m.sampler.Float32() * 2 * math32.Pi,
		})
	}
	if m.OnScoreChanged != nil {
		m.OnScoreChanged(m.score)
	}
	return nil
}

// Update animates the wave and collects orbs within the pickup radius of the
// character. During a celebration the field is frozen and pickups are off.
func (m *OrbManager) Update(charPos mgl32.Vec3, elapsed, delta float32) {
	if m.celebrating {
		return
	}

	for i := range m.orbs {
		o := &m.orbs[i]
		bob := math32.Sin(elapsed*2+o.phase) * m.params.BobAmplitude
		dsin, dcos := math32.Sincos(elapsed*0.5 + o.driftPhase)
		o.Position = mgl32.Vec3{
			o.Base.X() + dcos*m.params.DriftRadius,
			o.Base.Y() + bob,
			o.Base.Z() + dsin*m.params.DriftRadius,
		}
		o.Spin = math32.Mod(elapsed*m.params.SpinRate+o.phase, 2*math32.Pi)
	}

	// Reverse order so removal never skips a neighbor.
	for i := len(m.orbs) - 1; i >= 0; i-- {
		o := m.orbs[i]
		if o.Position.Sub(charPos).Len() >= m.params.PickupRadius {
			continue
		}
		m.orbs = append(m.orbs[:i], m.orbs[i+1:]...)
		m.score += o.Value
		if m.OnCollected != nil {
			m.OnCollected(o)
		}
		if m.OnScoreChanged != nil {
			m.OnScoreChanged(m.score)
		}
	}

	switch {
	case m.score >= m.params.WinScore:
		m.beginCelebration()
	case len(m.orbs) == 0 && m.respawn == 0:
		m.respawn = m.timers.Schedule(m.params.RespawnDelay, func() {
			m.respawn = 0
			m.respawnWave()
		})
	}
}

func (m *OrbManager) beginCelebration() {
	m.celebrating = true
	if m.respawn != 0 {
		m.timers.Cancel(m.respawn)
		m.respawn = 0
	}
	if m.OnWin != nil {
		m.OnWin()
	}
	m.celebration = m.timers.Schedule(m.params.CelebrationDuration, func() {
		m.celebration = 0
		m.respawnWave()
	})
}

func (m *OrbManager) respawnWave() {
	if err := m.Spawn(); err != nil {
		if m.OnError != nil {
			m.OnError(err)
		}
		return
	}
	if m.OnRespawn != nil {
		m.OnRespawn()
	}
}

// Stop cancels any pending respawn or celebration so nothing fires after the
// scene deactivates. The field itself is left as is for a later Spawn.
func (m *OrbManager) Stop() {
	if m.respawn != 0 {
		m.timers.Cancel(m.respawn)
		m.respawn = 0
	}
	if m.celebration != 0 {
		m.timers.Cancel(m.celebration)
		m.celebration = 0
	}
	m.celebrating = false
}

func (m *OrbManager) Orbs() []Orb { return m.orbs }

func (m *OrbManager) Score() int { return m.score }

func (m *OrbManager) Remaining() int { return len(m.orbs) }

func (m *OrbManager) Celebrating() bool { return m.celebrating }
