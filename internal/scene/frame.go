package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"glade/internal/sim"
)

// Frame is the per-tick snapshot shipped to renderers. Static data such as
// meshes, instances and layout travels once in the init payload; a Frame
// only carries what moves.
type Frame struct {
	Tick        uint64          `json:"tick"`
	Elapsed     float32         `json:"elapsed"`
	Character   CharacterState  `json:"character"`
	Camera      CameraState     `json:"camera"`
	Sky         SkyState        `json:"sky"`
	Orbs        []OrbState      `json:"orbs"`
	Particles   []ParticleState `json:"particles,omitempty"`
	Interaction mgl32.Vec3      `json:"interaction"`
	Score       int             `json:"score"`
	Remaining   int             `json:"remaining"`
	Celebrating bool            `json:"celebrating"`
}

type CharacterState struct {
	Position mgl32.Vec3 `json:"position"`
	Forward  mgl32.Vec3 `json:"forward"`
	Velocity mgl32.Vec3 `json:"velocity"`
	Airborne bool       `json:"airborne"`
	Active   bool       `json:"active"`
}

type CameraState struct {
	Position mgl32.Vec3 `json:"position"`
	LookAt   mgl32.Vec3 `json:"lookAt"`
	Yaw      float32    `json:"yaw"`
	Pitch    float32    `json:"pitch"`
}

type SkyState struct {
	Hour         float32    `json:"hour"`
	Phase        string     `json:"phase"`
	SunDirection mgl32.Vec3 `json:"sunDirection"`
	SunIntensity float32    `json:"sunIntensity"`
	SkyColor     mgl32.Vec3 `json:"skyColor"`
	HorizonColor mgl32.Vec3 `json:"horizonColor"`
	AmbientColor mgl32.Vec3 `json:"ambientColor"`
}

type OrbState struct {
	ID       int        `json:"id"`
	Kind     string     `json:"kind"`
	Value    int        `json:"value"`
	Position mgl32.Vec3 `json:"position"`
	Color    mgl32.Vec3 `json:"color"`
	Spin     float32    `json:"spin"`
}

type ParticleState struct {
	Position mgl32.Vec3 `json:"position"`
	Color    mgl32.Vec3 `json:"color"`
	Alpha    float32    `json:"alpha"`
	Size     float32    `json:"size"`
}

type EventKind string

const (
	EventScore   EventKind = "score"
	EventPickup  EventKind = "pickup"
	EventWin     EventKind = "win"
	EventRespawn EventKind = "respawn"
)

// Event records something that happened during a Step.
type Event struct {
	Kind  EventKind `json:"kind"`
	Score int       `json:"score"`
	Orb   *OrbState `json:"orb,omitempty"`
}

// Snapshot captures the current dynamic state.
func (s *Scene) Snapshot() Frame {
	orbs := s.orbs.Orbs()
	orbStates := make([]OrbState, len(orbs))
	for i, o := range orbs {
		orbStates[i] = orbState(o)
	}
	particles := s.particles.Particles()
	var particleStates []ParticleState
	if len(particles) > 0 {
		particleStates = make([]ParticleState, len(particles))
		for i, p := range particles {
			alpha := float32(0)
			if p.MaxLife > 0 {
				alpha = p.Life / p.MaxLife
			}
			particleStates[i] = ParticleState{
				Position: p.Position,
				Color:    p.Color,
				Alpha:    alpha,
				Size:     p.Size,
			}
		}
	}
	return Frame{
		Tick:    s.tick,
		Elapsed: s.elapsed,
		Character: CharacterState{
			Position: s.character.Position(),
			Forward:  s.character.Orientation().Rotate(mgl32.Vec3{0, 0, 1}),
			Velocity: s.character.Velocity(),
			Airborne: s.character.Airborne(),
			Active:   s.character.Active(),
		},
		Camera: CameraState{
			Position: s.camera.Position(),
			LookAt:   s.camera.LookAt(),
			Yaw:      s.camera.Yaw(),
			Pitch:    s.camera.Pitch(),
		},
		Sky: SkyState{
			Hour:         s.skyState.Hour,
			Phase:        string(s.skyState.Phase),
			SunDirection: s.skyState.SunDirection,
			SunIntensity: s.skyState.SunIntensity,
			SkyColor:     s.skyState.SkyColor,
			HorizonColor: s.skyState.HorizonColor,
			AmbientColor: s.skyState.AmbientColor,
		},
		Orbs:        orbStates,
		Particles:   particleStates,
		Interaction: s.InteractionPoint(),
		Score:       s.orbs.Score(),
		Remaining:   s.orbs.Remaining(),
		Celebrating: s.orbs.Celebrating(),
	}
}

func orbState(o sim.Orb) OrbState {
	return OrbState{
		ID:       o.ID,
		Kind:     string(o.Kind),
		Value:    o.Value,
		Position: o.Position,
		Color:    o.Color,
		Spin:     o.Spin,
	}
}
