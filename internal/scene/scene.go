// Package scene assembles and steps the grassland: the ground layout, the
// instanced vegetation, the character with its orbit camera, the orb
// minigame, and the day cycle. A Scene is single threaded; the server drives
// Step from its tick loop and routes concurrent input through InputState.
package scene

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"glade/internal/config"
	"glade/internal/flora"
	"glade/internal/geom"
	"glade/internal/sim"
	"glade/internal/sky"
)

// Orb spawn zones keep a wider berth than vegetation so pickups never hover
// over water or clip into the rock.
const (
	orbPondMargin = 1
	orbRockMargin = 2
)

// Layout is the static ground plan shipped to renderers once.
type Layout struct {
	Bounds geom.Rect
	Pond   geom.Circle
	Rock   geom.Box3
	Spawn  mgl32.Vec3
}

type Scene struct {
	logger *log.Logger
	seed   int64

	layout     Layout
	grass      *flora.Field
	trees      *flora.Field
	treeMeshes []*geom.TriMesh
	anim       flora.AnimationParams

	input     *sim.InputState
	character *sim.Character
	camera    *sim.OrbitCamera
	orbs      *sim.OrbManager
	particles *sim.ParticleSystem
	timers    *sim.Timers
	cycle     *sky.Cycle
	skyState  sky.State

	elapsed float32
	tick    uint64
	events  []Event
}

// New builds the whole scene from a validated config. Placement is
// deterministic for a fixed world seed; seed 0 rolls a fresh world.
func New(cfg *config.Config, logger *log.Logger) (*Scene, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = log.Default()
	}
	seed := cfg.World.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	sampler := geom.NewSampler(rand.New(rand.NewSource(seed + 1)))

	layout := Layout{
		Bounds: geom.Rect{Half: mgl32.Vec2{cfg.World.FieldHalf, cfg.World.FieldHalf}},
		Pond: geom.Circle{
			Center: mgl32.Vec2{cfg.World.Pond.X, cfg.World.Pond.Z},
			Radius: cfg.World.Pond.Radius,
		},
		Rock: geom.Box3{
			Center: mgl32.Vec3{cfg.World.Rock.X, cfg.World.Rock.HalfY, cfg.World.Rock.Z},
			Half:   mgl32.Vec3{cfg.World.Rock.HalfX, cfg.World.Rock.HalfY, cfg.World.Rock.HalfZ},
		},
		Spawn: mgl32.Vec3{cfg.World.Spawn[0], cfg.World.Spawn[1], cfg.World.Spawn[2]},
	}

	grassZone := geom.Constraint{
		Area:    layout.Bounds,
		Circles: []geom.Circle{layout.Pond.Expand(cfg.Grass.Margin)},
		Rects:   []geom.Rect{layout.Rock.Footprint().Expand(cfg.Grass.Margin)},
	}
	grassInstances, err := flora.BuildInstances(cfg.Grass.Count, sampler, grassZone, flora.Variation{
		YawRange:         math32.Pi,
		ScaleMin:         cfg.Grass.ScaleMin,
		ScaleMax:         cfg.Grass.ScaleMax,
		BaseColor:        cfg.Grass.BaseColor.Vec3(),
		BrightnessJitter: cfg.Grass.BrightnessJitter,
		Patch:            flora.NewMeadowNoise(seed, cfg.Grass.PatchFrequency, cfg.Grass.PatchSpan),
	}, rng)
	if err != nil {
		return nil, fmt.Errorf("place grass: %w", err)
	}

	builder := flora.NewTreeBuilder(flora.DefaultTreeParams(), rng)
	treeMeshes := make([]*geom.TriMesh, cfg.Trees.Variants)
	for i := range treeMeshes {
		treeMeshes[i] = builder.Build()
	}
	treeZone := geom.Constraint{
		Area:    layout.Bounds,
		Circles: []geom.Circle{layout.Pond.Expand(cfg.Trees.Margin)},
		Rects:   []geom.Rect{layout.Rock.Footprint().Expand(cfg.Trees.Margin)},
	}
	treeInstances, err := flora.BuildInstances(cfg.Trees.Count, sampler, treeZone, flora.Variation{
		YawRange:  2 * math32.Pi,
		ScaleMin:  cfg.Trees.ScaleMin,
		ScaleMax:  cfg.Trees.ScaleMax,
		BaseColor: mgl32.Vec3{1, 1, 1},
	}, rng)
	if err != nil {
		return nil, fmt.Errorf("place trees: %w", err)
	}

	anim := flora.DefaultAnimationParams()
	anim.WindSpeed = cfg.Grass.WindSpeed
	anim.WindStrength = cfg.Grass.WindStrength
	anim.PushRadius = cfg.Grass.PushRadius
	anim.PushStrength = cfg.Grass.PushStrength
	anim.BaseColor = cfg.Grass.BaseColor.Vec3()
	anim.TipColor = cfg.Grass.TipColor.Vec3()

	cp := sim.DefaultCharacterParams()
	cp.MoveSpeed = cfg.Character.MoveSpeed
	cp.Damping = cfg.Character.Damping
	cp.JumpSpeed = cfg.Character.JumpSpeed
	cp.Gravity = cfg.Character.Gravity
	cp.HoverHeight = cfg.Character.HoverHeight
	cp.TurnRate = cfg.Character.TurnRate

	camp := sim.DefaultOrbitCameraParams()
	camp.Offset = mgl32.Vec3{0, cfg.Camera.Height, -cfg.Camera.Distance}
	camp.LookOffset = mgl32.Vec3{0, cfg.Camera.LookHeight, 0}
	camp.PointerSens = cfg.Camera.PointerSens
	camp.TouchSens = cfg.Camera.TouchSens
	camp.Smoothing = cfg.Camera.Smoothing

	op := sim.DefaultOrbParams()
	op.Count = cfg.Orbs.Count
	op.NormalValue = cfg.Orbs.NormalValue
	op.SpecialValue = cfg.Orbs.SpecialValue
	op.PickupRadius = cfg.Orbs.PickupRadius
	op.WinScore = cfg.Orbs.WinScore
	op.RespawnDelay = float32(cfg.Orbs.RespawnDelay.Seconds())
	op.CelebrationDuration = float32(cfg.Orbs.Celebration.Seconds())
	op.NormalColor = cfg.Orbs.NormalColor.Vec3()
	op.SpecialColor = cfg.Orbs.SpecialColor.Vec3()
	orbZone := geom.Constraint{
		Area:    layout.Bounds,
		Circles: []geom.Circle{layout.Pond.Expand(orbPondMargin)},
		Rects:   []geom.Rect{layout.Rock.Footprint().Expand(orbRockMargin)},
	}

	pp := sim.DefaultParticleParams()
	pp.MaxParticles = cfg.Particles.MaxParticles
	pp.BurstCount = cfg.Particles.BurstCount

	timers := sim.NewTimers()
	s := &Scene{
		logger:     logger,
		seed:       seed,
		layout:     layout,
		grass:      flora.NewField(flora.BladeGeometry(), grassInstances),
		trees:      flora.NewField(treeMeshes[0], treeInstances),
		treeMeshes: treeMeshes,
		anim:       anim,
		input:      sim.NewInputState(),
		character:  sim.NewCharacter(cp, layout.Spawn, layout.Bounds, []geom.Box3{layout.Rock}),
		camera:     sim.NewOrbitCamera(camp),
		orbs:       sim.NewOrbManager(op, sampler, orbZone, timers),
		particles:  sim.NewParticleSystem(pp, rng),
		timers:     timers,
		cycle: sky.NewCycle(sky.Config{
			DayLength: cfg.Sky.DayLength.Duration,
			StartHour: cfg.Sky.StartHour,
		}),
	}
	s.skyState = s.cycle.State()

	if err := s.orbs.Spawn(); err != nil {
		return nil, fmt.Errorf("spawn orbs: %w", err)
	}

	// Callbacks are wired after the initial spawn so construction emits no
	// events.
	s.orbs.OnScoreChanged = func(score int) {
		s.events = append(s.events, Event{Kind: EventScore, Score: score})
	}
	s.orbs.OnCollected = func(o sim.Orb) {
		s.particles.Trigger(o.Position, o.Color)
		state := orbState(o)
		s.events = append(s.events, Event{Kind: EventPickup, Score: s.orbs.Score(), Orb: &state})
	}
	s.orbs.OnWin = func() {
		s.events = append(s.events, Event{Kind: EventWin, Score: s.orbs.Score()})
	}
	s.orbs.OnRespawn = func() {
		s.events = append(s.events, Event{Kind: EventRespawn})
	}
	s.orbs.OnError = func(err error) {
		s.logger.Printf("orb respawn failed: %v", err)
	}
	return s, nil
}

// Step advances the scene by one tick and returns the events it produced,
// in occurrence order. The update order is fixed: clock, input, camera
// angles, character, camera glide, orbs, particles, timers.
func (s *Scene) Step(delta time.Duration) []Event {
	dt := float32(delta.Seconds())
	if dt <= 0 {
		return nil
	}
	s.skyState = s.cycle.Step(delta)
	in := s.input.Drain()
	s.camera.ApplyPointerDelta(in.OrbitDX, in.OrbitDY)
	s.camera.ApplyTouchDelta(in.TouchDX, in.TouchDY)
	s.character.Update(in, s.camera.Yaw(), dt)
	s.camera.Update(s.character.Position(), dt)
	s.elapsed += dt
	s.orbs.Update(s.InteractionPoint(), s.elapsed, dt)
	s.particles.Update(dt)
	s.timers.Advance(dt)
	s.tick++

	events := s.events
	s.events = nil
	return events
}

// Start hands control to a pilot. An empty orb field is respawned so a
// session never starts in a dead minigame.
func (s *Scene) Start() {
	s.character.Start()
	if s.orbs.Remaining() == 0 && !s.orbs.Celebrating() {
		if err := s.orbs.Spawn(); err != nil {
			s.logger.Printf("orb spawn failed: %v", err)
		}
	}
}

// Stop releases pilot control: the character freezes, buffered input is
// dropped and pending minigame timers are cancelled.
func (s *Scene) Stop() {
	s.character.Stop()
	s.input.Reset()
	s.orbs.Stop()
}

// InteractionPoint is where the grass should bend away from. While nobody
// is driving it parks far outside the field so the push term stays zero.
func (s *Scene) InteractionPoint() mgl32.Vec3 {
	if s.character.Active() {
		return s.character.Position()
	}
	return flora.NoInteraction
}

// SetVisibleCounts adjusts how many grass and tree instances renderers
// should draw and reports the clamped result.
func (s *Scene) SetVisibleCounts(grass, trees int) (int, int) {
	return s.grass.SetVisible(grass), s.trees.SetVisible(trees)
}

// ApplyTuning folds live-adjustable knobs into the running scene. Nil
// fields are left alone.
func (s *Scene) ApplyTuning(t config.Tuning) {
	if t.GrassVisible != nil {
		s.grass.SetVisible(*t.GrassVisible)
	}
	if t.TreesVisible != nil {
		s.trees.SetVisible(*t.TreesVisible)
	}
	if t.WindSpeed != nil && *t.WindSpeed >= 0 {
		s.anim.WindSpeed = *t.WindSpeed
	}
	if t.WindStrength != nil && *t.WindStrength >= 0 {
		s.anim.WindStrength = *t.WindStrength
	}
	if t.MoveSpeed != nil {
		s.character.SetMoveSpeed(*t.MoveSpeed)
	}
	if t.TimeOfDay != nil {
		s.cycle.SetHour(*t.TimeOfDay)
		s.skyState = s.cycle.State()
	}
	if t.DayLength != nil {
		s.cycle.SetDayLength(t.DayLength.Duration)
	}
}

func (s *Scene) Seed() int64 { return s.seed }

func (s *Scene) Layout() Layout { return s.layout }

func (s *Scene) Grass() *flora.Field { return s.grass }

func (s *Scene) Trees() *flora.Field { return s.trees }

// TreeMeshes returns the pine variants; instance i renders variant
// i modulo the variant count.
func (s *Scene) TreeMeshes() []*geom.TriMesh { return s.treeMeshes }

func (s *Scene) AnimationParams() flora.AnimationParams { return s.anim }

func (s *Scene) Input() *sim.InputState { return s.input }

func (s *Scene) Character() *sim.Character { return s.character }

func (s *Scene) Elapsed() float32 { return s.elapsed }
