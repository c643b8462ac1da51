// Package config loads and validates the scene server configuration. A
// config file is YAML; omitted fields keep their defaults, so a minimal file
// only overrides what it cares about.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML can carry either a human-readable
// string ("90s", "2m") or a bare number of seconds.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		d.Duration = parsed
		return nil
	case float64:
		d.Duration = time.Duration(value * float64(time.Second))
		return nil
	default:
		return fmt.Errorf("invalid duration value %v", v)
	}
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, perr)
		}
		d.Duration = parsed
		return nil
	}
	var secs float64
	if err := value.Decode(&secs); err == nil {
		d.Duration = time.Duration(secs * float64(time.Second))
		return nil
	}
	return fmt.Errorf("invalid duration value %q", value.Value)
}

// Color is an RGB triple parsed from a hex string like "#2e6b1f".
type Color [3]float32

func (c Color) MarshalYAML() (interface{}, error) {
	return colorful.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2])}.Hex(), nil
}

func (c *Color) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("color must be a hex string: %w", err)
	}
	parsed, err := colorful.Hex(s)
	if err != nil {
		return fmt.Errorf("invalid color %q: %w", s, err)
	}
	*c = Color{float32(parsed.R), float32(parsed.G), float32(parsed.B)}
	return nil
}

func (c Color) Vec3() mgl32.Vec3 {
	return mgl32.Vec3{c[0], c[1], c[2]}
}

type Config struct {
	Server    Server    `yaml:"server"`
	World     World     `yaml:"world"`
	Grass     Grass     `yaml:"grass"`
	Trees     Trees     `yaml:"trees"`
	Character Character `yaml:"character"`
	Camera    Camera    `yaml:"camera"`
	Orbs      Orbs      `yaml:"orbs"`
	Particles Particles `yaml:"particles"`
	Sky       Sky       `yaml:"sky"`
}

type Server struct {
	Listen        string   `yaml:"listen"`
	TickRate      int      `yaml:"tick_rate"`
	SnapshotEvery int      `yaml:"snapshot_every"`
	WriteTimeout  Duration `yaml:"write_timeout"`
	MaxSessions   int      `yaml:"max_sessions"`
}

type World struct {
	FieldHalf float32    `yaml:"field_half"`
	Seed      int64      `yaml:"seed"`
	Pond      CircleZone `yaml:"pond"`
	Rock      BoxZone    `yaml:"rock"`
	Spawn     [3]float32 `yaml:"spawn"`
}

type CircleZone struct {
	X      float32 `yaml:"x"`
	Z      float32 `yaml:"z"`
	Radius float32 `yaml:"radius"`
}

type BoxZone struct {
	X     float32 `yaml:"x"`
	Z     float32 `yaml:"z"`
	HalfX float32 `yaml:"half_x"`
	HalfY float32 `yaml:"half_y"`
	HalfZ float32 `yaml:"half_z"`
}

type Grass struct {
	Count            int     `yaml:"count"`
	ScaleMin         float32 `yaml:"scale_min"`
	ScaleMax         float32 `yaml:"scale_max"`
	BaseColor        Color   `yaml:"base_color"`
	TipColor         Color   `yaml:"tip_color"`
	BrightnessJitter float32 `yaml:"brightness_jitter"`
	PatchSpan        float32 `yaml:"patch_span"`
	PatchFrequency   float32 `yaml:"patch_frequency"`
	Margin           float32 `yaml:"margin"`
	WindSpeed        float32 `yaml:"wind_speed"`
	WindStrength     float32 `yaml:"wind_strength"`
	PushRadius       float32 `yaml:"push_radius"`
	PushStrength     float32 `yaml:"push_strength"`
}

type Trees struct {
	Count    int     `yaml:"count"`
	Variants int     `yaml:"variants"`
	ScaleMin float32 `yaml:"scale_min"`
	ScaleMax float32 `yaml:"scale_max"`
	Margin   float32 `yaml:"margin"`
}

type Character struct {
	MoveSpeed   float32 `yaml:"move_speed"`
	Damping     float32 `yaml:"damping"`
	JumpSpeed   float32 `yaml:"jump_speed"`
	Gravity     float32 `yaml:"gravity"`
	HoverHeight float32 `yaml:"hover_height"`
	TurnRate    float32 `yaml:"turn_rate"`
}

type Camera struct {
	Distance    float32 `yaml:"distance"`
	Height      float32 `yaml:"height"`
	LookHeight  float32 `yaml:"look_height"`
	PointerSens float32 `yaml:"pointer_sens"`
	TouchSens   float32 `yaml:"touch_sens"`
	Smoothing   float32 `yaml:"smoothing"`
}

type Orbs struct {
	Count        int      `yaml:"count"`
	NormalValue  int      `yaml:"normal_value"`
	SpecialValue int      `yaml:"special_value"`
	PickupRadius float32  `yaml:"pickup_radius"`
	WinScore     int      `yaml:"win_score"`
	RespawnDelay Duration `yaml:"respawn_delay"`
	Celebration  Duration `yaml:"celebration"`
	NormalColor  Color    `yaml:"normal_color"`
	SpecialColor Color    `yaml:"special_color"`
}

type Particles struct {
	MaxParticles int `yaml:"max_particles"`
	BurstCount   int `yaml:"burst_count"`
}

type Sky struct {
	DayLength Duration `yaml:"day_length"`
	StartHour float32  `yaml:"start_hour"`
}

// Default returns the configuration the server runs with when no file is
// given. Every value here is a sane, playable baseline.
func Default() *Config {
	return &Config{
		Server: Server{
			Listen:        ":8080",
			TickRate:      60,
			SnapshotEvery: 3,
			WriteTimeout:  Duration{10 * time.Second},
			MaxSessions:   16,
		},
		World: World{
			FieldHalf: 40,
			Pond:      CircleZone{X: -10, Z: 8, Radius: 6},
			Rock:      BoxZone{X: 8, Z: -5, HalfX: 2, HalfY: 0.75, HalfZ: 1},
			Spawn:     [3]float32{0, 0, 0},
		},
		Grass: Grass{
			Count:            25000,
			ScaleMin:         0.7,
			ScaleMax:         1.3,
			BaseColor:        Color{0.18, 0.42, 0.12},
			TipColor:         Color{0.62, 0.83, 0.35},
			BrightnessJitter: 0.2,
			PatchSpan:        0.1,
			PatchFrequency:   0.08,
			Margin:           0.5,
			WindSpeed:        1.5,
			WindStrength:     0.15,
			PushRadius:       2.5,
			PushStrength:     0.8,
		},
		Trees: Trees{
			Count:    40,
			Variants: 3,
			ScaleMin: 1.2,
			ScaleMax: 2.0,
			Margin:   1.5,
		},
		Character: Character{
			MoveSpeed:   5,
			Damping:     20,
			JumpSpeed:   7,
			Gravity:     20,
			HoverHeight: 1.5,
			TurnRate:    10,
		},
		Camera: Camera{
			Distance:    6,
			Height:      2.5,
			LookHeight:  1.2,
			PointerSens: 0.002,
			TouchSens:   0.004,
			Smoothing:   15,
		},
		Orbs: Orbs{
			Count:        12,
			NormalValue:  1,
			SpecialValue: 5,
			PickupRadius: 1.2,
			WinScore:     15,
			RespawnDelay: Duration{4 * time.Second},
			Celebration:  Duration{6 * time.Second},
			NormalColor:  Color{1, 0.85, 0.25},
			SpecialColor: Color{0.4, 0.9, 1},
		},
		Particles: Particles{
			MaxParticles: 512,
			BurstCount:   24,
		},
		Sky: Sky{
			DayLength: Duration{10 * time.Minute},
			StartHour: 9,
		},
	}
}

// Load reads a YAML config file over the defaults and validates the result.
// An empty path yields the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return errors.New("server.listen must be set")
	}
	if c.Server.TickRate <= 0 {
		return errors.New("server.tick_rate must be positive")
	}
	if c.Server.SnapshotEvery <= 0 {
		return errors.New("server.snapshot_every must be positive")
	}
	if c.Server.MaxSessions <= 0 {
		return errors.New("server.max_sessions must be positive")
	}
	if c.World.FieldHalf <= 0 {
		return errors.New("world.field_half must be positive")
	}
	if c.World.Pond.Radius < 0 {
		return errors.New("world.pond.radius must not be negative")
	}
	if c.Grass.Count < 0 || c.Trees.Count < 0 {
		return errors.New("vegetation counts must not be negative")
	}
	if c.Grass.ScaleMin <= 0 || c.Grass.ScaleMax < c.Grass.ScaleMin {
		return errors.New("grass scale range is invalid")
	}
	if c.Trees.ScaleMin <= 0 || c.Trees.ScaleMax < c.Trees.ScaleMin {
		return errors.New("trees scale range is invalid")
	}
	if c.Trees.Variants < 1 {
		return errors.New("trees.variants must be at least 1")
	}
	if c.Character.MoveSpeed <= 0 {
		return errors.New("character.move_speed must be positive")
	}
	if c.Character.Damping <= 0 {
		return errors.New("character.damping must be positive")
	}
	if c.Character.Gravity <= 0 {
		return errors.New("character.gravity must be positive")
	}
	if c.Orbs.Count < 1 {
		return errors.New("orbs.count must be at least 1")
	}
	if c.Orbs.WinScore <= 0 {
		return errors.New("orbs.win_score must be positive")
	}
	if c.Orbs.PickupRadius <= 0 {
		return errors.New("orbs.pickup_radius must be positive")
	}
	if c.Particles.MaxParticles <= 0 {
		return errors.New("particles.max_particles must be positive")
	}
	if c.Sky.DayLength.Duration <= 0 {
		return errors.New("sky.day_length must be positive")
	}
	if half := c.World.FieldHalf; absf(c.World.Spawn[0]) > half || absf(c.World.Spawn[2]) > half {
		return errors.New("world.spawn must lie inside the field")
	}
	return nil
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// Tick returns the simulation step the tick rate implies.
func (c *Config) Tick() time.Duration {
	return time.Second / time.Duration(c.Server.TickRate)
}
