// Package sky advances the scene clock and derives per-frame lighting: sun
// direction, intensity and the palette colors the renderer clears with.
package sky

import (
	"time"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/lucasb-eyer/go-colorful"
)

// Phase labels the coarse part of the day a given hour belongs to.
type Phase string

const (
	PhaseDawn  Phase = "dawn"
	PhaseDay   Phase = "day"
	PhaseDusk  Phase = "dusk"
	PhaseNight Phase = "night"
)

// Config controls how fast the scene clock runs and where it starts.
type Config struct {
	DayLength time.Duration
	StartHour float32
}

// State is the lighting snapshot for one frame. SunDirection points the way
// the light travels, so a surface lit head on satisfies dot(normal, -dir) > 0.
type State struct {
	Hour         float32
	Phase        Phase
	SunDirection mgl32.Vec3
	SunIntensity float32
	SkyColor     mgl32.Vec3
	HorizonColor mgl32.Vec3
	AmbientColor mgl32.Vec3
}

type paletteStop struct {
	hour    float32
	sky     colorful.Color
	horizon colorful.Color
	ambient colorful.Color
}

// Cycle is the scene clock. Step drives it forward and reports the lighting
// for the new time; it never blocks and is safe to call with a zero delta.
type Cycle struct {
	dayLength time.Duration
	hour      float32
	stops     []paletteStop
}

func NewCycle(cfg Config) *Cycle {
	if cfg.DayLength <= 0 {
		cfg.DayLength = 10 * time.Minute
	}
	if cfg.StartHour == 0 {
		cfg.StartHour = 9
	}
	return &Cycle{
		dayLength: cfg.DayLength,
		hour:      wrapHour(cfg.StartHour),
		stops:     defaultPalette(),
	}
}

func defaultPalette() []paletteStop {
	return []paletteStop{
		{hour: 0, sky: hexColor("#0b1026"), horizon: hexColor("#1a2340"), ambient: hexColor("#2a3354")},
		{hour: 6, sky: hexColor("#6f86b8"), horizon: hexColor("#f2a65e"), ambient: hexColor("#9a8fb0")},
		{hour: 12, sky: hexColor("#87ceeb"), horizon: hexColor("#cfe8f5"), ambient: hexColor("#e8f2d8")},
		{hour: 19, sky: hexColor("#4a4a7a"), horizon: hexColor("#f07f4e"), ambient: hexColor("#8a7a9a")},
		{hour: 22, sky: hexColor("#0b1026"), horizon: hexColor("#1a2340"), ambient: hexColor("#2a3354")},
	}
}

func hexColor(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		// Magenta marks a bad palette literal without taking the scene down.
		return colorful.Color{R: 1, G: 0, B: 1}
	}
	return c
}

// Step advances the clock by a real-time delta scaled so one full day spans
// the configured day length, then returns the lighting state.
func (c *Cycle) Step(delta time.Duration) State {
	if delta > 0 && c.dayLength > 0 {
		c.hour = wrapHour(c.hour + float32(delta.Seconds()/c.dayLength.Seconds()*24))
	}
	return c.compute()
}

// State reports the current lighting without advancing the clock.
func (c *Cycle) State() State {
	return c.compute()
}

// SetHour jumps the clock, wrapping into [0, 24). Used by tuning updates.
func (c *Cycle) SetHour(hour float32) {
	c.hour = wrapHour(hour)
}

// SetDayLength rescales how fast the clock runs. Values <= 0 are ignored.
func (c *Cycle) SetDayLength(d time.Duration) {
	if d > 0 {
		c.dayLength = d
	}
}

func (c *Cycle) compute() State {
	progress := c.hour / 24
	orbit := 2 * math32.Pi * math32.Mod(progress+0.75, 1)
	sin, cos := math32.Sincos(orbit)
	sunPos := mgl32.Vec3{cos, sin, 0.25}.Normalize()

	skyCol, horizonCol, ambientCol := c.palette(c.hour)
	return State{
		Hour:         c.hour,
		Phase:        phaseForHour(c.hour),
		SunDirection: sunPos.Mul(-1),
		SunIntensity: mgl32.Clamp((sin+0.1)/1.1, 0, 1),
		SkyColor:     skyCol,
		HorizonColor: horizonCol,
		AmbientColor: ambientCol,
	}
}

func (c *Cycle) palette(hour float32) (sky, horizon, ambient mgl32.Vec3) {
	stops := c.stops
	i := len(stops) - 1
	for j, s := range stops {
		if hour >= s.hour {
			i = j
		} else {
			break
		}
	}
	a := stops[i]
	b := stops[(i+1)%len(stops)]

	span := b.hour - a.hour
	if span <= 0 {
		span += 24
	}
	t := float64(mgl32.Clamp((hour-a.hour)/span, 0, 1))

	blend := func(x, y colorful.Color) mgl32.Vec3 {
		m := x.BlendLuv(y, t).Clamped()
		return mgl32.Vec3{float32(m.R), float32(m.G), float32(m.B)}
	}
	return blend(a.sky, b.sky), blend(a.horizon, b.horizon), blend(a.ambient, b.ambient)
}

func phaseForHour(hour float32) Phase {
	switch {
	case hour >= 5 && hour < 7:
		return PhaseDawn
	case hour >= 7 && hour < 18:
		return PhaseDay
	case hour >= 18 && hour < 21:
		return PhaseDusk
	default:
		return PhaseNight
	}
}

func wrapHour(hour float32) float32 {
	hour = math32.Mod(hour, 24)
	if hour < 0 {
		hour += 24
	}
	return hour
}
