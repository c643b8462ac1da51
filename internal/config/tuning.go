package config

// Tuning carries the knobs that may change while the scene is running,
// either from a reloaded config file or from a pilot message. Nil fields
// leave the current value untouched.
type Tuning struct {
	GrassVisible *int      `yaml:"grass_visible" json:"grassVisible,omitempty"`
	TreesVisible *int      `yaml:"trees_visible" json:"treesVisible,omitempty"`
	WindSpeed    *float32  `yaml:"wind_speed" json:"windSpeed,omitempty"`
	WindStrength *float32  `yaml:"wind_strength" json:"windStrength,omitempty"`
	MoveSpeed    *float32  `yaml:"move_speed" json:"moveSpeed,omitempty"`
	TimeOfDay    *float32  `yaml:"time_of_day" json:"timeOfDay,omitempty"`
	DayLength    *Duration `yaml:"day_length" json:"dayLength,omitempty"`
}

// TuningFrom extracts the live-adjustable subset of a full config, for use
// when a file reload should retune a running scene without rebuilding it.
func TuningFrom(c *Config) Tuning {
	wind := c.Grass.WindSpeed
	strength := c.Grass.WindStrength
	move := c.Character.MoveSpeed
	day := c.Sky.DayLength
	return Tuning{
		WindSpeed:    &wind,
		WindStrength: &strength,
		MoveSpeed:    &move,
		DayLength:    &day,
	}
}
