// Package protocol defines the websocket message surface between the scene
// server and its renderers. Every message is one JSON Envelope; payload
// structs keep renderer-friendly camelCase tags and flat numeric buffers.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"glade/internal/config"
	"glade/internal/flora"
	"glade/internal/geom"
	"glade/internal/scene"
)

type MessageType string

const (
	// Client to server.
	MessageHello      MessageType = "hello"
	MessageInput      MessageType = "input"
	MessageStart      MessageType = "start"
	MessageStop       MessageType = "stop"
	MessageSetVisible MessageType = "setVisible"
	MessageTuning     MessageType = "tuning"

	// Server to client.
	MessageSceneInit MessageType = "sceneInit"
	MessageFrame     MessageType = "frame"
	MessageEvent     MessageType = "event"
	MessageVisible   MessageType = "visible"
	MessageControl   MessageType = "control"
	MessageError     MessageType = "error"
)

type Envelope struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Seq       uint64          `json:"seq"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope wraps a payload struct. A nil payload produces an empty body,
// which start/stop use.
func NewEnvelope(t MessageType, seq uint64, payload interface{}) (Envelope, error) {
	env := Envelope{Type: t, Timestamp: time.Now().UTC(), Seq: seq}
	if payload == nil {
		return env, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", t, err)
	}
	env.Payload = raw
	return env, nil
}

func Encode(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

func Decode(data []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(data, &env)
	return env, err
}

// DecodePayload unmarshals the envelope body into a payload struct.
func (e Envelope) DecodePayload(into interface{}) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s message has no payload", e.Type)
	}
	return json.Unmarshal(e.Payload, into)
}

// Hello is the first client message on a fresh connection.
type Hello struct {
	Name string `json:"name,omitempty"`
	Mode string `json:"mode"`
}

const (
	ModePilot    = "pilot"
	ModeObserver = "observer"
)

// Control tells a client which role it ended up with. Only one pilot drives
// at a time; later pilots join as observers until the seat frees up.
type Control struct {
	Role    string `json:"role"`
	Piloted bool   `json:"piloted"`
}

// Input carries accumulated control state from the pilot. Key edges are
// explicit so a lost packet cannot wedge a key down forever on its own.
type Input struct {
	Keys      []KeyState `json:"keys,omitempty"`
	Jump      bool       `json:"jump,omitempty"`
	PointerDX float32    `json:"pointerDx,omitempty"`
	PointerDY float32    `json:"pointerDy,omitempty"`
	TouchDX   float32    `json:"touchDx,omitempty"`
	TouchDY   float32    `json:"touchDy,omitempty"`
}

type KeyState struct {
	Key  string `json:"key"`
	Down bool   `json:"down"`
}

// SetVisible asks for new vegetation draw counts; Visible reports what the
// scene actually applied after clamping.
type SetVisible struct {
	Grass int `json:"grass"`
	Trees int `json:"trees"`
}

type Visible struct {
	Grass int `json:"grass"`
	Trees int `json:"trees"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// MeshPayload ships one triangle mesh as flat attribute buffers.
type MeshPayload struct {
	Positions []float32 `json:"positions"`
	Normals   []float32 `json:"normals"`
	Colors    []float32 `json:"colors"`
	Indices   []uint32  `json:"indices,omitempty"`
}

func NewMeshPayload(m *geom.TriMesh) MeshPayload {
	return MeshPayload{
		Positions: m.Positions,
		Normals:   m.Normals,
		Colors:    m.Colors,
		Indices:   m.Indices,
	}
}

// InstanceSet ships a vegetation field as parallel per-instance buffers.
// Instance i of a multi-variant field renders mesh variant i modulo the
// variant count.
type InstanceSet struct {
	Count     int       `json:"count"`
	Visible   int       `json:"visible"`
	Positions []float32 `json:"positions"`
	Yaws      []float32 `json:"yaws"`
	Scales    []float32 `json:"scales"`
	Colors    []float32 `json:"colors"`
	Seeds     []float32 `json:"seeds"`
}

func NewInstanceSet(f *flora.Field) InstanceSet {
	instances := f.Instances()
	set := InstanceSet{
		Count:     len(instances),
		Visible:   f.Visible(),
		Positions: make([]float32, 0, len(instances)*3),
		Yaws:      make([]float32, 0, len(instances)),
		Scales:    make([]float32, 0, len(instances)),
		Colors:    make([]float32, 0, len(instances)*3),
		Seeds:     make([]float32, 0, len(instances)),
	}
	for _, in := range instances {
		set.Positions = append(set.Positions, in.Position.X(), in.Position.Y(), in.Position.Z())
		set.Yaws = append(set.Yaws, in.Yaw)
		set.Scales = append(set.Scales, in.Scale)
		set.Colors = append(set.Colors, in.Color.X(), in.Color.Y(), in.Color.Z())
		set.Seeds = append(set.Seeds, in.Rand)
	}
	return set
}

type RectPayload struct {
	Center mgl32.Vec2 `json:"center"`
	Half   mgl32.Vec2 `json:"half"`
}

type CirclePayload struct {
	Center mgl32.Vec2 `json:"center"`
	Radius float32    `json:"radius"`
}

type BoxPayload struct {
	Center mgl32.Vec3 `json:"center"`
	Half   mgl32.Vec3 `json:"half"`
}

// SceneInit is the one-time static bundle a client needs before frames make
// sense: ground plan, meshes, instance buffers, the animation contract, and
// the frame the scene is currently at.
type SceneInit struct {
	Seed       int64                 `json:"seed"`
	TickRate   int                   `json:"tickRate"`
	Bounds     RectPayload           `json:"bounds"`
	Pond       CirclePayload         `json:"pond"`
	Rock       BoxPayload            `json:"rock"`
	Spawn      mgl32.Vec3            `json:"spawn"`
	BladeMesh  MeshPayload           `json:"bladeMesh"`
	TreeMeshes []MeshPayload         `json:"treeMeshes"`
	Grass      InstanceSet           `json:"grass"`
	Trees      InstanceSet           `json:"trees"`
	Animation  flora.AnimationParams `json:"animation"`
	Frame      scene.Frame           `json:"frame"`
}

// NewSceneInit assembles the init bundle from a built scene.
func NewSceneInit(s *scene.Scene, tickRate int) SceneInit {
	layout := s.Layout()
	trees := make([]MeshPayload, len(s.TreeMeshes()))
	for i, m := range s.TreeMeshes() {
		trees[i] = NewMeshPayload(m)
	}
	return SceneInit{
		Seed:       s.Seed(),
		TickRate:   tickRate,
		Bounds:     RectPayload{Center: layout.Bounds.Center, Half: layout.Bounds.Half},
		Pond:       CirclePayload{Center: layout.Pond.Center, Radius: layout.Pond.Radius},
		Rock:       BoxPayload{Center: layout.Rock.Center, Half: layout.Rock.Half},
		Spawn:      layout.Spawn,
		BladeMesh:  NewMeshPayload(s.Grass().Mesh()),
		TreeMeshes: trees,
		Grass:      NewInstanceSet(s.Grass()),
		Trees:      NewInstanceSet(s.Trees()),
		Animation:  s.AnimationParams(),
		Frame:      s.Snapshot(),
	}
}

// Tuning reuses the config type so a pilot can send exactly the knobs a
// reloaded file could.
type Tuning = config.Tuning
