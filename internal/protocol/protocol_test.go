package protocol

import (
	"encoding/json"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"glade/internal/config"
	"glade/internal/flora"
	"glade/internal/scene"
)

func testScene(t *testing.T) *scene.Scene {
	t.Helper()
	cfg := config.Default()
	cfg.World.Seed = 5
	cfg.Grass.Count = 40
	cfg.Trees.Count = 3
	cfg.Trees.Variants = 2
	cfg.Orbs.Count = 4
	s, err := scene.New(cfg, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("expected scene to build, got %v", err)
	}
	return s
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env, err := NewEnvelope(MessageVisible, 42, Visible{Grass: 100, Trees: 7})
	if err != nil {
		t.Fatalf("expected envelope to build, got %v", err)
	}
	raw, err := Encode(env)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.Type != MessageVisible || back.Seq != 42 {
		t.Fatalf("expected type/seq to survive, got %s %d", back.Type, back.Seq)
	}
	var v Visible
	if err := back.DecodePayload(&v); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if v.Grass != 100 || v.Trees != 7 {
		t.Fatalf("expected payload 100/7, got %+v", v)
	}
}

func TestEmptyPayloadMessages(t *testing.T) {
	env, err := NewEnvelope(MessageStart, 1, nil)
	if err != nil {
		t.Fatalf("expected bare envelope to build, got %v", err)
	}
	if len(env.Payload) != 0 {
		t.Fatalf("expected no payload, got %s", env.Payload)
	}
	raw, err := Encode(env)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var v Visible
	if err := back.DecodePayload(&v); err == nil {
		t.Fatal("expected payload decode of a bare message to fail")
	}
}

func TestEnvelopeTimestampSet(t *testing.T) {
	before := time.Now().Add(-time.Second)
	env, err := NewEnvelope(MessageStop, 3, nil)
	if err != nil {
		t.Fatalf("expected envelope to build, got %v", err)
	}
	if env.Timestamp.Before(before) {
		t.Fatalf("expected a fresh timestamp, got %v", env.Timestamp)
	}
}

func TestNewInstanceSetFlattensAttributes(t *testing.T) {
	field := flora.NewField(flora.BladeGeometry(), []flora.Instance{
		{Position: mgl32.Vec3{1, 0, 2}, Yaw: 0.5, Scale: 1.1, Color: mgl32.Vec3{0.2, 0.4, 0.1}, Rand: 0.7},
		{Position: mgl32.Vec3{-3, 0, 4}, Yaw: 2.5, Scale: 0.8, Color: mgl32.Vec3{0.3, 0.5, 0.2}, Rand: 0.1},
	})
	set := NewInstanceSet(field)
	if set.Count != 2 || set.Visible != 2 {
		t.Fatalf("expected 2/2 instances, got %d/%d", set.Count, set.Visible)
	}
	if len(set.Positions) != 6 || len(set.Colors) != 6 {
		t.Fatalf("expected 6 position and color floats, got %d and %d",
			len(set.Positions), len(set.Colors))
	}
	if len(set.Yaws) != 2 || len(set.Scales) != 2 || len(set.Seeds) != 2 {
		t.Fatal("expected one yaw, scale and seed per instance")
	}
	if set.Positions[3] != -3 || set.Positions[5] != 4 {
		t.Fatalf("expected second instance at (-3,_,4), got %v", set.Positions[3:6])
	}
	if set.Yaws[1] != 2.5 || set.Seeds[0] != 0.7 {
		t.Fatal("expected per-instance attributes to keep their order")
	}
}

func TestNewSceneInitBundle(t *testing.T) {
	s := testScene(t)
	init := NewSceneInit(s, 60)

	if init.Seed != 5 || init.TickRate != 60 {
		t.Fatalf("expected seed 5 and tick rate 60, got %d and %d", init.Seed, init.TickRate)
	}
	if len(init.TreeMeshes) != 2 {
		t.Fatalf("expected 2 tree mesh variants, got %d", len(init.TreeMeshes))
	}
	if init.Grass.Count != 40 || init.Trees.Count != 3 {
		t.Fatalf("expected 40 grass and 3 tree instances, got %d and %d",
			init.Grass.Count, init.Trees.Count)
	}
	if len(init.BladeMesh.Positions) == 0 || len(init.BladeMesh.Indices) == 0 {
		t.Fatal("expected an indexed blade mesh")
	}
	for i, m := range init.TreeMeshes {
		if len(m.Indices) != 0 {
			t.Fatalf("expected tree variant %d to ship unindexed", i)
		}
		if len(m.Positions) == 0 || len(m.Positions) != len(m.Colors) {
			t.Fatalf("expected matching position and color buffers on variant %d", i)
		}
	}
	if len(init.Frame.Orbs) != 4 {
		t.Fatalf("expected the embedded frame to carry the orb wave, got %d", len(init.Frame.Orbs))
	}
	if init.Animation.WindSpeed != 1.5 {
		t.Fatalf("expected the animation contract in the bundle, got %+v", init.Animation)
	}

	env, err := NewEnvelope(MessageSceneInit, 1, init)
	if err != nil {
		t.Fatalf("expected init bundle to encode, got %v", err)
	}
	raw, err := Encode(env)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var out SceneInit
	if err := back.DecodePayload(&out); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if out.Seed != init.Seed || out.Grass.Count != init.Grass.Count {
		t.Fatal("expected the decoded bundle to match")
	}
	if out.Pond.Radius != init.Pond.Radius || out.Rock.Half != init.Rock.Half {
		t.Fatal("expected the ground plan to survive the round trip")
	}
}

func TestInputOmitsIdleFields(t *testing.T) {
	raw, err := json.Marshal(Input{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != "{}" {
		t.Fatalf("expected an idle input to marshal empty, got %s", raw)
	}

	full := Input{
		Keys:      []KeyState{{Key: "forward", Down: true}},
		Jump:      true,
		PointerDX: 3,
	}
	raw, err = json.Marshal(full)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"forward"`) || !strings.Contains(string(raw), `"jump":true`) {
		t.Fatalf("expected active fields present, got %s", raw)
	}
	var back Input
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(back.Keys) != 1 || !back.Keys[0].Down || back.PointerDX != 3 {
		t.Fatalf("expected input to survive the round trip, got %+v", back)
	}
}

func TestTuningCarriesOnlySetKnobs(t *testing.T) {
	wind := float32(0.3)
	raw, err := json.Marshal(Tuning{WindStrength: &wind})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "grassVisible") {
		t.Fatalf("expected unset knobs omitted, got %s", raw)
	}
	var back config.Tuning
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.WindStrength == nil || *back.WindStrength != 0.3 {
		t.Fatalf("expected wind strength 0.3, got %v", back.WindStrength)
	}
	if back.MoveSpeed != nil {
		t.Fatal("expected untouched knobs to stay nil")
	}
}
