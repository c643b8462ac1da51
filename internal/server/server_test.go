package server

import (
	"context"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"glade/internal/config"
	"glade/internal/protocol"
	"glade/internal/scene"
)

func startTestServer(t *testing.T, cfg *config.Config) (*Server, *httptest.Server) {
	t.Helper()
	srv, err := New(cfg, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	srv.startLoop(ctx)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		srv.wg.Wait()
	})
	return srv, ts
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	return conn
}

func sendEnvelope(t *testing.T, conn *websocket.Conn, typ protocol.MessageType, payload interface{}) {
	t.Helper()
	env, err := protocol.NewEnvelope(typ, 0, payload)
	if err != nil {
		t.Fatalf("encode %s: %v", typ, err)
	}
	data, err := protocol.Encode(env)
	if err != nil {
		t.Fatalf("encode %s: %v", typ, err)
	}
	conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// waitForMessage reads until a message of the wanted type arrives, skipping
// the frame and event traffic the tick loop produces on its own.
func waitForMessage(t *testing.T, conn *websocket.Conn, want protocol.MessageType) protocol.Envelope {
	t.Helper()
	for {
		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		env, err := protocol.Decode(data)
		if err != nil {
			t.Fatalf("decode while waiting for %s: %v", want, err)
		}
		if env.Type == want {
			return env
		}
	}
}

func helloAsPilot(t *testing.T, conn *websocket.Conn, name string) {
	t.Helper()
	sendEnvelope(t, conn, protocol.MessageHello, protocol.Hello{Name: name, Mode: protocol.ModePilot})
}

func TestServerHelloGrantsPilotAndSceneInit(t *testing.T) {
	_, ts := startTestServer(t, testServerConfig())
	conn := dialWS(t, ts)
	defer conn.Close()

	helloAsPilot(t, conn, "ada")

	var ctl protocol.Control
	env := waitForMessage(t, conn, protocol.MessageControl)
	if err := env.DecodePayload(&ctl); err != nil {
		t.Fatalf("decode control: %v", err)
	}
	if ctl.Role != protocol.ModePilot || !ctl.Piloted {
		t.Fatalf("control = %+v, want pilot role with a piloted scene", ctl)
	}

	var init protocol.SceneInit
	env = waitForMessage(t, conn, protocol.MessageSceneInit)
	if err := env.DecodePayload(&init); err != nil {
		t.Fatalf("decode sceneInit: %v", err)
	}
	if init.Seed != 21 || init.TickRate != 100 {
		t.Fatalf("init seed/tickRate = %d/%d, want 21/100", init.Seed, init.TickRate)
	}
	if init.Grass.Count != 200 || init.Trees.Count != 4 {
		t.Fatalf("init instance counts = %d/%d, want 200/4", init.Grass.Count, init.Trees.Count)
	}
	if len(init.TreeMeshes) == 0 || len(init.BladeMesh.Positions) == 0 {
		t.Fatalf("init is missing geometry")
	}
	if init.Frame.Remaining != 3 {
		t.Fatalf("init frame remaining = %d, want 3", init.Frame.Remaining)
	}
}

func TestServerPilotDrivesCharacter(t *testing.T) {
	_, ts := startTestServer(t, testServerConfig())
	conn := dialWS(t, ts)
	defer conn.Close()

	helloAsPilot(t, conn, "")
	waitForMessage(t, conn, protocol.MessageSceneInit)

	sendEnvelope(t, conn, protocol.MessageStart, nil)
	sendEnvelope(t, conn, protocol.MessageInput, protocol.Input{
		Keys: []protocol.KeyState{{Key: "forward", Down: true}},
	})

	deadline := time.Now().Add(4 * time.Second)
	for time.Now().Before(deadline) {
		env := waitForMessage(t, conn, protocol.MessageFrame)
		var frame scene.Frame
		if err := env.DecodePayload(&frame); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		if frame.Character.Active && frame.Character.Position[2] > 0.5 {
			return
		}
	}
	t.Fatalf("character never moved forward")
}

func TestServerSecondPilotObservesThenInherits(t *testing.T) {
	_, ts := startTestServer(t, testServerConfig())
	first := dialWS(t, ts)
	defer first.Close()
	second := dialWS(t, ts)
	defer second.Close()

	helloAsPilot(t, first, "one")
	waitForMessage(t, first, protocol.MessageSceneInit)

	helloAsPilot(t, second, "two")
	var ctl protocol.Control
	env := waitForMessage(t, second, protocol.MessageControl)
	if err := env.DecodePayload(&ctl); err != nil {
		t.Fatalf("decode control: %v", err)
	}
	if ctl.Role != protocol.ModeObserver || !ctl.Piloted {
		t.Fatalf("second session control = %+v, want observer of a piloted scene", ctl)
	}

	first.Close()
	for {
		env = waitForMessage(t, second, protocol.MessageControl)
		if err := env.DecodePayload(&ctl); err != nil {
			t.Fatalf("decode control: %v", err)
		}
		if ctl.Role == protocol.ModePilot {
			break
		}
	}
}

func TestServerObserverCannotSteer(t *testing.T) {
	_, ts := startTestServer(t, testServerConfig())
	pilot := dialWS(t, ts)
	defer pilot.Close()
	observer := dialWS(t, ts)
	defer observer.Close()

	helloAsPilot(t, pilot, "one")
	waitForMessage(t, pilot, protocol.MessageSceneInit)
	sendEnvelope(t, observer, protocol.MessageHello, protocol.Hello{Mode: protocol.ModeObserver})
	waitForMessage(t, observer, protocol.MessageSceneInit)

	sendEnvelope(t, observer, protocol.MessageStart, nil)
	env := waitForMessage(t, observer, protocol.MessageError)
	var perr protocol.ErrorPayload
	if err := env.DecodePayload(&perr); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if !strings.Contains(perr.Message, "pilot") {
		t.Fatalf("error message %q does not name the pilot restriction", perr.Message)
	}
}

func TestServerSetVisibleBroadcasts(t *testing.T) {
	_, ts := startTestServer(t, testServerConfig())
	conn := dialWS(t, ts)
	defer conn.Close()

	helloAsPilot(t, conn, "")
	waitForMessage(t, conn, protocol.MessageSceneInit)

	sendEnvelope(t, conn, protocol.MessageSetVisible, protocol.SetVisible{Grass: 50, Trees: 2})
	env := waitForMessage(t, conn, protocol.MessageVisible)
	var vis protocol.Visible
	if err := env.DecodePayload(&vis); err != nil {
		t.Fatalf("decode visible: %v", err)
	}
	if vis.Grass != 50 || vis.Trees != 2 {
		t.Fatalf("visible = %+v, want 50 grass and 2 trees", vis)
	}
}

func TestServerTuningRoundTrip(t *testing.T) {
	srv, ts := startTestServer(t, testServerConfig())
	conn := dialWS(t, ts)
	defer conn.Close()

	helloAsPilot(t, conn, "")
	waitForMessage(t, conn, protocol.MessageSceneInit)

	wind := float32(3)
	sendEnvelope(t, conn, protocol.MessageTuning, protocol.Tuning{WindSpeed: &wind})
	env := waitForMessage(t, conn, protocol.MessageTuning)
	var tuning protocol.Tuning
	if err := env.DecodePayload(&tuning); err != nil {
		t.Fatalf("decode tuning: %v", err)
	}
	if tuning.WindSpeed == nil || *tuning.WindSpeed != 3 {
		t.Fatalf("tuning echo = %+v, want windSpeed 3", tuning)
	}

	cfg := testServerConfig()
	cfg.Grass.WindStrength = 0.33
	srv.ApplyConfig(cfg)
	env = waitForMessage(t, conn, protocol.MessageTuning)
	if err := env.DecodePayload(&tuning); err != nil {
		t.Fatalf("decode reload tuning: %v", err)
	}
	if tuning.WindStrength == nil || *tuning.WindStrength != 0.33 {
		t.Fatalf("reload tuning = %+v, want windStrength 0.33", tuning)
	}
}

func TestServerSessionLimit(t *testing.T) {
	cfg := testServerConfig()
	cfg.Server.MaxSessions = 1
	_, ts := startTestServer(t, cfg)

	first := dialWS(t, ts)
	defer first.Close()
	helloAsPilot(t, first, "")
	waitForMessage(t, first, protocol.MessageSceneInit)

	second := dialWS(t, ts)
	defer second.Close()
	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := second.ReadMessage()
	if err == nil {
		t.Fatalf("expected the second session to be refused")
	}
	if !websocket.IsCloseError(err, websocket.CloseTryAgainLater) {
		t.Fatalf("close error = %v, want try again later", err)
	}
}

func TestServerHealthEndpoint(t *testing.T) {
	_, ts := startTestServer(t, testServerConfig())
	resp, err := ts.Client().Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("healthz status = %d, want 200", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read healthz body: %v", err)
	}
	if !strings.Contains(string(body), `"status":"ok"`) {
		t.Fatalf("healthz body = %s", body)
	}
}
