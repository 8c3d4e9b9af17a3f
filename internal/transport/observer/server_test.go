package observer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"swarmstation.dev/internal/observerproto"
	"swarmstation.dev/internal/sim/grid"
	"swarmstation.dev/internal/sim/resource"
	"swarmstation.dev/internal/sim/station"
)

func startTestServer(t *testing.T) (*httptest.Server, *station.Station) {
	t.Helper()
	terrain := grid.NewTerrain(30, 30)
	st := station.New(station.Config{
		ID:           "station_obs",
		TickRateHz:   50,
		PreferredPos: grid.Position{X: 5, Y: 5},
		StartStock:   resource.Bundle{Energy: 42},
	}, terrain, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go st.Run(ctx)
	t.Cleanup(cancel)

	srv := NewServer(st, WorldInfo{TickRateHz: 50, Width: 30, Height: 30, Seed: 1}, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("/observer/v1/bootstrap", srv.BootstrapHandler())
	mux.HandleFunc("/observer/v1/ws", srv.WSHandler())
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, st
}

func TestBootstrap(t *testing.T) {
	ts, _ := startTestServer(t)

	resp, err := http.Get(ts.URL + "/observer/v1/bootstrap")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var boot observerproto.BootstrapResponse
	if err := json.NewDecoder(resp.Body).Decode(&boot); err != nil {
		t.Fatal(err)
	}
	if boot.ProtocolVersion != observerproto.Version {
		t.Fatalf("protocol version = %q", boot.ProtocolVersion)
	}
	if boot.StationID != "station_obs" {
		t.Fatalf("station id = %q", boot.StationID)
	}
	if boot.WorldParams.Width != 30 || boot.WorldParams.TickRateHz != 50 {
		t.Fatalf("world params = %+v", boot.WorldParams)
	}
}

func TestSubscribeReceivesState(t *testing.T) {
	ts, _ := startTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/observer/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sub := observerproto.SubscribeMsg{
		Type:            observerproto.TypeSubscribe,
		ProtocolVersion: observerproto.Version,
		EveryTicks:      1,
	}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatal(err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var state observerproto.StateMsg
	if err := conn.ReadJSON(&state); err != nil {
		t.Fatalf("read state: %v", err)
	}
	if state.Type != observerproto.TypeState {
		t.Fatalf("frame type = %q", state.Type)
	}
	if state.SessionID == "" {
		t.Fatal("missing session id")
	}
	if state.Stock.Energy != 42 {
		t.Fatalf("stock = %+v", state.Stock)
	}
}

func TestSubscribeRequiredFirst(t *testing.T) {
	ts, _ := startTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/observer/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"NOPE"}`)); err != nil {
		t.Fatal(err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected close after bad handshake")
	}
}
