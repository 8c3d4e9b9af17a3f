// Package observer serves read-only station state to local dashboards
// over HTTP bootstrap plus a websocket push stream.
package observer

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"swarmstation.dev/internal/observerproto"
	"swarmstation.dev/internal/protocol"
	"swarmstation.dev/internal/sim/station"
)

type WorldInfo struct {
	TickRateHz int
	Width      int
	Height     int
	Seed       int64
}

type Server struct {
	station *station.Station
	info    WorldInfo
	log     *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(st *station.Station, info WorldInfo, logger *log.Logger) *Server {
	return &Server{
		station: st,
		info:    info,
		log:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			StationID:       "",
			Tick:            s.station.CurrentTick(),
			StationPos:      s.station.Pos(),
			WorldParams: observerproto.WorldParams{
				TickRateHz: s.info.TickRateHz,
				Width:      s.info.Width,
				Height:     s.info.Height,
				Seed:       s.info.Seed,
			},
		}
		if st, err := s.station.State(); err == nil {
			resp.StationID = st.ID
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var sub observerproto.SubscribeMsg
		if err := json.Unmarshal(msg, &sub); err != nil {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad subscribe"), time.Now().Add(time.Second))
			return
		}
		if sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}
		normalizeSubscribe(&sub)

		sid := uuid.NewString()
		if s.log != nil {
			s.log.Printf("[observer] session %s from %s", sid, r.RemoteAddr)
		}

		// Reader goroutine: consume SUBSCRIBE updates, detect close.
		cadence := make(chan int, 1)
		readerDone := make(chan struct{})
		go func() {
			defer close(readerDone)
			for {
				_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
				_, msg, err := conn.ReadMessage()
				if err != nil {
					return
				}
				var sub observerproto.SubscribeMsg
				if err := json.Unmarshal(msg, &sub); err != nil {
					continue
				}
				if sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
					continue
				}
				normalizeSubscribe(&sub)
				select {
				case cadence <- sub.EveryTicks:
				default:
				}
			}
		}()

		interval := s.pushInterval(sub.EveryTicks)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-readerDone:
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
				return
			case every := <-cadence:
				ticker.Reset(s.pushInterval(every))
			case <-ticker.C:
				st, err := s.station.State()
				if err != nil {
					return
				}
				frame := stateFrame(sid, st)
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteJSON(frame); err != nil {
					return
				}
			}
		}
	}
}

func (s *Server) pushInterval(everyTicks int) time.Duration {
	hz := s.info.TickRateHz
	if hz <= 0 {
		hz = 10
	}
	return time.Second / time.Duration(hz) * time.Duration(everyTicks)
}

func stateFrame(sid string, st station.State) observerproto.StateMsg {
	snap := protocol.SnapshotFromTables(st.Tick, st.Ledger.Energy, st.Ledger.Minerals, st.Ledger.Science)
	return observerproto.StateMsg{
		Type:            observerproto.TypeState,
		ProtocolVersion: observerproto.Version,
		SessionID:       sid,
		Tick:            st.Tick,
		Stock:           st.Stock,
		Robots:          st.Robots,
		Energy:          snap.Energy,
		Minerals:        snap.Minerals,
		Science:         snap.Science,
		QueueLen:        st.QueueLen,
		KnownCells:      st.KnownCells,
		KnowledgeVersion: st.KnowledgeVersion,
	}
}

func normalizeSubscribe(sub *observerproto.SubscribeMsg) {
	if sub.EveryTicks <= 0 {
		sub.EveryTicks = 10
	}
	if sub.EveryTicks > 600 {
		sub.EveryTicks = 600
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
