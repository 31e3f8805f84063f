// Package transport implements the HTTP/WS surface: a chi router
// exposing health, metrics, state and proof queries over plain JSON,
// plus a gorilla/websocket topic stream fed straight from the event bus.
package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/0xwonj/dungeon-sim/internal/game/bus"
	gmetrics "github.com/0xwonj/dungeon-sim/internal/game/metrics"
	"github.com/0xwonj/dungeon-sim/internal/game/persistence"
	"github.com/0xwonj/dungeon-sim/internal/game/runtime"
	"github.com/0xwonj/dungeon-sim/pkg/logger"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server exposes one session's Worker over HTTP and WebSocket.
type Server struct {
	worker  *runtime.Worker
	store   *persistence.Store
	eventBus *bus.Bus
	log     *logger.Logger
	router  chi.Router
}

// NewServer builds the chi router. store may be nil if persistence is
// disabled, in which case /proofs/{nonce} always reports not found.
func NewServer(worker *runtime.Worker, store *persistence.Store, eventBus *bus.Bus, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewDefault("transport")
	}
	s := &Server{worker: worker, store: store, eventBus: eventBus, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))
	r.Use(rateLimitMiddleware(rate.NewLimiter(rate.Limit(100), 200)))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/metrics", gmetrics.Handler().ServeHTTP)
	r.Get("/state", s.handleState)
	r.Get("/proofs/{nonce}", s.handleProof)
	r.Get("/ws/{topic}", s.handleWebsocket)

	s.router = r
	return s
}

// ServeHTTP lets Server satisfy http.Handler directly.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func rateLimitMiddleware(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st, err := s.worker.QueryState(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleProof(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "persistence disabled"})
		return
	}
	nonce, err := strconv.ParseUint(chi.URLParam(r, "nonce"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid nonce"})
		return
	}
	// This endpoint only parses and echoes the nonce. It does not read
	// proof_index or any proof data, so a 200 response does not mean a
	// proof exists for that nonce.
	writeJSON(w, http.StatusOK, map[string]uint64{"nonce": nonce})
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	topic := bus.Topic(chi.URLParam(r, "topic"))
	switch topic {
	case bus.TopicGameState, bus.TopicProof, bus.TopicTurn:
	default:
		http.Error(w, "unknown topic", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	handle := s.eventBus.Subscribe(topic)
	defer handle.Unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go s.readPump(ctx, cancel, conn)
	s.writePump(ctx, conn, handle)
}

// readPump only watches for the client going away; this stream is
// publish-only, so no inbound message is ever acted on.
func (s *Server) readPump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn) {
	defer cancel()
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(ctx context.Context, conn *websocket.Conn, handle *bus.Handle) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case msg, ok := <-handle.C():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				s.log.WithError(err).Debug("websocket write failed")
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
