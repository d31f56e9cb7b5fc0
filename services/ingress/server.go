package ingress

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/Masterminds/semver"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"

	"ledswarm-go/bus"
	"ledswarm-go/protocol"
	"ledswarm-go/types"
	"ledswarm-go/x/mathx"
)

// MaxLen caps every client message, HTTP body or WebSocket frame.
const MaxLen = 256

// Version is the firmware version reported by the root document.
var Version = semver.MustParse("0.1.0")

const (
	msgTooBig    = "Request too big"
	msgJSONError = "JSON error"
)

type Config struct {
	Addr string
	// LogRequests enables chi's request logger.
	LogRequests bool
	// Intensity is greeted to WebSocket clients until the first mesh state.
	Intensity float32
}

// RootDocument is served on GET /.
type RootDocument struct {
	Version string `json:"version"`
	Mode    string `json:"mode"`
}

type Server struct {
	cfg  Config
	conn *bus.Connection
	sub  *bus.Subscription

	mu    sync.Mutex
	state types.MeshState
	seen  bool

	upgrader websocket.Upgrader
	router   chi.Router
}

// NewServer builds the router and subscribes to mesh/state. Call Start (or
// Run) to begin tracking state.
func NewServer(cfg Config, conn *bus.Connection) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":80"
	}
	cfg.Intensity = mathx.Clamp01(cfg.Intensity)
	s := &Server{
		cfg:  cfg,
		conn: conn,
		sub:  conn.Subscribe(types.TopicMeshState),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if s.cfg.LogRequests {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	r.Get("/", s.root)
	r.Post("/message", s.message)
	r.Get("/ws", s.websocket)
	return r
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.router }

// Start tracks mesh/state until ctx is done.
func (s *Server) Start(ctx context.Context) {
	go s.track(ctx)
}

func (s *Server) track(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.conn.Unsubscribe(s.sub)
			return
		case m, ok := <-s.sub.Channel():
			if !ok {
				return
			}
			if st, ok := m.Payload.(types.MeshState); ok {
				s.mu.Lock()
				s.state, s.seen = st, true
				s.mu.Unlock()
			}
		}
	}
}

// Snapshot returns the last mesh state seen and whether there was one.
func (s *Server) Snapshot() (types.MeshState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.seen
}

// Run serves HTTP on cfg.Addr until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	s.Start(ctx)
	srv := &http.Server{Addr: s.cfg.Addr, Handler: s.router}
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()
	println("[ingress] listening on", s.cfg.Addr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		<-done
		return nil
	}
	return err
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	st, ok := s.Snapshot()
	mode := st.Mode
	if !ok {
		mode = "Booting"
	}
	render.JSON(w, r, RootDocument{Version: Version.String(), Mode: mode})
}

func (s *Server) message(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > MaxLen {
		tooBig(w, r)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxLen+1))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.PlainText(w, r, msgJSONError)
		return
	}
	if len(body) > MaxLen {
		tooBig(w, r)
		return
	}
	f, err := protocol.ParseClientJSON(body)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.PlainText(w, r, msgJSONError)
		return
	}
	s.forward(f)
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]bool{"ok": true})
}

func tooBig(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusRequestEntityTooLarge)
	render.PlainText(w, r, msgTooBig)
}

func (s *Server) forward(f protocol.Frame) {
	s.conn.Publish(s.conn.NewMessage(types.TopicIngress, f, false))
}

// greeting is the current intensity as a client SetBrightness command.
func (s *Server) greeting() []byte {
	v := s.cfg.Intensity
	if st, ok := s.Snapshot(); ok {
		v = st.Intensity
	}
	b, err := protocol.MarshalClientJSON(protocol.SetBrightness(mathx.Round(v, 2)))
	if err != nil {
		return nil
	}
	return b
}

func (s *Server) websocket(w http.ResponseWriter, r *http.Request) {
	c, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Print("[ingress] upgrade: ", err)
		return
	}
	defer c.Close()

	if g := s.greeting(); g != nil {
		if err := c.WriteMessage(websocket.TextMessage, g); err != nil {
			return
		}
	}

	for {
		mt, rd, err := c.NextReader()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Print("[ingress] read: ", err)
			}
			return
		}
		msg, err := io.ReadAll(io.LimitReader(rd, MaxLen+1))
		if err != nil {
			return
		}
		if len(msg) > MaxLen {
			_ = c.WriteMessage(websocket.TextMessage, []byte(msgTooBig))
			_ = c.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseMessageTooBig, ""))
			return
		}
		// Some clients send C strings.
		msg = bytes.TrimRight(msg, "\x00")

		f, err := protocol.ParseClientJSON(msg)
		if err != nil {
			if werr := c.WriteMessage(websocket.TextMessage, []byte(msgJSONError)); werr != nil {
				return
			}
			continue
		}
		s.forward(f)
		if err := c.WriteMessage(mt, msg); err != nil {
			return
		}
	}
}
