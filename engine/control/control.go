// Package control serves a websocket JSON channel that drives a scene from outside the viewer:
// switching generators, uploading PPM images, setting the spin and reading status.
package control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-luv/common"
	"github.com/Carmen-Shannon/oxy-luv/engine/generator"
	"github.com/Carmen-Shannon/oxy-luv/engine/loader"
	"github.com/Carmen-Shannon/oxy-luv/engine/logger"
	"github.com/Carmen-Shannon/oxy-luv/engine/scene"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrApplyTimeout is reported when the render loop does not apply a generator swap in time.
var ErrApplyTimeout = errors.New("control: generator swap not applied in time")

// Server is the websocket control endpoint for one scene.
type Server interface {
	// ServeHTTP upgrades the request to a websocket and serves it until the client disconnects.
	http.Handler

	// Start listens on addr and serves in the background.
	//
	// Parameters:
	//   - addr: the TCP address, for example 127.0.0.1:8765
	//
	// Returns:
	//   - error: the listener could not be opened
	Start(addr string) error

	// Addr returns the listening address, or nil before Start.
	Addr() net.Addr

	// Close stops the listener and disconnects every client.
	Close() error

	// Broadcast sends the current status to every connected client.
	Broadcast()

	// Clients returns the number of connected clients.
	Clients() int
}

type server struct {
	mu *sync.Mutex

	scene        scene.Scene
	params       generator.Params
	img          *common.ImageBuffer
	selected     string
	fps          func() float64
	applyTimeout time.Duration

	upgrader websocket.Upgrader
	httpSrv  *http.Server
	listener net.Listener

	clientsMu *sync.RWMutex
	clients   map[*websocket.Conn]*sync.Mutex
}

var _ Server = &server{}

// NewServer creates a control server for s.
//
// Parameters:
//   - s: the scene the server drives
//   - options: variadic list of ServerBuilderOption functions
//
// Returns:
//   - Server: the server, not yet listening
func NewServer(s scene.Scene, options ...ServerBuilderOption) Server {
	srv := &server{
		mu:           &sync.Mutex{},
		scene:        s,
		fps:          func() float64 { return 0 },
		applyTimeout: 10 * time.Second,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clientsMu: &sync.RWMutex{},
		clients:   make(map[*websocket.Conn]*sync.Mutex),
	}
	for _, opt := range options {
		opt(srv)
	}
	return srv
}

func (s *server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("control listen %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/", s)

	s.mu.Lock()
	s.listener = ln
	s.httpSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	httpSrv := s.httpSrv
	s.mu.Unlock()

	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("control server stopped", zap.Error(err))
		}
	}()
	logger.Info("control server listening", zap.String("addr", ln.Addr().String()))
	return nil
}

func (s *server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *server) Close() error {
	s.mu.Lock()
	httpSrv := s.httpSrv
	s.httpSrv, s.listener = nil, nil
	s.mu.Unlock()

	var err error
	if httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		err = httpSrv.Shutdown(ctx)
	}

	// Hijacked websocket connections are not tracked by the http server.
	s.clientsMu.Lock()
	for conn := range s.clients {
		conn.Close()
	}
	s.clients = make(map[*websocket.Conn]*sync.Mutex)
	s.clientsMu.Unlock()
	return err
}

func (s *server) Clients() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	connMutex := &sync.Mutex{}
	s.clientsMu.Lock()
	s.clients[conn] = connMutex
	s.clientsMu.Unlock()
	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, conn)
		s.clientsMu.Unlock()
	}()

	s.send(conn, connMutex, s.status())

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				logger.Debug("websocket read ended", zap.Error(err))
			}
			return
		}

		changed, errs := s.handle(req)
		for _, err := range errs {
			s.send(conn, connMutex, Reply{Type: ReplyError, Error: err.Error()})
		}
		if changed {
			s.Broadcast()
		} else if req.Status || len(errs) == 0 {
			s.send(conn, connMutex, s.status())
		}
	}
}

// handle applies req to the scene. It reports whether anything changed and every error, in order.
func (s *server) handle(req Request) (bool, []error) {
	var errs []error
	changed := false

	if req.Spin != nil {
		s.scene.SetSpin(common.Vec3(*req.Spin))
		changed = true
	}

	imageChanged := false
	if req.PPM != "" {
		img, err := loader.ParsePPM([]byte(req.PPM))
		if err != nil {
			// The image-driven generators fall back to their synthetic variant.
			errs = append(errs, fmt.Errorf("ppm: %w", err))
		}
		s.mu.Lock()
		s.img = img
		s.mu.Unlock()
		imageChanged = true
	}

	name := req.Generator
	if name == "" && imageChanged {
		switch selected := s.selection(); selected {
		case generator.NameLUVImage, generator.NameRGBCube:
			name = selected
		}
	}
	if name == "" {
		return changed, errs
	}

	if err := s.apply(name, req.Params); err != nil {
		errs = append(errs, err)
		return changed, errs
	}
	return true, errs
}

// apply builds the named generator and waits for the scene to swap to it.
func (s *server) apply(name string, p generator.Params) error {
	s.mu.Lock()
	s.params.GridSize = common.Coalesce(p.GridSize, s.params.GridSize)
	s.params.BitDepth = common.Coalesce(p.BitDepth, s.params.BitDepth)
	s.params.Count = common.Coalesce(p.Count, s.params.Count)
	params, img := s.params, s.img
	s.mu.Unlock()

	g, err := generator.New(name, params, img)
	if err != nil {
		return err
	}

	timer := time.NewTimer(s.applyTimeout)
	defer timer.Stop()
	select {
	case err := <-s.scene.SetGenerator(g):
		if err != nil {
			return err
		}
	case <-timer.C:
		return ErrApplyTimeout
	}

	s.mu.Lock()
	s.selected = name
	s.mu.Unlock()
	return nil
}

// selection returns the generator name last requested. An image generator without an image
// reports its fallback's name, so the scene status is only consulted before the first request.
func (s *server) selection() string {
	s.mu.Lock()
	selected := s.selected
	s.mu.Unlock()
	if selected != "" {
		return selected
	}
	return s.scene.Status().Generator
}

func (s *server) status() Reply {
	st := s.scene.Status()
	return Reply{Type: ReplyStatus, Generator: st.Generator, Points: st.Points, FPS: s.fps()}
}

func (s *server) Broadcast() {
	reply := s.status()

	s.clientsMu.RLock()
	var failed []*websocket.Conn
	for conn, connMutex := range s.clients {
		if err := s.write(conn, connMutex, reply); err != nil {
			failed = append(failed, conn)
		}
	}
	s.clientsMu.RUnlock()

	if len(failed) > 0 {
		s.clientsMu.Lock()
		for _, conn := range failed {
			delete(s.clients, conn)
			conn.Close()
		}
		s.clientsMu.Unlock()
	}
}

func (s *server) send(conn *websocket.Conn, connMutex *sync.Mutex, reply Reply) {
	if err := s.write(conn, connMutex, reply); err != nil {
		logger.Debug("websocket write failed", zap.Error(err))
	}
}

// write serializes writes per connection; gorilla connections allow one concurrent writer.
func (s *server) write(conn *websocket.Conn, connMutex *sync.Mutex, reply Reply) error {
	connMutex.Lock()
	defer connMutex.Unlock()
	return conn.WriteJSON(reply)
}
