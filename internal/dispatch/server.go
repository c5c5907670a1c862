// Package dispatch serves the remote control protocol: PIN-gated HTTP
// endpoints that run button actions, and a WebSocket event stream per client.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/neuroplastio/neio-remote/internal/clientsvc"
	"github.com/neuroplastio/neio-remote/internal/deck"
	"github.com/neuroplastio/neio-remote/internal/notify"
	"github.com/neuroplastio/neio-remote/pkg/bus"
)

// ConfigLoader returns the current configuration. It is called once per request.
type ConfigLoader interface {
	Load() (deck.Config, error)
}

type Executor interface {
	Execute(ctx context.Context, action deck.Action) error
}

type ClientTracker interface {
	Touch(host, userAgent string, visit clientsvc.Visit) (clientsvc.Client, error)
}

var defaultOptions = serverOptions{
	assets:          Assets,
	shutdownTimeout: 5 * time.Second,
}

type serverOptions struct {
	clients         ClientTracker
	assets          fs.FS
	shutdownTimeout time.Duration
}

type Option func(*serverOptions)

func WithClientTracker(t ClientTracker) Option {
	return func(o *serverOptions) {
		o.clients = t
	}
}

// WithAssets replaces the embedded web client.
func WithAssets(assets fs.FS) Option {
	return func(o *serverOptions) {
		o.assets = assets
	}
}

type Server struct {
	log      *zap.Logger
	options  serverOptions
	config   ConfigLoader
	executor Executor
	bus      *notify.Bus

	streams *xsync.MapOf[string, StreamInfo]
	active  *atomic.Int64
	handler http.Handler
}

func New(log *zap.Logger, config ConfigLoader, executor Executor, eventBus *notify.Bus, opts ...Option) *Server {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	s := &Server{
		log:      log,
		options:  options,
		config:   config,
		executor: executor,
		bus:      eventBus,
		streams:  xsync.NewMapOf[string, StreamInfo](),
		active:   atomic.NewInt64(0),
	}
	s.handler = cors(s.newRouter())
	return s
}

func (s *Server) newRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth", s.handleAuth).Methods(http.MethodPost)
	api.HandleFunc("/config", s.handleConfig).Methods(http.MethodPost)
	api.HandleFunc("/action", s.handleAction).Methods(http.MethodPost)
	r.HandleFunc("/ws", s.handleStream).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(http.FileServer(http.FS(s.options.assets))).Methods(http.MethodGet, http.MethodHead)
	return r
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on addr and serves until ctx is done. Failing to bind is the
// only error that stops the server.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.options.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("Server shutdown", zap.Error(err))
		}
	}()
	s.log.Info("Dispatch server listening", zap.String("addr", ln.Addr().String()))
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

type Stats struct {
	Streams int64
	Bus     bus.Stats
}

func (s *Server) Stats() Stats {
	return Stats{
		Streams: s.active.Load(),
		Bus:     s.bus.Stats(),
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.Debug("request", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.String("remote", r.RemoteAddr))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) track(r *http.Request, visit clientsvc.Visit) {
	if s.options.clients == nil {
		return
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if _, err := s.options.clients.Touch(host, r.UserAgent(), visit); err != nil {
		s.log.Warn("failed to record client", zap.String("host", host), zap.Error(err))
	}
}
