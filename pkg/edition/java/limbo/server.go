// Package limbo is a minimal Minecraft Java edition server front that
// logs clients in, holds them in the configuration or play state and
// tracks their movement.
package limbo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"github.com/pires/go-proxyproto"
	"github.com/robinbraemer/event"
	"go.minekube.com/common/minecraft/component"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"go.minekube.com/limbo/pkg/edition/java/config"
	"go.minekube.com/limbo/pkg/edition/java/netmc"
	"go.minekube.com/limbo/pkg/edition/java/proto/version"
	"go.minekube.com/limbo/pkg/internal/addrquota"
	"go.minekube.com/limbo/pkg/util/componentutil"
	"go.minekube.com/limbo/pkg/util/errs"
	"go.minekube.com/limbo/pkg/util/favicon"
	"go.minekube.com/limbo/pkg/util/uuid"
)

// Options are Server options.
type Options struct {
	// Config requires a valid configuration.
	Config *config.Config
	// Logger is the logger of the server and its connections.
	// The zero value discards logs.
	Logger logr.Logger
	// EventMgr is the manager server events are fired with.
	// Defaults to a new manager.
	EventMgr event.Manager
}

// Server accepts client connections and keeps track of logged in players.
type Server struct {
	config *config.Config
	log    logr.Logger
	event  event.Manager

	motd           *component.Text
	shutdownReason *component.Text
	favicon        favicon.Favicon

	connectionsQuota *addrquota.Quota
	loginsQuota      *addrquota.Quota

	runOnce atomic.Bool
	closing atomic.Bool
	conns   sync.WaitGroup

	mu          sync.RWMutex // Protects following fields
	playerNames map[string]*Player
	playerIDs   map[uuid.UUID]*Player
}

// ErrServerAlreadyRun is returned by Serve if the server was already run.
var ErrServerAlreadyRun = errors.New("server was already run, create a new one")

// New returns a new Server ready to Start.
// The config should have been validated by config.Validate.
func New(options Options) (*Server, error) {
	if options.Config == nil {
		return nil, errs.ErrMissingConfig
	}
	c := options.Config
	s := &Server{
		config:      c,
		log:         options.Logger,
		event:       options.EventMgr,
		playerNames: map[string]*Player{},
		playerIDs:   map[uuid.UUID]*Player{},
	}
	if s.event == nil {
		s.event = event.New()
	}

	var err error
	if s.motd, err = componentutil.ParseTextComponent(version.MaximumVersion.Protocol, c.Status.Motd); err != nil {
		return nil, fmt.Errorf("error parsing status motd: %w", err)
	}
	if s.shutdownReason, err = componentutil.ParseTextComponent(version.MaximumVersion.Protocol, c.ShutdownReason); err != nil {
		return nil, fmt.Errorf("error parsing shutdown reason: %w", err)
	}

	if c.Status.Favicon != "" {
		if s.favicon, err = favicon.Parse(c.Status.Favicon); err != nil {
			return nil, fmt.Errorf("error reading status favicon: %w", err)
		}
	}

	// Connection & login rate limiters
	if q := c.Quota.Connections; q.Enabled {
		s.connectionsQuota = addrquota.New(q.OPS, q.Burst, q.MaxEntries)
	}
	if q := c.Quota.Logins; q.Enabled {
		s.loginsQuota = addrquota.New(q.OPS, q.Burst, q.MaxEntries)
	}
	return s, nil
}

// Event returns the event manager server events are fired with.
func (s *Server) Event() event.Manager { return s.event }

// Config returns the server's config. It must not be modified.
func (s *Server) Config() *config.Config { return s.config }

// Start listens on the configured bind address and serves
// connections until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Bind)
	if err != nil {
		return fmt.Errorf("error listening on %s: %w", s.config.Bind, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled, then disconnects
// all players and waits for their connections to close.
// ln is closed on return. A Server can only be run once.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if !s.runOnce.CompareAndSwap(false, true) {
		_ = ln.Close()
		return ErrServerAlreadyRun
	}
	if s.config.ProxyProtocol {
		ln = &proxyproto.Listener{
			Listener:          ln,
			ReadHeaderTimeout: s.config.ConnectionTimeoutDuration(),
		}
	}
	ctx = logr.NewContext(ctx, s.log)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		<-egCtx.Done()
		s.closing.Store(true)
		return ln.Close()
	})
	eg.Go(func() error {
		defer s.shutdown()
		return s.acceptLoop(egCtx, ln)
	})

	s.event.Fire(&ReadyEvent{addr: ln.Addr()})
	s.log.Info("listening for connections", "addr", ln.Addr().String(),
		"versions", version.SupportedVersionsString)

	err := eg.Wait()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closing.Load() {
				return nil
			}
			if errs.IsConnClosedErr(err) {
				// Listener was closed by someone else
				return net.ErrClosed
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("error accepting new connection: %w", err)
		}
		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.HandleConn(ctx, conn)
		}()
	}
}

// HandleConn handles a just-accepted connection that has not had any
// I/O performed on it yet. It blocks until the connection is closed.
func (s *Server) HandleConn(ctx context.Context, raw net.Conn) {
	if s.connectionsQuota.Blocked(raw.RemoteAddr()) {
		_ = raw.Close()
		s.log.V(1).Info("connection exceeded rate limit", "remoteAddr", raw.RemoteAddr().String())
		return
	}

	conn, readLoop := netmc.NewMinecraftConn(ctx, raw,
		s.config.ReadTimeoutDuration(),
		s.config.ConnectionTimeoutDuration(),
		s.config.Compression.Level,
	)
	// connections are closed once the server shuts down
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	conn.SetSessionHandler(newHandshakeSessionHandler(s, conn))
	readLoop()
}

// shutdown waits for all connections to close.
// Connections close themselves once the serving context is canceled.
func (s *Server) shutdown() {
	s.closing.Store(true)
	s.log.Info("shutting down, disconnecting players", "players", s.PlayerCount())
	s.conns.Wait()
	s.event.Fire(&ShutdownEvent{})
}

// Closing reports whether the server stopped accepting players.
func (s *Server) Closing() bool { return s.closing.Load() }

// register adds p to the players. It fails if a player with
// the same name or id is online.
func (s *Server) register(p *Player) bool {
	name := strings.ToLower(p.Username())
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.playerNames[name]; ok {
		return false
	}
	if _, ok := s.playerIDs[p.ID()]; ok {
		return false
	}
	s.playerNames[name] = p
	s.playerIDs[p.ID()] = p
	return true
}

// unregister removes p. It reports whether p was registered.
func (s *Server) unregister(p *Player) bool {
	name := strings.ToLower(p.Username())
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playerIDs[p.ID()] != p {
		return false
	}
	delete(s.playerNames, name)
	delete(s.playerIDs, p.ID())
	return true
}

// PlayerCount returns the number of online players.
func (s *Server) PlayerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.playerIDs)
}

// Players returns all online players.
func (s *Server) Players() []*Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pls := make([]*Player, 0, len(s.playerIDs))
	for _, p := range s.playerIDs {
		pls = append(pls, p)
	}
	return pls
}

// Player returns the online player by id or nil.
func (s *Server) Player(id uuid.UUID) *Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playerIDs[id]
}

// PlayerByName returns the online player by case-insensitive name or nil.
func (s *Server) PlayerByName(username string) *Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playerNames[strings.ToLower(username)]
}
