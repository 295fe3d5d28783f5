package server

import (
	"context"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sasha-s/go-deadlock"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/a-bouts/regatta-server/game"
	"github.com/a-bouts/regatta-server/scheduler"
)

const DefaultPort = 4942

// Notifier publishes the outcome of the race.
type Notifier interface {
	Send(message string) error
}

type Config struct {
	Addr        string
	RegattaName string

	QueueSize    int
	WriteTimeout time.Duration

	TickInterval      time.Duration
	WindInterval      time.Duration
	StatusInterval    time.Duration
	TokenInterval     time.Duration
	HeartbeatInterval uint64
}

func DefaultConfig() Config {
	return Config{
		Addr:              ":4942",
		RegattaName:       "Gothenburg Regatta",
		QueueSize:         256,
		WriteTimeout:      200 * time.Millisecond,
		TickInterval:      time.Second / 60,
		WindInterval:      500 * time.Millisecond,
		StatusInterval:    500 * time.Millisecond,
		TokenInterval:     60 * time.Second,
		HeartbeatInterval: 1,
	}
}

// SessionInfo describes a connected session.
type SessionInfo struct {
	ID        string    `json:"id"`
	Remote    string    `json:"remote"`
	SourceID  int       `json:"sourceId"`
	Host      bool      `json:"host"`
	Connected time.Time `json:"connected"`
	Dropped   int       `json:"dropped"`
}

// Server accepts the players, feeds their actions to the game and
// broadcasts the race.
type Server struct {
	config   Config
	game     *game.Game
	clock    scheduler.Clock
	sched    *scheduler.Scheduler
	notifier Notifier
	created  time.Time

	mu           deadlock.Mutex
	sessions     []*Session
	listener     net.Listener
	lastTick     time.Time
	locationSeq  uint32
	heartbeatSeq uint32
	ackNumber    uint16
	xmlSeq       map[uint8]uint16
	outcome      string

	done     chan struct{}
	doneOnce sync.Once
}

// Cfg configures a Server.
type Cfg func(*Server) error

func WithConfig(c Config) Cfg {
	return func(s *Server) error {
		if c.QueueSize <= 0 {
			return errors.Errorf("queue size must be positive, got %d", c.QueueSize)
		}
		if c.TickInterval <= 0 || c.WindInterval <= 0 || c.StatusInterval <= 0 || c.TokenInterval <= 0 {
			return errors.New("task intervals must be positive")
		}
		if c.HeartbeatInterval == 0 {
			return errors.New("heartbeat interval must be at least one second")
		}
		s.config = c
		return nil
	}
}

func WithClock(c scheduler.Clock) Cfg {
	return func(s *Server) error {
		s.clock = c
		return nil
	}
}

func WithNotifier(n Notifier) Cfg {
	return func(s *Server) error {
		s.notifier = n
		return nil
	}
}

func New(g *game.Game, cfgs ...Cfg) (*Server, error) {
	s := &Server{
		config: DefaultConfig(),
		game:   g,
		clock:  scheduler.RealClock{},
		xmlSeq: map[uint8]uint16{},
		done:   make(chan struct{}),
	}
	for _, cfg := range cfgs {
		if err := cfg(s); err != nil {
			return nil, errors.Wrap(err, "apply Server cfg failed")
		}
	}
	s.created = s.clock.Now()
	s.sched = scheduler.New(s.clock, time.Millisecond)

	tasks := []scheduler.Task{
		{Name: "simulation", Interval: s.config.TickInterval, Run: s.simulate},
		{Name: "wind", Interval: s.config.WindInterval, Run: s.driftWind},
		{Name: "race-status", Interval: s.config.StatusInterval, Run: s.broadcastStatus},
		{Name: "tokens", Interval: s.config.TokenInterval, Run: s.respawnTokens},
	}
	for _, t := range tasks {
		if err := s.sched.Add(t); err != nil {
			return nil, errors.Wrapf(err, "register task '%s' failed", t.Name)
		}
	}
	return s, nil
}

func (s *Server) Game() *game.Game {
	return s.game
}

func (s *Server) Now() time.Time {
	return s.clock.Now()
}

func (s *Server) Tasks() []scheduler.TaskInfo {
	return s.sched.Tasks()
}

// Done is closed once the race is over or the server was stopped.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

func (s *Server) stop() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *Server) stopping() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// ListenAndServe binds the game port and serves until the race ends or ctx
// is done. A bind failure is returned as is.
func (s *Server) ListenAndServe(ctx context.Context) error {
	l, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s failed", s.config.Addr)
	}
	log.WithField("addr", l.Addr().String()).Info("Game server listening")
	return s.Serve(ctx, l)
}

func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	stopHeartbeat, err := s.startHeartbeat()
	if err != nil {
		return err
	}
	defer close(stopHeartbeat)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return s.accept(l)
	})
	eg.Go(func() error {
		if err := s.sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return errors.Wrap(err, "run scheduler failed")
		}
		return nil
	})
	eg.Go(func() error {
		select {
		case <-ctx.Done():
		case <-s.done:
			cancel()
		}
		s.stop()
		s.shutdown()
		s.notify()
		return nil
	})
	return eg.Wait()
}

func (s *Server) accept(l net.Listener) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			if s.stopping() {
				return nil
			}
			log.WithError(err).Warn("Accept failed")
			time.Sleep(10 * time.Millisecond)
			continue
		}
		go s.HandleConn(conn)
	}
}

// HandleConn serves one client until its connection fails.
func (s *Server) HandleConn(conn net.Conn) {
	sess := newSession(conn, s.config.QueueSize, s.config.WriteTimeout, s.clock.Now())

	s.mu.Lock()
	if s.stopping() {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.sessions = append(s.sessions, sess)
	s.mu.Unlock()

	sess.logger().Info("Client connected")
	go sess.writeLoop()

	if err := sess.readLoop(s.handle); err != nil && !sess.Closed() {
		sess.logger().WithError(err).Info("Client disconnected")
	}
	s.disconnect(sess)
}

// disconnect removes the session and its player. The others get the new
// roster unless the race is running.
func (s *Server) disconnect(sess *Session) {
	sess.Close()

	s.mu.Lock()
	for i, other := range s.sessions {
		if other == sess {
			s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if id := sess.SourceID(); id != 0 {
		if err := s.game.RemovePlayer(id); err != nil {
			sess.logger().WithError(err).Debug("Remove player failed")
		}
	}
	if s.stopping() {
		return
	}
	if s.game.Stage() != game.Racing {
		s.broadcastSetup(s.clock.Now())
	}
}

func (s *Server) shutdown() {
	s.mu.Lock()
	sessions := append([]*Session(nil), s.sessions...)
	l := s.listener
	s.mu.Unlock()

	if l != nil {
		_ = l.Close()
	}
	for _, sess := range sessions {
		sess.Close()
	}
	log.WithField("sessions", len(sessions)).Info("Game server stopped")
}

func (s *Server) activeSessions() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Session(nil), s.sessions...)
}

func (s *Server) Sessions() []SessionInfo {
	host, _ := s.game.Host()
	infos := []SessionInfo{}
	for _, sess := range s.activeSessions() {
		id := sess.SourceID()
		infos = append(infos, SessionInfo{
			ID:        sess.ID.String(),
			Remote:    sess.Remote,
			SourceID:  id,
			Host:      id != 0 && id == host,
			Connected: sess.Connected,
			Dropped:   sess.Dropped(),
		})
	}
	sort.SliceStable(infos, func(i, j int) bool { return infos[i].Connected.Before(infos[j].Connected) })
	return infos
}

// Start starts the countdown, the way a start request of the host does.
func (s *Server) Start() error {
	now := s.clock.Now()
	if err := s.game.StartRace(now); err != nil {
		return err
	}
	s.broadcastSetup(now)
	return nil
}

// Terminate cancels the race, which stops the server.
func (s *Server) Terminate() error {
	return s.game.Terminate(s.clock.Now())
}

// Step runs every task due at now. Serve does it on its own from a ticker.
func (s *Server) Step(now time.Time) {
	s.sched.Step(now)
}
