package server

import (
	"context"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/a-bouts/regatta-server/game"
	"github.com/a-bouts/regatta-server/scheduler"
	"github.com/a-bouts/regatta-server/stream"
)

var t0 = time.Date(2017, 7, 25, 12, 0, 0, 0, time.UTC)

type client struct {
	t        *testing.T
	conn     net.Conn
	messages chan stream.Message
}

func newServer(t *testing.T, cfgs ...game.Cfg) (*Server, *scheduler.ManualClock) {
	g, err := game.New(cfgs...)
	require.NoError(t, err)
	clock := scheduler.NewManualClock(t0)
	srv, err := New(g, WithClock(clock))
	require.NoError(t, err)
	return srv, clock
}

func connect(t *testing.T, srv *Server) *client {
	local, remote := net.Pipe()
	go srv.HandleConn(remote)
	return newClient(t, local)
}

func newClient(t *testing.T, local net.Conn) *client {
	c := &client{t: t, conn: local, messages: make(chan stream.Message, 1024)}
	go func() {
		defer close(c.messages)
		d := stream.NewDecoder(local)
		for {
			f, err := d.Decode()
			if err != nil {
				if stream.Recoverable(err) {
					continue
				}
				return
			}
			if m, err := stream.Parse(f); err == nil {
				c.messages <- m
			}
		}
	}()
	t.Cleanup(func() { _ = local.Close() })
	return c
}

func (c *client) send(m stream.Message) {
	frame, err := stream.Encode(m, t0, 0)
	require.NoError(c.t, err)
	_, err = c.conn.Write(frame)
	require.NoError(c.t, err)
}

// await returns the first message of the given type, skipping the others.
func (c *client) await(mt stream.MessageType) stream.Message {
	timeout := time.After(2 * time.Second)
	for {
		select {
		case m, ok := <-c.messages:
			require.True(c.t, ok, "connection closed waiting for %s", mt)
			if m.Type() == mt {
				return m
			}
		case <-timeout:
			c.t.Fatalf("no %s received", mt)
		}
	}
}

func (c *client) register() stream.RegistrationResponseMessage {
	c.send(stream.RegistrationRequestMessage{RequestType: 1})
	return c.await(stream.RegistrationResponse).(stream.RegistrationResponseMessage)
}

func (c *client) awaitBoats() stream.Boats {
	for {
		m := c.await(stream.XMLMessage).(stream.XMLMessageMessage)
		if m.SubType != stream.XMLBoats {
			continue
		}
		b, err := stream.UnmarshalBoats(m.Text)
		require.NoError(c.t, err)
		return b
	}
}

func TestFirstClientIsHost(t *testing.T) {
	srv, _ := newServer(t)

	first := connect(t, srv).register()
	require.Equal(t, uint8(stream.RegistrationSuccess), first.Status)
	require.Equal(t, uint32(101), first.SourceID)

	second := connect(t, srv).register()
	require.Equal(t, uint32(102), second.SourceID)

	host, ok := srv.Game().Host()
	require.True(t, ok)
	require.Equal(t, 101, host)

	sessions := srv.Sessions()
	require.Len(t, sessions, 2)
	hosts := 0
	for _, s := range sessions {
		if s.Host {
			hosts++
			require.Equal(t, 101, s.SourceID)
		}
	}
	require.Equal(t, 1, hosts)
}

func TestRegistrationSendsSetup(t *testing.T) {
	srv, _ := newServer(t)
	c := connect(t, srv)
	c.register()

	boats := c.awaitBoats()
	require.Len(t, boats.Boats, 1)
	require.Equal(t, 101, boats.Boats[0].SourceID)
}

func TestRegistrationRefused(t *testing.T) {
	cfg := game.DefaultConfig()
	cfg.MaxPlayers = 1
	srv, _ := newServer(t, game.WithConfig(cfg))

	connect(t, srv).register()
	resp := connect(t, srv).register()
	require.Equal(t, uint8(stream.RegistrationFull), resp.Status)
	require.Equal(t, uint32(0), resp.SourceID)
}

func TestRegistrationAfterStart(t *testing.T) {
	srv, _ := newServer(t)
	connect(t, srv).register()
	require.NoError(t, srv.Start())

	resp := connect(t, srv).register()
	require.Equal(t, uint8(stream.RegistrationRaceStarted), resp.Status)
}

func TestHostDisconnect(t *testing.T) {
	srv, _ := newServer(t)
	host := connect(t, srv)
	host.register()
	other := connect(t, srv)
	other.register()
	other.awaitBoats()

	require.NoError(t, host.conn.Close())

	require.Eventually(t, func() bool {
		id, ok := srv.Game().Host()
		return ok && id == 102
	}, 2*time.Second, 5*time.Millisecond)

	for {
		boats := other.awaitBoats()
		if len(boats.Boats) == 1 {
			require.Equal(t, 102, boats.Boats[0].SourceID)
			break
		}
	}
	require.Len(t, srv.Game().Players(), 1)
}

func TestNoRosterRefreshWhileRacing(t *testing.T) {
	srv, clock := newServer(t)
	leaving := connect(t, srv)
	leaving.register()
	staying := connect(t, srv)
	staying.register()

	require.NoError(t, srv.Start())
	srv.Step(clock.Advance(game.Countdown + time.Second))
	require.Equal(t, game.Racing, srv.Game().Stage())

	// Everything sent so far is ahead of the marker.
	staying.send(stream.ChatterTextMessage{MessageType: 1, Text: "mark"})
	for staying.await(stream.ChatterText).(stream.ChatterTextMessage).Text != "mark" {
	}

	require.NoError(t, leaving.conn.Close())
	require.Eventually(t, func() bool {
		return len(srv.Game().Players()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	staying.send(stream.ChatterTextMessage{MessageType: 1, Text: "after"})
	for {
		select {
		case m, ok := <-staying.messages:
			require.True(t, ok)
			if xm, isXML := m.(stream.XMLMessageMessage); isXML {
				require.NotEqual(t, uint8(stream.XMLBoats), xm.SubType)
			}
			if cm, isChat := m.(stream.ChatterTextMessage); isChat && cm.Text == "after" {
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatal("chat not received")
		}
	}
}

func TestBoatAction(t *testing.T) {
	srv, _ := newServer(t)
	c := connect(t, srv)
	c.register()

	c.send(stream.BoatActionMessage{Action: uint8(game.SailsIn)})
	require.Eventually(t, func() bool {
		b, ok := srv.Game().Boat(101)
		return ok && b.SailIn
	}, 2*time.Second, 5*time.Millisecond)
}

func TestCustomizationResendsSetup(t *testing.T) {
	srv, clock := newServer(t)
	c := connect(t, srv)
	c.register()
	c.awaitBoats()

	c.send(stream.CustomizationRequestMessage{CustomizationType: stream.CustomizeName, Data: []byte("Magic")})
	require.Eventually(t, func() bool {
		b, _ := srv.Game().Boat(101)
		return b.BoatName == "Magic"
	}, 2*time.Second, 5*time.Millisecond)

	srv.Step(clock.Advance(time.Second))
	boats := c.awaitBoats()
	require.Equal(t, "Magic", boats.Boats[0].BoatName)
}

func TestStartRequestHostOnly(t *testing.T) {
	srv, clock := newServer(t)
	host := connect(t, srv)
	host.register()
	guest := connect(t, srv)
	guest.register()

	guest.send(stream.StartRequestMessage{})
	guest.send(stream.ChatterTextMessage{Text: "sync"})
	guest.await(stream.ChatterText)
	require.Equal(t, game.Lobbying, srv.Game().Stage())

	host.send(stream.StartRequestMessage{})
	require.Eventually(t, func() bool {
		return srv.Game().Stage() == game.PreRace
	}, 2*time.Second, 5*time.Millisecond)

	srv.Step(clock.Advance(time.Second))
	start := guest.await(stream.RaceStartStatus).(stream.RaceStartStatusMessage)
	require.Equal(t, uint8(stream.SetRaceStartTime), start.Notification)
	require.Equal(t, srv.Game().StartTime(), start.StartTime)
}

func TestMalformedFramesAreSkipped(t *testing.T) {
	srv, _ := newServer(t)
	c := connect(t, srv)

	bad, err := stream.Encode(stream.RegistrationRequestMessage{}, t0, 0)
	require.NoError(t, err)
	bad[len(bad)-1] ^= 0xff
	_, err = c.conn.Write(append([]byte{0x01, 0x02, 0x47}, bad...))
	require.NoError(t, err)
	short, err := stream.EncodeFrame(stream.BoatAction, t0, 0, nil)
	require.NoError(t, err)
	_, err = c.conn.Write(short)
	require.NoError(t, err)

	resp := c.register()
	require.Equal(t, uint8(stream.RegistrationSuccess), resp.Status)
}

func TestRacingBroadcastsLocations(t *testing.T) {
	srv, clock := newServer(t)
	c := connect(t, srv)
	c.register()
	require.NoError(t, srv.Start())

	srv.Step(clock.Advance(time.Second))
	for {
		m := c.await(stream.BoatLocation).(stream.BoatLocationMessage)
		if m.DeviceType == stream.DeviceYacht {
			require.Equal(t, uint32(101), m.SourceID)
			b, _ := srv.Game().Boat(101)
			require.InDelta(t, b.Position.Lat, m.Lat, 1e-6)
			break
		}
	}
	status := c.await(stream.RaceStatus).(stream.RaceStatusMessage)
	require.Len(t, status.Boats, 1)
}

type recorder struct {
	mu       sync.Mutex
	messages []string
}

func (r *recorder) Send(message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}

func (r *recorder) sent() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

func TestTerminateStopsServer(t *testing.T) {
	g, err := game.New()
	require.NoError(t, err)
	clock := scheduler.NewManualClock(t0)
	notifier := &recorder{}
	srv, err := New(g, WithClock(clock), WithNotifier(notifier))
	require.NoError(t, err)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error)
	go func() { done <- srv.Serve(context.Background(), l) }()

	conn, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, srv.Terminate())
	clock.Advance(time.Second)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	sent := notifier.sent()
	require.Len(t, sent, 1)
	require.True(t, strings.HasPrefix(sent[0], "Race cancelled"))
}

func TestServeStopsOnCancel(t *testing.T) {
	srv, _ := newServer(t)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- srv.Serve(ctx, l) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	require.Empty(t, srv.Outcome())
}

func TestOutcome(t *testing.T) {
	start := t0
	results := []game.Boat{
		{BoatName: "Oracle Team USA", Finished: true, FinishTime: start.Add(3*time.Minute + 4*time.Second)},
		{BoatName: "Artemis Racing", Leg: 3},
	}
	require.Equal(t, "Race finished\n1. Oracle Team USA 3m4s\n2. Artemis Racing DNF (leg 3)", outcome(game.Finished, results, start))
}

func TestHeartbeat(t *testing.T) {
	srv, _ := newServer(t)
	c := connect(t, srv)
	c.register()

	srv.heartbeat()
	first := c.await(stream.Heartbeat).(stream.HeartbeatMessage)
	srv.heartbeat()
	second := c.await(stream.Heartbeat).(stream.HeartbeatMessage)
	require.Greater(t, second.Seq, first.Seq)
}

// brokenConn fails every write once broken is set.
type brokenConn struct {
	net.Conn
	broken atomic.Bool
}

func (c *brokenConn) Write(b []byte) (int, error) {
	if c.broken.Load() {
		return 0, errors.New("broken pipe")
	}
	return c.Conn.Write(b)
}

func TestHeartbeatRemovesDeadSession(t *testing.T) {
	srv, _ := newServer(t)
	live := connect(t, srv)
	require.Equal(t, uint32(101), live.register().SourceID)

	local, remote := net.Pipe()
	conn := &brokenConn{Conn: remote}
	go srv.HandleConn(conn)
	dead := newClient(t, local)
	require.Equal(t, uint32(102), dead.register().SourceID)
	require.Len(t, srv.Game().Players(), 2)

	conn.broken.Store(true)
	srv.heartbeat()

	require.Eventually(t, func() bool {
		return len(srv.Game().Players()) == 1 && len(srv.Sessions()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, 101, srv.Game().Players()[0].SourceID)
	live.await(stream.Heartbeat)
}
