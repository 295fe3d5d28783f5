package server

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sasha-s/go-deadlock"
	log "github.com/sirupsen/logrus"

	"github.com/a-bouts/regatta-server/stream"
)

var (
	ErrSessionClosed = errors.New("session closed")
	ErrQueueFull     = errors.New("send queue full")
)

// Session is one client connection. Frames are written by a dedicated
// goroutine so that Send never blocks the caller.
type Session struct {
	ID        uuid.UUID
	Remote    string
	Connected time.Time

	conn         net.Conn
	queue        chan []byte
	writeTimeout time.Duration
	done         chan struct{}
	closeOnce    sync.Once

	mu       deadlock.Mutex
	sourceID int
	dropped  int
}

func newSession(conn net.Conn, queueSize int, writeTimeout time.Duration, now time.Time) *Session {
	return &Session{
		ID:           uuid.New(),
		Remote:       conn.RemoteAddr().String(),
		Connected:    now,
		conn:         conn,
		queue:        make(chan []byte, queueSize),
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
	}
}

func (s *Session) logger() *log.Entry {
	return log.WithFields(log.Fields{
		"session":   s.ID,
		"source_id": s.SourceID(),
		"remote":    s.Remote,
	})
}

// SourceID is the boat of the session, 0 until the registration succeeds.
func (s *Session) SourceID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sourceID
}

func (s *Session) setSourceID(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sourceID = id
}

// Dropped is the number of frames discarded because the queue was full.
func (s *Session) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Send queues a frame. A full queue drops the frame.
func (s *Session) Send(frame []byte) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	select {
	case s.queue <- frame:
		return nil
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
		s.logger().Warn("Send queue full, frame dropped")
		return ErrQueueFull
	}
}

// SendMessage frames and queues a message.
func (s *Session) SendMessage(m stream.Message, now time.Time) error {
	frame, err := stream.Encode(m, now, 0)
	if err != nil {
		return err
	}
	return s.Send(frame)
}

func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

func (s *Session) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// writeLoop drains the queue. A failed or late write closes the session.
func (s *Session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case frame := <-s.queue:
			if s.writeTimeout > 0 {
				_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			}
			if _, err := s.conn.Write(frame); err != nil {
				s.logger().WithError(err).Info("Write failed, closing session")
				s.Close()
				return
			}
		}
	}
}

// readLoop decodes frames until the connection fails. Malformed frames are
// logged and skipped.
func (s *Session) readLoop(handle func(*Session, stream.Message)) error {
	d := stream.NewDecoder(s.conn)
	for {
		f, err := d.Decode()
		if err != nil {
			if stream.Recoverable(err) {
				s.logger().WithError(err).Warn("Discarding frame")
				continue
			}
			return errors.Wrap(err, "read frame failed")
		}

		m, err := stream.Parse(f)
		if err != nil {
			s.logger().WithError(err).Warn("Discarding frame")
			continue
		}
		handle(s, m)
	}
}
