package server

import (
	"github.com/pkg/errors"

	"github.com/a-bouts/regatta-server/game"
	"github.com/a-bouts/regatta-server/stream"
)

func (s *Server) handle(sess *Session, m stream.Message) {
	switch msg := m.(type) {
	case stream.RegistrationRequestMessage:
		s.register(sess)
	case stream.BoatActionMessage:
		s.boatAction(sess, game.Action(msg.Action))
	case stream.ChatterTextMessage:
		s.chat(sess, msg)
	case stream.CustomizationRequestMessage:
		s.customize(sess, msg)
	case stream.StartRequestMessage:
		s.startRequest(sess)
	case stream.HeartbeatMessage:
	default:
		sess.logger().WithField("type", m.Type()).Debug("Ignoring message")
	}
}

func registrationStatus(err error) uint8 {
	switch {
	case err == nil:
		return stream.RegistrationSuccess
	case errors.Is(err, game.ErrRaceFull):
		return stream.RegistrationFull
	case errors.Is(err, game.ErrRaceStarted):
		return stream.RegistrationRaceStarted
	}
	return stream.RegistrationFailed
}

// register gives the session a boat. The first registered session hosts
// the race.
func (s *Server) register(sess *Session) {
	now := s.clock.Now()
	if id := sess.SourceID(); id != 0 {
		_ = sess.SendMessage(stream.RegistrationResponseMessage{SourceID: uint32(id), Status: stream.RegistrationSuccess}, now)
		return
	}

	p, err := s.game.AddPlayer(now)
	status := registrationStatus(err)
	if err != nil {
		sess.logger().WithError(err).Info("Registration refused")
		_ = sess.SendMessage(stream.RegistrationResponseMessage{Status: status}, now)
		return
	}

	sess.setSourceID(p.SourceID)
	_ = sess.SendMessage(stream.RegistrationResponseMessage{SourceID: uint32(p.SourceID), Status: status}, now)
	sess.logger().WithField("host", p.Host).Info("Client registered")
	s.broadcastSetup(now)
}

func (s *Server) boatAction(sess *Session, a game.Action) {
	id := sess.SourceID()
	if id == 0 {
		sess.logger().WithField("action", a).Debug("Action before registration")
		return
	}
	if err := s.game.Apply(id, a); err != nil {
		sess.logger().WithError(err).Warn("Action rejected")
	}
}

func (s *Server) chat(sess *Session, msg stream.ChatterTextMessage) {
	sess.logger().WithField("text", msg.Text).Debug("Chat")
	s.broadcast(msg, s.clock.Now())
}

// customize renames the boat of the session. Colour and shape only matter
// to the clients.
func (s *Server) customize(sess *Session, msg stream.CustomizationRequestMessage) {
	id := sess.SourceID()
	if id == 0 {
		return
	}
	if msg.CustomizationType != stream.CustomizeName {
		s.game.MarkCustomized()
		return
	}
	if err := s.game.Rename(id, string(msg.Data)); err != nil {
		sess.logger().WithError(err).Warn("Rename failed")
	}
}

func (s *Server) startRequest(sess *Session) {
	host, ok := s.game.Host()
	if !ok || sess.SourceID() != host {
		sess.logger().Warn("Start request from a non host session")
		return
	}
	if err := s.Start(); err != nil {
		sess.logger().WithError(err).Warn("Start refused")
	}
}
