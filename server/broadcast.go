package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/jasonlvhit/gocron"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/a-bouts/regatta-server/game"
	"github.com/a-bouts/regatta-server/race"
	"github.com/a-bouts/regatta-server/stream"
	"github.com/a-bouts/regatta-server/wind"
)

// broadcast sends a message to every session. A failing session is left to
// its own reader to tear down.
func (s *Server) broadcast(m stream.Message, now time.Time) {
	frame, err := stream.Encode(m, now, 0)
	if err != nil {
		log.WithError(err).WithField("type", m.Type()).Error("Encode failed")
		return
	}
	for _, sess := range s.activeSessions() {
		if err := sess.Send(frame); errors.Is(err, ErrSessionClosed) {
			sess.logger().Debug("Send to closed session")
		}
	}
}

func (s *Server) nextXMLSeq(subType uint8) uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.xmlSeq[subType]++
	return s.xmlSeq[subType]
}

func (s *Server) nextAck() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ackNumber++
	return s.ackNumber
}

func (s *Server) xmlMessage(subType uint8, seq uint16, doc interface{}, now time.Time) (stream.Message, error) {
	text, err := stream.MarshalDocument(doc)
	if err != nil {
		return nil, err
	}
	return stream.XMLMessageMessage{
		AckNumber: s.nextAck(),
		Time:      now,
		SubType:   subType,
		Sequence:  seq,
		Text:      text,
	}, nil
}

func (s *Server) raceXML(now time.Time) (stream.Message, error) {
	var participants []int
	for _, b := range s.game.Boats() {
		participants = append(participants, b.SourceID)
	}
	doc := stream.NewRace(s.game.Config().RaceID, s.game.Course(), participants, s.created, s.game.StartTime())
	return s.xmlMessage(stream.XMLRace, s.nextXMLSeq(stream.XMLRace), doc, now)
}

// setupMessages are the regatta, race and boats documents.
func (s *Server) setupMessages(now time.Time) ([]stream.Message, error) {
	regatta := stream.NewRegatta(s.game.Config().RaceID, s.config.RegattaName, s.game.Course(), race.CourseCentre)
	rm, err := s.xmlMessage(stream.XMLRegatta, s.nextXMLSeq(stream.XMLRegatta), regatta, now)
	if err != nil {
		return nil, err
	}

	cm, err := s.raceXML(now)
	if err != nil {
		return nil, err
	}

	var teams []race.Team
	for _, b := range s.game.Boats() {
		teams = append(teams, race.Team{
			SourceID:  b.SourceID,
			Type:      b.Type,
			HullNum:   b.HullNum,
			ShortName: b.ShortName,
			BoatName:  b.BoatName,
			Country:   b.Country,
		})
	}
	seq := s.nextXMLSeq(stream.XMLBoats)
	bm, err := s.xmlMessage(stream.XMLBoats, seq, stream.NewBoats(teams, now, int(seq)), now)
	if err != nil {
		return nil, err
	}
	return []stream.Message{rm, cm, bm}, nil
}

func (s *Server) broadcastSetup(now time.Time) {
	messages, err := s.setupMessages(now)
	if err != nil {
		log.WithError(err).Error("Build setup messages failed")
		return
	}
	for _, m := range messages {
		s.broadcast(m, now)
	}
}

func (s *Server) nextLocationSeq() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locationSeq++
	return s.locationSeq
}

func (s *Server) broadcastLocations(now time.Time) {
	w := s.game.Wind()
	for _, b := range s.game.Boats() {
		s.broadcast(stream.BoatLocationMessage{
			Time:              now,
			SourceID:          uint32(b.SourceID),
			Seq:               s.nextLocationSeq(),
			DeviceType:        stream.DeviceYacht,
			Lat:               b.Position.Lat,
			Lon:               b.Position.Lon,
			Heading:           b.Heading,
			BoatSpeed:         b.Velocity,
			CourseOverGround:  b.Heading,
			SpeedOverGround:   b.Velocity,
			TrueWindSpeed:     w.MetresPerSecond(),
			TrueWindDirection: float64(w.Direction),
			TrueWindAngle:     wind.Twa(b.Heading, float64(w.Direction)),
		}, now)
	}
}

func (s *Server) broadcastMarks(now time.Time) {
	for _, m := range s.game.Course().AllMarks() {
		s.broadcast(stream.BoatLocationMessage{
			Time:       now,
			SourceID:   uint32(m.ID),
			Seq:        s.nextLocationSeq(),
			DeviceType: stream.DeviceMark,
			Lat:        m.Position.Lat,
			Lon:        m.Position.Lon,
		}, now)
	}
}

// simulate is the fixed rate tick.
func (s *Server) simulate(now time.Time) {
	s.mu.Lock()
	dt := s.config.TickInterval
	if !s.lastTick.IsZero() {
		dt = now.Sub(s.lastTick)
	}
	s.lastTick = now
	s.mu.Unlock()

	s.game.Step(now, dt)
	for _, e := range s.game.DrainEvents() {
		s.broadcastEvent(e, now)
	}

	stage := s.game.Stage()
	if stage == game.Lobbying && s.game.ConsumeCustomized() {
		s.broadcastSetup(now)
	}
	if stage.Running() {
		s.broadcastLocations(now)
	}
}

func roundingSide(rounding string) uint8 {
	switch rounding {
	case race.Port:
		return stream.RoundingPort
	case race.Starboard:
		return stream.RoundingStarboard
	}
	return stream.RoundingUnknown
}

func (s *Server) broadcastEvent(e game.Event, now time.Time) {
	raceID := uint32(s.game.Config().RaceID)

	switch e.Type {
	case game.MarkRounded:
		markType := uint8(stream.MarkSingle)
		if e.Gate {
			markType = stream.MarkGate
		}
		status := uint8(game.StatusRacing)
		if b, ok := s.game.Boat(e.SourceID); ok {
			status = uint8(b.Status)
		}
		s.broadcast(stream.MarkRoundingMessage{
			Time:         e.Time,
			AckNumber:    s.nextAck(),
			RaceID:       raceID,
			SourceID:     uint32(e.SourceID),
			BoatStatus:   status,
			RoundingSide: roundingSide(e.Rounding),
			MarkType:     markType,
			MarkID:       uint8(e.CompoundMarkID),
		}, now)
	case game.Collision, game.MarkCollision, game.TokenPickup:
		m := stream.YachtEventMessage{
			Time:       e.Time,
			AckNumber:  s.nextAck(),
			RaceID:     raceID,
			SourceID:   uint32(e.SourceID),
			IncidentID: uint32(e.Other),
		}
		switch e.Type {
		case game.Collision:
			m.EventID = stream.EventCollision
		case game.MarkCollision:
			m.EventID = stream.EventMarkCollision
		case game.TokenPickup:
			m.EventID = stream.EventTokenPickup
			m.IncidentID = uint32(e.Token.Type)
		}
		s.broadcast(m, now)
		if e.Type == game.TokenPickup {
			s.broadcastRace(now)
		}
	case game.StageChanged:
		switch {
		case e.Stage == game.PreRace:
			s.broadcastStartStatus(now)
		case e.Stage.Terminal():
			s.finish(e.Stage, now)
		}
	}
}

func (s *Server) broadcastRace(now time.Time) {
	m, err := s.raceXML(now)
	if err != nil {
		log.WithError(err).Error("Build race xml failed")
		return
	}
	s.broadcast(m, now)
}

func (s *Server) broadcastStartStatus(now time.Time) {
	s.broadcast(stream.RaceStartStatusMessage{
		Time:         now,
		AckNumber:    s.nextAck(),
		StartTime:    s.game.StartTime(),
		RaceID:       uint32(s.game.Config().RaceID),
		Notification: stream.SetRaceStartTime,
	}, now)
}

func raceStatusMessage(st game.Status) stream.RaceStatusMessage {
	m := stream.RaceStatusMessage{
		Time:              st.Time,
		RaceID:            uint32(st.RaceID),
		Status:            uint8(st.Phase),
		ExpectedStartTime: st.StartTime,
		WindDirection:     float64(st.Wind.Direction),
		WindSpeed:         uint16(st.Wind.Speed),
		RaceType:          stream.FleetRace,
	}
	for _, b := range st.Boats {
		m.Boats = append(m.Boats, stream.BoatStatusRecord{
			SourceID:          uint32(b.SourceID),
			Status:            uint8(b.Status),
			Leg:               uint8(b.Leg),
			PenaltiesAwarded:  uint8(min(b.Penalties, 0xff)),
			EstTimeToNextMark: b.EstTimeToNextMark,
			EstTimeAtFinish:   b.EstTimeAtFinish,
		})
	}
	return m
}

func (s *Server) broadcastStatus(now time.Time) {
	s.broadcast(raceStatusMessage(s.game.RaceStatus(now)), now)

	switch s.game.Stage() {
	case game.PreRace:
		s.broadcastStartStatus(now)
		s.broadcastMarks(now)
	case game.Racing:
		s.broadcastMarks(now)
	}
}

func (s *Server) driftWind(now time.Time) {
	w := s.game.DriftWind()
	log.WithFields(log.Fields{"direction": w.Direction, "speed": w.Speed}).Trace("Wind drifted")
}

func (s *Server) respawnTokens(now time.Time) {
	if s.game.Stage().Terminal() {
		return
	}
	tokens := s.game.RespawnTokens()
	log.WithField("tokens", len(tokens)).Debug("Tokens respawned")
	s.broadcastRace(now)
}

// finish sends the last status and stops the server.
func (s *Server) finish(stage game.Stage, now time.Time) {
	s.broadcast(raceStatusMessage(s.game.RaceStatus(now)), now)
	if stage == game.Cancelled {
		s.broadcast(stream.RaceStartStatusMessage{
			Time:         now,
			AckNumber:    s.nextAck(),
			StartTime:    s.game.StartTime(),
			RaceID:       uint32(s.game.Config().RaceID),
			Notification: stream.RaceTerminated,
		}, now)
	}

	text := outcome(stage, s.game.Results(), s.game.StartTime())
	s.mu.Lock()
	s.outcome = text
	s.mu.Unlock()

	log.WithField("stage", stage).Info("Race over")
	s.stop()
}

func outcome(stage game.Stage, results []game.Boat, start time.Time) string {
	var sb strings.Builder
	if stage == game.Cancelled {
		sb.WriteString("Race cancelled")
	} else {
		sb.WriteString("Race finished")
	}
	for i, b := range results {
		if b.Finished {
			fmt.Fprintf(&sb, "\n%d. %s %s", i+1, b.BoatName, b.FinishTime.Sub(start).Round(time.Second))
		} else {
			fmt.Fprintf(&sb, "\n%d. %s DNF (leg %d)", i+1, b.BoatName, b.Leg)
		}
	}
	return sb.String()
}

// Outcome is the text sent to the notifier, empty until the race is over.
func (s *Server) Outcome() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

func (s *Server) notify() {
	text := s.Outcome()
	if s.notifier == nil || text == "" {
		return
	}
	if err := s.notifier.Send(text); err != nil {
		log.WithError(err).Warn("Notify race outcome failed")
	}
}

func (s *Server) nextHeartbeat() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heartbeatSeq++
	return s.heartbeatSeq
}

// heartbeat queues a Heartbeat on every session. A dead peer shows up as a
// write failure in writeLoop, which closes the session; its reader then
// removes the player.
func (s *Server) heartbeat() {
	now := s.clock.Now()
	frame, err := stream.Encode(stream.HeartbeatMessage{Seq: s.nextHeartbeat()}, now, 0)
	if err != nil {
		log.WithError(err).Error("Encode heartbeat failed")
		return
	}
	for _, sess := range s.activeSessions() {
		_ = sess.Send(frame)
	}
}

func (s *Server) startHeartbeat() (chan bool, error) {
	cron := gocron.NewScheduler()
	if err := cron.Every(s.config.HeartbeatInterval).Seconds().Do(s.heartbeat); err != nil {
		return nil, errors.Wrap(err, "schedule heartbeat failed")
	}
	return cron.Start(), nil
}
