package stream

import (
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Payload lengths of the fixed size messages.
const (
	HeartbeatLength            = 4
	RaceStatusHeaderLength     = 24
	RaceStatusBoatLength       = 20
	BoatLocationLength         = 56
	MarkRoundingLength         = 21
	RaceStartStatusLength      = 20
	YachtEventLength           = 22
	XMLHeaderLength            = 14
	ChatterHeaderLength        = 3
	BoatActionLength           = 1
	RegistrationRequestLength  = 1
	RegistrationResponseLength = 5
	CustomizationHeaderLength  = 1
)

const Version = 2

// Device types of a boat location.
const (
	DeviceYacht = 1
	DeviceMark  = 3
)

// Race types of a race status.
const (
	MatchRace = 1
	FleetRace = 2
)

// Race start notifications.
const (
	SetRaceStartTime = 1
	RacePostponed    = 2
	RaceAbandoned    = 3
	RaceTerminated   = 4
)

// Mark rounding fields.
const (
	RoundingUnknown   = 0
	RoundingPort      = 1
	RoundingStarboard = 2

	MarkUnknown = 0
	MarkSingle  = 1
	MarkGate    = 2
)

// Yacht event ids.
const (
	EventCollision     = 1
	EventMarkCollision = 2
	EventTokenPickup   = 3
)

// XML sub types.
const (
	XMLRegatta = 5
	XMLRace    = 6
	XMLBoats   = 7
)

// Registration statuses.
const (
	RegistrationSuccess     = 1
	RegistrationFull        = 2
	RegistrationRaceStarted = 3
	RegistrationFailed      = 4
)

// Customization types.
const (
	CustomizeName  = 1
	CustomizeColor = 2
	CustomizeShape = 3
)

type HeartbeatMessage struct {
	Seq uint32
}

func (m HeartbeatMessage) Type() MessageType { return Heartbeat }

func (m HeartbeatMessage) MarshalBinary() ([]byte, error) {
	w := &binaryWriter{}
	w.writeUint32(m.Seq)
	return w.bytes(), nil
}

func ParseHeartbeat(payload []byte) (HeartbeatMessage, error) {
	if err := checkLength(Heartbeat, payload, HeartbeatLength); err != nil {
		return HeartbeatMessage{}, err
	}
	r := &binaryReader{data: payload}
	return HeartbeatMessage{Seq: r.readUint32()}, nil
}

type BoatStatusRecord struct {
	SourceID          uint32
	Status            uint8
	Leg               uint8
	PenaltiesAwarded  uint8
	PenaltiesServed   uint8
	EstTimeToNextMark time.Time
	EstTimeAtFinish   time.Time
}

type RaceStatusMessage struct {
	Time              time.Time
	RaceID            uint32
	Status            uint8
	ExpectedStartTime time.Time
	// WindDirection in degrees, WindSpeed in mm/s.
	WindDirection float64
	WindSpeed     uint16
	RaceType      uint8
	Boats         []BoatStatusRecord
}

func (m RaceStatusMessage) Type() MessageType { return RaceStatus }

func (m RaceStatusMessage) MarshalBinary() ([]byte, error) {
	if len(m.Boats) > 0xff {
		return nil, errors.Wrapf(ErrTooLarge, "%d boats", len(m.Boats))
	}
	w := &binaryWriter{}
	w.writeUint8(Version)
	w.writeTime(m.Time)
	w.writeUint32(m.RaceID)
	w.writeUint8(m.Status)
	w.writeTime(m.ExpectedStartTime)
	w.writeUint16(angleToUint16(m.WindDirection))
	w.writeUint16(m.WindSpeed)
	w.writeUint8(uint8(len(m.Boats)))
	w.writeUint8(m.RaceType)
	for _, b := range m.Boats {
		w.writeUint32(b.SourceID)
		w.writeUint8(b.Status)
		w.writeUint8(b.Leg)
		w.writeUint8(b.PenaltiesAwarded)
		w.writeUint8(b.PenaltiesServed)
		w.writeTime(b.EstTimeToNextMark)
		w.writeTime(b.EstTimeAtFinish)
	}
	return w.bytes(), nil
}

func ParseRaceStatus(payload []byte) (RaceStatusMessage, error) {
	if err := checkLength(RaceStatus, payload, RaceStatusHeaderLength); err != nil {
		return RaceStatusMessage{}, err
	}
	r := &binaryReader{data: payload}
	r.skip(1)
	m := RaceStatusMessage{}
	m.Time = r.readTime()
	m.RaceID = r.readUint32()
	m.Status = r.readUint8()
	m.ExpectedStartTime = r.readTime()
	m.WindDirection = uint16ToAngle(r.readUint16())
	m.WindSpeed = r.readUint16()
	count := int(r.readUint8())
	m.RaceType = r.readUint8()

	if err := checkLength(RaceStatus, payload, RaceStatusHeaderLength+count*RaceStatusBoatLength); err != nil {
		return RaceStatusMessage{}, err
	}
	for i := 0; i < count; i++ {
		m.Boats = append(m.Boats, BoatStatusRecord{
			SourceID:          r.readUint32(),
			Status:            r.readUint8(),
			Leg:               r.readUint8(),
			PenaltiesAwarded:  r.readUint8(),
			PenaltiesServed:   r.readUint8(),
			EstTimeToNextMark: r.readTime(),
			EstTimeAtFinish:   r.readTime(),
		})
	}
	return m, nil
}

// BoatLocationMessage is the position of a yacht or a mark. Angles are in
// degrees, speeds in metres per second.
type BoatLocationMessage struct {
	Time              time.Time
	SourceID          uint32
	Seq               uint32
	DeviceType        uint8
	Lat               float64
	Lon               float64
	Heading           float64
	BoatSpeed         float64
	CourseOverGround  float64
	SpeedOverGround   float64
	TrueWindSpeed     float64
	TrueWindDirection float64
	TrueWindAngle     float64
}

func (m BoatLocationMessage) Type() MessageType { return BoatLocation }

func (m BoatLocationMessage) MarshalBinary() ([]byte, error) {
	w := &binaryWriter{}
	w.writeUint8(Version)
	w.writeTime(m.Time)
	w.writeUint32(m.SourceID)
	w.writeUint32(m.Seq)
	w.writeUint8(m.DeviceType)
	w.writeInt32(latLonToInt(m.Lat))
	w.writeInt32(latLonToInt(m.Lon))
	w.writeInt32(0) // altitude
	w.writeUint16(angleToUint16(m.Heading))
	w.writeUint16(0) // pitch
	w.writeUint16(0) // roll
	w.writeUint16(speedToUint16(m.BoatSpeed))
	w.writeUint16(angleToUint16(m.CourseOverGround))
	w.writeUint16(speedToUint16(m.SpeedOverGround))
	w.writeUint16(0) // apparent wind speed
	w.writeUint16(0) // apparent wind angle
	w.writeUint16(speedToUint16(m.TrueWindSpeed))
	w.writeUint16(angleToUint16(m.TrueWindDirection))
	w.writeUint16(angleToUint16(m.TrueWindAngle))
	w.writeUint16(0) // current drift
	w.writeUint16(0) // current set
	w.writeUint16(0) // rudder angle
	return w.bytes(), nil
}

func ParseBoatLocation(payload []byte) (BoatLocationMessage, error) {
	if err := checkLength(BoatLocation, payload, BoatLocationLength); err != nil {
		return BoatLocationMessage{}, err
	}
	r := &binaryReader{data: payload}
	r.skip(1)
	m := BoatLocationMessage{}
	m.Time = r.readTime()
	m.SourceID = r.readUint32()
	m.Seq = r.readUint32()
	m.DeviceType = r.readUint8()
	m.Lat = intToLatLon(r.readInt32())
	m.Lon = intToLatLon(r.readInt32())
	r.skip(4)
	m.Heading = uint16ToAngle(r.readUint16())
	r.skip(4)
	m.BoatSpeed = uint16ToSpeed(r.readUint16())
	m.CourseOverGround = uint16ToAngle(r.readUint16())
	m.SpeedOverGround = uint16ToSpeed(r.readUint16())
	r.skip(4)
	m.TrueWindSpeed = uint16ToSpeed(r.readUint16())
	m.TrueWindDirection = uint16ToAngle(r.readUint16())
	m.TrueWindAngle = uint16ToAngle(r.readUint16())
	return m, nil
}

type MarkRoundingMessage struct {
	Time         time.Time
	AckNumber    uint16
	RaceID       uint32
	SourceID     uint32
	BoatStatus   uint8
	RoundingSide uint8
	MarkType     uint8
	MarkID       uint8
}

func (m MarkRoundingMessage) Type() MessageType { return MarkRounding }

func (m MarkRoundingMessage) MarshalBinary() ([]byte, error) {
	w := &binaryWriter{}
	w.writeUint8(Version)
	w.writeTime(m.Time)
	w.writeUint16(m.AckNumber)
	w.writeUint32(m.RaceID)
	w.writeUint32(m.SourceID)
	w.writeUint8(m.BoatStatus)
	w.writeUint8(m.RoundingSide)
	w.writeUint8(m.MarkType)
	w.writeUint8(m.MarkID)
	return w.bytes(), nil
}

func ParseMarkRounding(payload []byte) (MarkRoundingMessage, error) {
	if err := checkLength(MarkRounding, payload, MarkRoundingLength); err != nil {
		return MarkRoundingMessage{}, err
	}
	r := &binaryReader{data: payload}
	r.skip(1)
	return MarkRoundingMessage{
		Time:         r.readTime(),
		AckNumber:    r.readUint16(),
		RaceID:       r.readUint32(),
		SourceID:     r.readUint32(),
		BoatStatus:   r.readUint8(),
		RoundingSide: r.readUint8(),
		MarkType:     r.readUint8(),
		MarkID:       r.readUint8(),
	}, nil
}

type RaceStartStatusMessage struct {
	Time         time.Time
	AckNumber    uint16
	StartTime    time.Time
	RaceID       uint32
	Notification uint8
}

func (m RaceStartStatusMessage) Type() MessageType { return RaceStartStatus }

func (m RaceStartStatusMessage) MarshalBinary() ([]byte, error) {
	w := &binaryWriter{}
	w.writeUint8(Version)
	w.writeTime(m.Time)
	w.writeUint16(m.AckNumber)
	w.writeTime(m.StartTime)
	w.writeUint32(m.RaceID)
	w.writeUint8(m.Notification)
	return w.bytes(), nil
}

func ParseRaceStartStatus(payload []byte) (RaceStartStatusMessage, error) {
	if err := checkLength(RaceStartStatus, payload, RaceStartStatusLength); err != nil {
		return RaceStartStatusMessage{}, err
	}
	r := &binaryReader{data: payload}
	r.skip(1)
	return RaceStartStatusMessage{
		Time:         r.readTime(),
		AckNumber:    r.readUint16(),
		StartTime:    r.readTime(),
		RaceID:       r.readUint32(),
		Notification: r.readUint8(),
	}, nil
}

type YachtEventMessage struct {
	Time       time.Time
	AckNumber  uint16
	RaceID     uint32
	SourceID   uint32
	IncidentID uint32
	EventID    uint8
}

func (m YachtEventMessage) Type() MessageType { return YachtEvent }

func (m YachtEventMessage) MarshalBinary() ([]byte, error) {
	w := &binaryWriter{}
	w.writeUint8(Version)
	w.writeTime(m.Time)
	w.writeUint16(m.AckNumber)
	w.writeUint32(m.RaceID)
	w.writeUint32(m.SourceID)
	w.writeUint32(m.IncidentID)
	w.writeUint8(m.EventID)
	return w.bytes(), nil
}

func ParseYachtEvent(payload []byte) (YachtEventMessage, error) {
	if err := checkLength(YachtEvent, payload, YachtEventLength); err != nil {
		return YachtEventMessage{}, err
	}
	r := &binaryReader{data: payload}
	r.skip(1)
	return YachtEventMessage{
		Time:       r.readTime(),
		AckNumber:  r.readUint16(),
		RaceID:     r.readUint32(),
		SourceID:   r.readUint32(),
		IncidentID: r.readUint32(),
		EventID:    r.readUint8(),
	}, nil
}

type ChatterTextMessage struct {
	MessageType uint8
	Text        string
}

func (m ChatterTextMessage) Type() MessageType { return ChatterText }

// MarshalBinary truncates the text to at most 255 bytes, on a rune boundary.
func (m ChatterTextMessage) MarshalBinary() ([]byte, error) {
	text := []byte(m.Text)
	if len(text) > 0xff {
		n := 0xff
		for n > 0 && !utf8.RuneStart(text[n]) {
			n--
		}
		text = text[:n]
	}
	w := &binaryWriter{}
	w.writeUint8(Version)
	w.writeUint8(m.MessageType)
	w.writeUint8(uint8(len(text)))
	w.writeBytes(text)
	return w.bytes(), nil
}

func ParseChatterText(payload []byte) (ChatterTextMessage, error) {
	if err := checkLength(ChatterText, payload, ChatterHeaderLength); err != nil {
		return ChatterTextMessage{}, err
	}
	r := &binaryReader{data: payload}
	r.skip(1)
	m := ChatterTextMessage{MessageType: r.readUint8()}
	n := int(r.readUint8())
	if err := checkLength(ChatterText, payload, ChatterHeaderLength+n); err != nil {
		return ChatterTextMessage{}, err
	}
	m.Text = string(r.rest()[:n])
	return m, nil
}

// XMLMessageMessage wraps one of the regatta, race or boats documents.
type XMLMessageMessage struct {
	AckNumber uint16
	Time      time.Time
	SubType   uint8
	Sequence  uint16
	Text      string
}

func (m XMLMessageMessage) Type() MessageType { return XMLMessage }

func (m XMLMessageMessage) MarshalBinary() ([]byte, error) {
	if len(m.Text) > 0xffff-XMLHeaderLength {
		return nil, errors.Wrapf(ErrTooLarge, "xml document of %d bytes", len(m.Text))
	}
	w := &binaryWriter{}
	w.writeUint8(Version)
	w.writeUint16(m.AckNumber)
	w.writeTime(m.Time)
	w.writeUint8(m.SubType)
	w.writeUint16(m.Sequence)
	w.writeUint16(uint16(len(m.Text)))
	w.writeBytes([]byte(m.Text))
	return w.bytes(), nil
}

func ParseXMLMessage(payload []byte) (XMLMessageMessage, error) {
	if err := checkLength(XMLMessage, payload, XMLHeaderLength); err != nil {
		return XMLMessageMessage{}, err
	}
	r := &binaryReader{data: payload}
	r.skip(1)
	m := XMLMessageMessage{}
	m.AckNumber = r.readUint16()
	m.Time = r.readTime()
	m.SubType = r.readUint8()
	m.Sequence = r.readUint16()
	n := int(r.readUint16())
	if err := checkLength(XMLMessage, payload, XMLHeaderLength+n); err != nil {
		return XMLMessageMessage{}, err
	}
	m.Text = string(r.rest()[:n])
	return m, nil
}

type BoatActionMessage struct {
	Action uint8
}

func (m BoatActionMessage) Type() MessageType { return BoatAction }

func (m BoatActionMessage) MarshalBinary() ([]byte, error) {
	return []byte{m.Action}, nil
}

func ParseBoatAction(payload []byte) (BoatActionMessage, error) {
	if err := checkLength(BoatAction, payload, BoatActionLength); err != nil {
		return BoatActionMessage{}, err
	}
	return BoatActionMessage{Action: payload[0]}, nil
}

type RegistrationRequestMessage struct {
	RequestType uint8
}

func (m RegistrationRequestMessage) Type() MessageType { return RegistrationRequest }

func (m RegistrationRequestMessage) MarshalBinary() ([]byte, error) {
	return []byte{m.RequestType}, nil
}

func ParseRegistrationRequest(payload []byte) (RegistrationRequestMessage, error) {
	if err := checkLength(RegistrationRequest, payload, RegistrationRequestLength); err != nil {
		return RegistrationRequestMessage{}, err
	}
	return RegistrationRequestMessage{RequestType: payload[0]}, nil
}

type RegistrationResponseMessage struct {
	SourceID uint32
	Status   uint8
}

func (m RegistrationResponseMessage) Type() MessageType { return RegistrationResponse }

func (m RegistrationResponseMessage) MarshalBinary() ([]byte, error) {
	w := &binaryWriter{}
	w.writeUint32(m.SourceID)
	w.writeUint8(m.Status)
	return w.bytes(), nil
}

func ParseRegistrationResponse(payload []byte) (RegistrationResponseMessage, error) {
	if err := checkLength(RegistrationResponse, payload, RegistrationResponseLength); err != nil {
		return RegistrationResponseMessage{}, err
	}
	r := &binaryReader{data: payload}
	return RegistrationResponseMessage{SourceID: r.readUint32(), Status: r.readUint8()}, nil
}

type CustomizationRequestMessage struct {
	CustomizationType uint8
	Data              []byte
}

func (m CustomizationRequestMessage) Type() MessageType { return CustomizationRequest }

func (m CustomizationRequestMessage) MarshalBinary() ([]byte, error) {
	w := &binaryWriter{}
	w.writeUint8(m.CustomizationType)
	w.writeBytes(m.Data)
	return w.bytes(), nil
}

func ParseCustomizationRequest(payload []byte) (CustomizationRequestMessage, error) {
	if err := checkLength(CustomizationRequest, payload, CustomizationHeaderLength); err != nil {
		return CustomizationRequestMessage{}, err
	}
	return CustomizationRequestMessage{
		CustomizationType: payload[0],
		Data:              append([]byte(nil), payload[1:]...),
	}, nil
}

type StartRequestMessage struct{}

func (m StartRequestMessage) Type() MessageType { return StartRequest }

func (m StartRequestMessage) MarshalBinary() ([]byte, error) {
	return nil, nil
}

// Parse decodes the payload of a frame into its typed message.
func Parse(f Frame) (Message, error) {
	switch f.Type {
	case Heartbeat:
		return ParseHeartbeat(f.Payload)
	case RaceStatus:
		return ParseRaceStatus(f.Payload)
	case XMLMessage:
		return ParseXMLMessage(f.Payload)
	case RaceStartStatus:
		return ParseRaceStartStatus(f.Payload)
	case YachtEvent:
		return ParseYachtEvent(f.Payload)
	case ChatterText:
		return ParseChatterText(f.Payload)
	case BoatLocation:
		return ParseBoatLocation(f.Payload)
	case MarkRounding:
		return ParseMarkRounding(f.Payload)
	case BoatAction:
		return ParseBoatAction(f.Payload)
	case RegistrationRequest:
		return ParseRegistrationRequest(f.Payload)
	case RegistrationResponse:
		return ParseRegistrationResponse(f.Payload)
	case CustomizationRequest:
		return ParseCustomizationRequest(f.Payload)
	case StartRequest:
		return StartRequestMessage{}, nil
	}
	return nil, errors.Wrapf(ErrUnknownType, "%d", uint8(f.Type))
}
