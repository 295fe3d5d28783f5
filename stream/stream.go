package stream

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrShortPayload = errors.New("payload too short")
	ErrBadChecksum  = errors.New("bad checksum")
	ErrUnknownType  = errors.New("unknown message type")
	ErrTooLarge     = errors.New("payload too large")
)

const (
	SyncByte1 = 0x47
	SyncByte2 = 0x83

	HeaderLength   = 15
	ChecksumLength = 4
)

type MessageType uint8

const (
	Heartbeat            MessageType = 1
	RaceStatus           MessageType = 12
	XMLMessage           MessageType = 26
	RaceStartStatus      MessageType = 27
	YachtEvent           MessageType = 29
	ChatterText          MessageType = 36
	BoatLocation         MessageType = 37
	MarkRounding         MessageType = 38
	BoatAction           MessageType = 100
	RegistrationRequest  MessageType = 101
	RegistrationResponse MessageType = 102
	CustomizationRequest MessageType = 103
	StartRequest         MessageType = 104
)

var typeNames = map[MessageType]string{
	Heartbeat:            "HEARTBEAT",
	RaceStatus:           "RACE_STATUS",
	XMLMessage:           "XML_MESSAGE",
	RaceStartStatus:      "RACE_START_STATUS",
	YachtEvent:           "YACHT_EVENT",
	ChatterText:          "CHATTER_TEXT",
	BoatLocation:         "BOAT_LOCATION",
	MarkRounding:         "MARK_ROUNDING",
	BoatAction:           "BOAT_ACTION",
	RegistrationRequest:  "REGISTRATION_REQUEST",
	RegistrationResponse: "REGISTRATION_RESPONSE",
	CustomizationRequest: "CUSTOMIZATION_REQUEST",
	StartRequest:         "START_REQUEST",
}

func (t MessageType) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("TYPE(%d)", uint8(t))
}

func (t MessageType) Known() bool {
	_, ok := typeNames[t]
	return ok
}

type Header struct {
	Type      MessageType
	Timestamp time.Time
	SourceID  uint32
	Length    uint16
}

// Frame is one packet read off the wire.
type Frame struct {
	Header
	Payload []byte
}

// Message is a typed payload.
type Message interface {
	Type() MessageType
	MarshalBinary() ([]byte, error)
}

// Encode frames a message: header, payload then the CRC-32 of both.
func Encode(m Message, ts time.Time, sourceID uint32) ([]byte, error) {
	payload, err := m.MarshalBinary()
	if err != nil {
		return nil, errors.Wrapf(err, "marshal %s failed", m.Type())
	}
	return EncodeFrame(m.Type(), ts, sourceID, payload)
}

func EncodeFrame(t MessageType, ts time.Time, sourceID uint32, payload []byte) ([]byte, error) {
	if len(payload) > 0xffff {
		return nil, errors.Wrapf(ErrTooLarge, "%s payload is %d bytes", t, len(payload))
	}

	w := &binaryWriter{}
	w.writeUint8(SyncByte1)
	w.writeUint8(SyncByte2)
	w.writeUint8(uint8(t))
	w.writeTime(ts)
	w.writeUint32(sourceID)
	w.writeUint16(uint16(len(payload)))
	w.writeBytes(payload)
	w.writeUint32(crc32.ChecksumIEEE(w.bytes()))
	return w.bytes(), nil
}

// Decoder reads frames from a stream, skipping garbage up to the next sync
// bytes.
type Decoder struct {
	r *bufio.Reader
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

func (d *Decoder) sync() error {
	prev := byte(0)
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return err
		}
		if prev == SyncByte1 && b == SyncByte2 {
			return nil
		}
		prev = b
	}
}

// Decode returns the next frame. A frame with a bad checksum or an unknown
// type is consumed and reported with ErrBadChecksum or ErrUnknownType, the
// next call reads the following frame.
func (d *Decoder) Decode() (Frame, error) {
	if err := d.sync(); err != nil {
		return Frame{}, err
	}

	var head [HeaderLength]byte
	head[0], head[1] = SyncByte1, SyncByte2
	if _, err := io.ReadFull(d.r, head[2:]); err != nil {
		return Frame{}, errors.Wrap(unexpected(err), "read header failed")
	}

	r := &binaryReader{data: head[:], offset: 2}
	f := Frame{}
	f.Type = MessageType(r.readUint8())
	f.Timestamp = r.readTime()
	f.SourceID = r.readUint32()
	f.Length = r.readUint16()

	body := make([]byte, int(f.Length)+ChecksumLength)
	if _, err := io.ReadFull(d.r, body); err != nil {
		return Frame{}, errors.Wrapf(unexpected(err), "read %s payload failed", f.Type)
	}
	f.Payload = body[:f.Length]

	crc := crc32.NewIEEE()
	_, _ = crc.Write(head[:])
	_, _ = crc.Write(f.Payload)
	if crc.Sum32() != binary.BigEndian.Uint32(body[f.Length:]) {
		return f, errors.Wrapf(ErrBadChecksum, "%s from %d", f.Type, f.SourceID)
	}
	if !f.Type.Known() {
		return f, errors.Wrapf(ErrUnknownType, "%d", uint8(f.Type))
	}
	return f, nil
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// Recoverable reports whether the stream can go on after err.
func Recoverable(err error) bool {
	return errors.Is(err, ErrBadChecksum) || errors.Is(err, ErrUnknownType) || errors.Is(err, ErrShortPayload)
}
