package stream

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"

	"github.com/pkg/errors"
)

type binaryWriter struct {
	buf bytes.Buffer
}

func (w *binaryWriter) writeUint8(v uint8) {
	_ = w.buf.WriteByte(v)
}

func (w *binaryWriter) writeUint16(v uint16) {
	_ = binary.Write(&w.buf, binary.BigEndian, v)
}

func (w *binaryWriter) writeUint32(v uint32) {
	_ = binary.Write(&w.buf, binary.BigEndian, v)
}

func (w *binaryWriter) writeInt32(v int32) {
	_ = binary.Write(&w.buf, binary.BigEndian, v)
}

// writeUint48 writes the low 6 bytes of v.
func (w *binaryWriter) writeUint48(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	_, _ = w.buf.Write(b[2:])
}

func (w *binaryWriter) writeTime(t time.Time) {
	w.writeUint48(toMillis(t))
}

func (w *binaryWriter) writeBytes(b []byte) {
	_, _ = w.buf.Write(b)
}

func (w *binaryWriter) bytes() []byte {
	return w.buf.Bytes()
}

// binaryReader reads a payload whose length was checked up front.
type binaryReader struct {
	data   []byte
	offset int
}

func (r *binaryReader) readUint8() uint8 {
	v := r.data[r.offset]
	r.offset++
	return v
}

func (r *binaryReader) readUint16() uint16 {
	v := binary.BigEndian.Uint16(r.data[r.offset:])
	r.offset += 2
	return v
}

func (r *binaryReader) readUint32() uint32 {
	v := binary.BigEndian.Uint32(r.data[r.offset:])
	r.offset += 4
	return v
}

func (r *binaryReader) readInt32() int32 {
	return int32(r.readUint32())
}

func (r *binaryReader) readUint48() uint64 {
	var b [8]byte
	copy(b[2:], r.data[r.offset:r.offset+6])
	r.offset += 6
	return binary.BigEndian.Uint64(b[:])
}

func (r *binaryReader) readTime() time.Time {
	return fromMillis(r.readUint48())
}

func (r *binaryReader) skip(n int) {
	r.offset += n
}

func (r *binaryReader) rest() []byte {
	return r.data[r.offset:]
}

// checkLength fails with ErrShortPayload when the payload cannot hold n
// bytes.
func checkLength(t MessageType, payload []byte, n int) error {
	if len(payload) < n {
		return errors.Wrapf(ErrShortPayload, "%s needs %d bytes, got %d", t, n, len(payload))
	}
	return nil
}

// toMillis returns t in milliseconds since the epoch, 0 for the zero time.
func toMillis(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	return uint64(t.UnixNano() / int64(time.Millisecond))
}

func fromMillis(ms uint64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.Unix(0, int64(ms)*int64(time.Millisecond)).UTC()
}

const latLonScale = 2147483648.0 / 180.0

// latLonToInt encodes degrees over the 2^31 scale.
func latLonToInt(deg float64) int32 {
	v := math.Round(deg * latLonScale)
	if v > math.MaxInt32 {
		v = math.MaxInt32
	}
	if v < math.MinInt32 {
		v = math.MinInt32
	}
	return int32(v)
}

func intToLatLon(v int32) float64 {
	return float64(v) / latLonScale
}

const angleScale = 65536.0 / 360.0

// angleToUint16 encodes a heading or a wind direction.
func angleToUint16(deg float64) uint16 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	return uint16(int(math.Round(d*angleScale)) % 65536)
}

func uint16ToAngle(v uint16) float64 {
	return float64(v) / angleScale
}

// speedToUint16 encodes metres per second as millimetres per second.
func speedToUint16(ms float64) uint16 {
	mms := math.Round(ms * 1000)
	if mms < 0 {
		return 0
	}
	if mms > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(mms)
}

func uint16ToSpeed(v uint16) float64 {
	return float64(v) / 1000
}
