package protocol

import "bytes"

// IntResponse encodes an integer result.
func IntResponse(v int32) []byte {
	b := make([]byte, IntSize)
	order.PutUint32(b, uint32(v))
	return b
}

// ParseInt decodes an integer result.
func ParseInt(b []byte) (int32, error) {
	if len(b) != IntSize {
		return 0, errShort("int response", len(b), IntSize)
	}
	return int32(order.Uint32(b)), nil
}

// Data is the fixed-size data response envelope.
type Data struct {
	ReturnCode uint32
	MessageLen uint32
	Message    [MessageSize]byte
}

// Bytes encodes the envelope.
func (d *Data) Bytes() []byte {
	b := make([]byte, DataSize)
	order.PutUint32(b[0:], d.ReturnCode)
	order.PutUint32(b[4:], d.MessageLen)
	copy(b[DataHeaderSize:], d.Message[:])
	return b
}

// Levels decodes the message as a level array.
func (d *Data) Levels() [NumLevels]bool {
	var l [NumLevels]bool
	for i := range l {
		l[i] = d.Message[i] != 0
	}
	return l
}

// Version decodes the message as a version string.
func (d *Data) Version() string {
	msg := d.Message[:]
	if i := bytes.IndexByte(msg, 0); i >= 0 {
		msg = msg[:i]
	}
	return string(msg)
}

// ParseData decodes a data response envelope.
func ParseData(b []byte) (*Data, error) {
	if len(b) != DataSize {
		return nil, errShort("data response", len(b), DataSize)
	}
	d := &Data{
		ReturnCode: order.Uint32(b[0:]),
		MessageLen: order.Uint32(b[4:]),
	}
	copy(d.Message[:], b[DataHeaderSize:])
	return d, nil
}

// LevelsResponse encodes a level array.
func LevelsResponse(levels [NumLevels]bool) []byte {
	d := Data{ReturnCode: uint32(OK), MessageLen: NumLevels}
	for i, l := range levels {
		putBool(d.Message[i:], l)
	}
	return d.Bytes()
}

// VersionResponse encodes a version string, truncated to MaxVersionLen
// bytes and NUL padded.
func VersionResponse(version string) []byte {
	if len(version) > MaxVersionLen {
		version = version[:MaxVersionLen]
	}
	d := Data{ReturnCode: uint32(OK), MessageLen: uint32(len(version))}
	copy(d.Message[:], version)
	return d.Bytes()
}
