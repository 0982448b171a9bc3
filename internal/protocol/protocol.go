// Package protocol encodes and decodes the request/response messages
// exchanged with the high-level application.
//
// A request is an 8 byte header {code u32, len u32} followed by len body
// bytes. All integers are little-endian and bodies follow the C struct
// layout of the peer, including padding after trailing bools.
package protocol

import "encoding/binary"

// Code identifies a request.
type Code uint32

const (
	CodeConfigureInput  Code = 1
	CodeResetCount      Code = 2
	CodeReadCount       Code = 3
	CodeReadDutyTime    Code = 4
	CodeReadLevels      Code = 5
	CodeReadPinLevel    Code = 6
	CodeConfigureOutput Code = 7
	CodeSetTrigger      Code = 8
	CodeTriggerNow      Code = 9
	CodeReadVersion     Code = 255
)

// Integer results.
const (
	OK int32 = 1
	NG int32 = -1
)

// Sizes on the wire.
const (
	HeaderSize     = 8
	MaxBodySize    = 256
	IntSize        = 4
	MessageSize    = 256
	DataHeaderSize = 8
	DataSize       = DataHeaderSize + MessageSize
	NumLevels      = 4
	MaxVersionLen  = MessageSize - 1
)

// Body sizes for each request code.
const (
	sizeConfigureInput  = 16
	sizeResetCount      = 8
	sizePin             = 4
	sizeConfigureOutput = 40
	sizeSetTrigger      = 8
)

var order = binary.LittleEndian

// Header precedes every request body.
type Header struct {
	Code Code
	Len  uint32
}

// ParseHeader decodes a header from the first HeaderSize bytes of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, errShort("header", len(b), HeaderSize)
	}
	return Header{Code: Code(order.Uint32(b[0:])), Len: order.Uint32(b[4:])}, nil
}

// Bytes encodes the header.
func (h Header) Bytes() []byte {
	b := make([]byte, HeaderSize)
	order.PutUint32(b[0:], uint32(h.Code))
	order.PutUint32(b[4:], h.Len)
	return b
}

func putBool(b []byte, v bool) {
	if v {
		b[0] = 1
	} else {
		b[0] = 0
	}
}
