// Package wire implements the TFTP wire format: 16-bit big-endian
// opcodes and block numbers, and the RRQ, DATA and ACK message layouts
// described in RFC 1350.
package wire

import (
	"bytes"
	"encoding/binary"
)

// Opcodes defined by RFC 1350. WRQ and ERROR are recognized as reserved
// values but never produced by this server.
const (
	OpRRQ   uint16 = 1
	OpWRQ   uint16 = 2
	OpData  uint16 = 3
	OpAck   uint16 = 4
	OpError uint16 = 5
)

// EncodeBlockNumber returns the 2-byte big-endian encoding of n.
func EncodeBlockNumber(n uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, n)
	return b
}

// DecodeBlockNumber decodes a 2-byte big-endian block number.
func DecodeBlockNumber(b []byte) (uint16, error) {
	if len(b) != 2 {
		return 0, ErrMalformedMessage
	}
	return binary.BigEndian.Uint16(b), nil
}

// Opcode returns the opcode of a datagram, or false if the datagram is
// too short to carry one.
func Opcode(b []byte) (uint16, bool) {
	if len(b) < 2 {
		return 0, false
	}
	return binary.BigEndian.Uint16(b[:2]), true
}

// ReadRequest is a parsed RRQ datagram. The mode is stored verbatim and
// never interpreted.
type ReadRequest struct {
	Filename string
	Mode     string
}

// ParseReadRequest parses an RRQ datagram:
//
//	2 bytes     string    1 byte     string   1 byte
//	------------------------------------------------
//	| Opcode |  Filename  |   0  |    Mode    |   0  |
//	------------------------------------------------
func ParseReadRequest(b []byte) (ReadRequest, error) {
	op, ok := Opcode(b)
	if !ok || op != OpRRQ {
		return ReadRequest{}, ErrMalformedRequest
	}
	fields := bytes.Split(b[2:], []byte{0})
	if len(fields) != 3 || len(fields[2]) != 0 {
		return ReadRequest{}, ErrMalformedRequest
	}
	if len(fields[0]) == 0 {
		return ReadRequest{}, ErrMalformedRequest
	}
	return ReadRequest{
		Filename: string(fields[0]),
		Mode:     string(fields[1]),
	}, nil
}

// Ack is a parsed ACK datagram.
type Ack struct {
	Block uint16
}

// ParseAck parses an ACK datagram, which is exactly 4 bytes: the ACK
// opcode followed by the acknowledged block number.
func ParseAck(b []byte) (Ack, error) {
	if len(b) != 4 {
		return Ack{}, ErrMalformedAck
	}
	op, _ := Opcode(b)
	if op != OpAck {
		return Ack{}, ErrMalformedAck
	}
	block, err := DecodeBlockNumber(b[2:])
	if err != nil {
		return Ack{}, ErrMalformedAck
	}
	return Ack{Block: block}, nil
}

// DataMessage builds a DATA datagram carrying one block's payload.
func DataMessage(block uint16, payload []byte) []byte {
	msg := make([]byte, 0, 4+len(payload))
	msg = append(msg, EncodeBlockNumber(OpData)...)
	msg = append(msg, EncodeBlockNumber(block)...)
	return append(msg, payload...)
}

// AckMessage builds an ACK datagram for the given block number.
func AckMessage(block uint16) []byte {
	msg := make([]byte, 0, 4)
	msg = append(msg, EncodeBlockNumber(OpAck)...)
	return append(msg, EncodeBlockNumber(block)...)
}

// ReadRequestMessage builds an RRQ datagram for the given filename and mode.
func ReadRequestMessage(filename, mode string) []byte {
	msg := make([]byte, 0, 4+len(filename)+len(mode))
	msg = append(msg, EncodeBlockNumber(OpRRQ)...)
	msg = append(msg, filename...)
	msg = append(msg, 0)
	msg = append(msg, mode...)
	return append(msg, 0)
}
