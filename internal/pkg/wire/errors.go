package wire

import "github.com/pkg/errors"

// ErrMalformedMessage indicates a field that does not match the wire encoding.
var ErrMalformedMessage = errors.New("malformed message")

// ErrMalformedRequest indicates a datagram that is not a valid read request.
var ErrMalformedRequest = errors.New("malformed read request")

// ErrMalformedAck indicates a datagram that is not a valid ack.
var ErrMalformedAck = errors.New("malformed ack")
