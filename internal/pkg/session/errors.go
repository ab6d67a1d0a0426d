package session

import "github.com/pkg/errors"

// ErrWrongSource indicates an ack from an address other than the pinned client.
var ErrWrongSource = errors.New("ack from wrong source")

// ErrOutOfSequence indicates an ack for a block other than the one awaited.
var ErrOutOfSequence = errors.New("ack out of sequence")

// ErrDataUnavailable indicates the resource cannot be read at the
// requested block. It is fatal to the transfer.
var ErrDataUnavailable = errors.New("data unavailable")
