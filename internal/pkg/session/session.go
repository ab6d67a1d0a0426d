// Package session implements the server-side state of a single TFTP
// download, pinned to one client address.
//
// A Transfer moves through the following states:
//  1. It is created with block number 0 and immediately asked for the
//     first data message.
//  2. Each accepted ack for the current block produces the next data
//     message, until a block shorter than the fixed block size is
//     produced, which marks the transfer done.
//  3. The ack for the final short block completes the transfer; a
//     complete transfer produces and accepts nothing further.
//
// Rejected acks (wrong source, malformed, out of sequence) never mutate
// transfer state, so duplicate or stale acks cannot advance the block
// sequence.
package session

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/franbull/tftp/internal/pkg/block"
	"github.com/franbull/tftp/internal/pkg/wire"
)

// Transfer is the state machine for one download. It is owned by a
// single handler goroutine and is not safe for concurrent use.
type Transfer struct {
	ID         uuid.UUID
	Filename   string
	Mode       string
	RemoteHost string
	RemotePort uint16

	provider block.Provider
	blockNum uint16
	done     bool
	complete bool
}

// NewTransfer creates a Transfer for the given request, pinned to the
// client address the request arrived from.
func NewTransfer(req wire.ReadRequest, host string, port uint16, provider block.Provider) *Transfer {
	return &Transfer{
		ID:         uuid.New(),
		Filename:   req.Filename,
		Mode:       req.Mode,
		RemoteHost: host,
		RemotePort: port,
		provider:   provider,
	}
}

// BlockNumber returns the number of the most recently produced block,
// or 0 if no block has been produced yet.
func (t *Transfer) BlockNumber() uint16 {
	return t.blockNum
}

// Done reports whether the final short block has been produced.
func (t *Transfer) Done() bool {
	return t.done
}

// Complete reports whether the final short block has been acknowledged.
// A complete transfer is terminal.
func (t *Transfer) Complete() bool {
	return t.complete
}

// NextData advances the block number and returns the DATA message for
// the new block. Producing a payload shorter than the block size marks
// the transfer done. A provider failure returns ErrDataUnavailable and
// leaves the transfer unusable; the caller must tear down.
func (t *Transfer) NextData() ([]byte, error) {
	t.blockNum++
	payload, err := t.provider.GetBlock(t.Filename, uint32(t.blockNum))
	if err != nil {
		return nil, errors.Wrapf(ErrDataUnavailable, "%s block %d: %v", t.Filename, t.blockNum, err)
	}
	if len(payload) < block.Size {
		t.done = true
	}
	return wire.DataMessage(t.blockNum, payload), nil
}

// HandleAck processes an inbound datagram as an ack of the current
// block. The source address is verified first, then the wire format,
// then the block sequence; a failure of any check rejects the ack
// without mutating transfer state. An accepted ack either produces the
// next data message or, when the final block was just acknowledged,
// completes the transfer and returns a nil message.
func (t *Transfer) HandleAck(raw []byte, host string, port uint16) ([]byte, error) {
	if host != t.RemoteHost || port != t.RemotePort {
		return nil, errors.Wrapf(ErrWrongSource, "%s:%d", host, port)
	}
	ack, err := wire.ParseAck(raw)
	if err != nil {
		return nil, err
	}
	if ack.Block != t.blockNum {
		return nil, errors.Wrapf(ErrOutOfSequence, "ack %d, current block %d", ack.Block, t.blockNum)
	}
	if t.done {
		t.complete = true
		return nil, nil
	}
	return t.NextData()
}
