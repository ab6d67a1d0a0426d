// Package client implements a minimal TFTP download client.
//
// The client performs the following steps:
//  1. Open an ephemeral datagram endpoint.
//  2. Send a read request for the filename to the server's well-known port.
//  3. Receive data blocks, acking each one to the address it came from
//     (the server answers from a fresh port, not the well-known one).
//  4. Stop after acking the first block shorter than the block size.
//
// Blocks are accepted strictly in order; a repeated block is re-acked
// so a server that missed the ack can make progress, and anything else
// is discarded.
package client

import (
	"bytes"
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/franbull/tftp/internal/pkg/block"
	"github.com/franbull/tftp/internal/pkg/transport"
	"github.com/franbull/tftp/internal/pkg/wire"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// DefaultTimeout is how long the client waits for a data block before
// giving up on the transfer.
const DefaultTimeout = 5 * time.Second

// Client downloads files from a TFTP server.
type Client struct {
	transport  transport.Transport
	serverHost string
	serverPort uint16
	timeout    time.Duration
}

// Cfg configures a Client.
type Cfg func(*Client) error

// WithTransport sets the datagram transport.
func WithTransport(t transport.Transport) Cfg {
	return func(c *Client) error {
		c.transport = t
		return nil
	}
}

// WithServer sets the server address to request files from.
func WithServer(host string, port uint16) Cfg {
	return func(c *Client) error {
		c.serverHost = host
		c.serverPort = port
		return nil
	}
}

// WithTimeout sets how long to wait for each data block.
func WithTimeout(d time.Duration) Cfg {
	return func(c *Client) error {
		c.timeout = d
		return nil
	}
}

// NewClient creates a new Client with the given configuration.
func NewClient(cfgs ...Cfg) (*Client, error) {
	client := &Client{
		timeout: DefaultTimeout,
	}
	for _, cfg := range cfgs {
		if err := cfg(client); err != nil {
			return nil, errors.Wrap(err, "apply Client cfg failed")
		}
	}
	if client.transport == nil {
		return nil, errors.New("client requires a transport")
	}
	return client, nil
}

// Fetch downloads the named file and returns its contents.
func (c *Client) Fetch(ctx context.Context, filename string) ([]byte, error) {
	ep, err := c.transport.Listen(0)
	if err != nil {
		return nil, errors.Wrap(err, "listen failed")
	}
	defer ep.Close()

	rrq := wire.ReadRequestMessage(filename, "netascii")
	if err := ep.Send(rrq, c.serverHost, c.serverPort); err != nil {
		return nil, errors.Wrap(err, "send read request failed")
	}
	logger.WithFields(logrus.Fields{
		"filename": filename,
		"host":     c.serverHost,
		"port":     c.serverPort,
	}).Info("requested file")

	var content bytes.Buffer
	expected := uint16(1)
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, errors.Wrapf(ErrTimedOut, "waiting for block %d", expected)
		case dg, ok := <-ep.Receive():
			if !ok {
				return nil, errors.New("endpoint closed")
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(c.timeout)
			op, ok := wire.Opcode(dg.Payload)
			if !ok || op != wire.OpData || len(dg.Payload) < 4 {
				logger.WithField("size", len(dg.Payload)).Debug("discarding datagram")
				continue
			}
			blockNum, err := wire.DecodeBlockNumber(dg.Payload[2:4])
			if err != nil {
				continue
			}
			if expected > 1 && blockNum == expected-1 {
				// our ack was lost; re-ack so the server advances
				if err := ep.Send(wire.AckMessage(blockNum), dg.Host, dg.Port); err != nil {
					return nil, errors.Wrap(err, "re-ack failed")
				}
				continue
			}
			if blockNum != expected {
				logger.WithField("block", blockNum).Debug("discarding unexpected block")
				continue
			}
			payload := dg.Payload[4:]
			content.Write(payload)
			if err := ep.Send(wire.AckMessage(blockNum), dg.Host, dg.Port); err != nil {
				return nil, errors.Wrap(err, "ack failed")
			}
			if len(payload) < block.Size {
				logger.WithFields(logrus.Fields{
					"filename": filename,
					"blocks":   blockNum,
					"bytes":    content.Len(),
				}).Info("download complete")
				return content.Bytes(), nil
			}
			expected++
		}
	}
}
