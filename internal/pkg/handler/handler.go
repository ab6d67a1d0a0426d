// Package handler supervises one transfer on its own datagram endpoint.
package handler

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/franbull/tftp/internal/pkg/log"
	"github.com/franbull/tftp/internal/pkg/session"
	"github.com/franbull/tftp/internal/pkg/transport"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// DefaultIdleTimeout is how long a handler waits for an inbound
// datagram before tearing down its endpoint.
const DefaultIdleTimeout = 5 * time.Second

// Handler owns one transfer and the endpoint it is served on. It sends
// the first data block as soon as it runs, answers each accepted ack
// with the next block, and closes the endpoint on completion, idle
// timeout, or a resource read failure.
type Handler struct {
	transfer *session.Transfer
	endpoint transport.Endpoint
	timeout  time.Duration
}

// Cfg configures a Handler.
type Cfg func(*Handler) error

// WithTransfer sets the transfer to supervise.
func WithTransfer(t *session.Transfer) Cfg {
	return func(h *Handler) error {
		h.transfer = t
		return nil
	}
}

// WithEndpoint sets the endpoint the transfer is served on.
func WithEndpoint(ep transport.Endpoint) Cfg {
	return func(h *Handler) error {
		h.endpoint = ep
		return nil
	}
}

// WithIdleTimeout sets the idle timeout.
func WithIdleTimeout(d time.Duration) Cfg {
	return func(h *Handler) error {
		h.timeout = d
		return nil
	}
}

// NewHandler creates a new Handler with the given configuration.
func NewHandler(cfgs ...Cfg) (*Handler, error) {
	h := &Handler{
		timeout: DefaultIdleTimeout,
	}
	for _, cfg := range cfgs {
		if err := cfg(h); err != nil {
			return nil, errors.Wrap(err, "apply Handler cfg failed")
		}
	}
	if h.transfer == nil {
		return nil, errors.New("handler requires a transfer")
	}
	if h.endpoint == nil {
		return nil, errors.New("handler requires an endpoint")
	}
	return h, nil
}

// Run serves the transfer until it completes, the idle timer fires, or
// ctx is cancelled. The endpoint is closed on every return path.
func (h *Handler) Run(ctx context.Context) error {
	defer h.endpoint.Close()

	first, err := h.transfer.NextData()
	if err != nil {
		return errors.Wrap(err, "produce first block failed")
	}
	if err := h.send(first); err != nil {
		return err
	}
	logger.WithFields(log.TransferFields(h.transfer)).Info("transfer started")

	timer := time.NewTimer(h.timeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			logger.WithFields(log.TransferFields(h.transfer)).Info("transfer timed out")
			return nil
		case dg, ok := <-h.endpoint.Receive():
			if !ok {
				return nil
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(h.timeout)
			if h.transfer.Complete() {
				return nil
			}
			msg, err := h.transfer.HandleAck(dg.Payload, dg.Host, dg.Port)
			if errors.Is(err, session.ErrDataUnavailable) {
				return errors.Wrap(err, "read block failed")
			}
			if err != nil {
				// Rejected acks are dropped; the client's own retry
				// drives recovery.
				logger.WithFields(log.DatagramFields(dg)).WithError(err).Debug("dropping datagram")
				continue
			}
			if msg == nil {
				logger.WithFields(log.TransferFields(h.transfer)).Info("transfer complete")
				return nil
			}
			if err := h.send(msg); err != nil {
				return err
			}
		}
	}
}

func (h *Handler) send(msg []byte) error {
	err := h.endpoint.Send(msg, h.transfer.RemoteHost, h.transfer.RemotePort)
	return errors.Wrapf(err, "send block %d failed", h.transfer.BlockNumber())
}
