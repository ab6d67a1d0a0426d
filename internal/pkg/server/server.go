// Package server implements the TFTP request listener: it parses read
// requests arriving on the well-known port and starts one handler, on a
// fresh ephemeral endpoint, per accepted request.
package server

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/franbull/tftp/internal/pkg/block"
	"github.com/franbull/tftp/internal/pkg/handler"
	"github.com/franbull/tftp/internal/pkg/log"
	"github.com/franbull/tftp/internal/pkg/session"
	"github.com/franbull/tftp/internal/pkg/transport"
	"github.com/franbull/tftp/internal/pkg/wire"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// Server listens for read requests and spins up transfers.
type Server struct {
	transport transport.Transport
	provider  block.Provider
	port      uint16
	timeout   time.Duration
}

// Cfg configures a Server.
type Cfg func(*Server) error

// WithTransport sets the datagram transport.
func WithTransport(t transport.Transport) Cfg {
	return func(s *Server) error {
		s.transport = t
		return nil
	}
}

// WithBlockProvider sets the provider transfers read blocks from.
func WithBlockProvider(p block.Provider) Cfg {
	return func(s *Server) error {
		s.provider = p
		return nil
	}
}

// WithPort sets the well-known port to listen on.
func WithPort(port uint16) Cfg {
	return func(s *Server) error {
		s.port = port
		return nil
	}
}

// WithIdleTimeout sets the idle timeout applied to each transfer.
func WithIdleTimeout(d time.Duration) Cfg {
	return func(s *Server) error {
		s.timeout = d
		return nil
	}
}

// NewServer creates a new Server with the given configuration.
func NewServer(cfgs ...Cfg) (*Server, error) {
	server := &Server{
		timeout: handler.DefaultIdleTimeout,
	}
	for _, cfg := range cfgs {
		if err := cfg(server); err != nil {
			return nil, errors.Wrap(err, "apply Server cfg failed")
		}
	}
	if server.transport == nil {
		return nil, errors.New("server requires a transport")
	}
	if server.provider == nil {
		return nil, errors.New("server requires a block provider")
	}
	return server, nil
}

// Run listens for read requests until ctx is cancelled. Transfers
// started by Run are given until their own idle timeout to finish.
func (s *Server) Run(ctx context.Context) error {
	ep, err := s.transport.Listen(s.port)
	if err != nil {
		return errors.Wrap(err, "listen on request port failed")
	}
	defer ep.Close()
	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			ep.Close()
		case <-stopped:
		}
	}()
	logger.WithField("port", ep.LocalPort()).Info("serving files")

	var wg sync.WaitGroup
	defer wg.Wait()
	for dg := range ep.Receive() {
		req, err := wire.ParseReadRequest(dg.Payload)
		if err != nil {
			if op, ok := wire.Opcode(dg.Payload); ok && op == wire.OpWRQ {
				logger.WithFields(log.DatagramFields(dg)).Warning("write requests are not supported")
			} else {
				logger.WithFields(log.DatagramFields(dg)).WithError(err).Debug("discarding datagram")
			}
			continue
		}
		logger.WithFields(log.RequestFields(req, dg.Host, dg.Port)).Info("read request accepted")
		if err := s.startTransfer(ctx, &wg, req, dg.Host, dg.Port); err != nil {
			logger.WithFields(log.RequestFields(req, dg.Host, dg.Port)).WithError(err).Error("start transfer failed")
		}
	}
	return ctx.Err()
}

// startTransfer allocates a fresh endpoint and runs a handler on it.
// Handler failures are logged, never propagated: sessions are isolated
// from the listener and from each other.
func (s *Server) startTransfer(ctx context.Context, wg *sync.WaitGroup, req wire.ReadRequest, host string, port uint16) error {
	ep, err := s.transport.Listen(0)
	if err != nil {
		return errors.Wrap(err, "listen on transfer port failed")
	}
	transfer := session.NewTransfer(req, host, port, s.provider)
	h, err := handler.NewHandler(
		handler.WithTransfer(transfer),
		handler.WithEndpoint(ep),
		handler.WithIdleTimeout(s.timeout),
	)
	if err != nil {
		ep.Close()
		return errors.Wrap(err, "new handler failed")
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		// the transfer outlives listener cancellation; only completion
		// or its own idle timer ends it
		if err := h.Run(context.WithoutCancel(ctx)); err != nil {
			logger.WithFields(log.TransferFields(transfer)).WithError(err).Error("transfer failed")
		}
	}()
	return nil
}
