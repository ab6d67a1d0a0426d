package transport

import (
	"fmt"
	"net"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// Datagrams larger than this are silently truncated by the read loop.
// The largest message this protocol produces is 4+512 bytes, so a
// failed read at this size only ever drops malformed traffic.
const maxDatagramSize = 2048

// UDPTransport opens UDP endpoints on the given interface address.
type UDPTransport struct {
	// Host is the local address to bind, e.g. "127.0.0.1" or "0.0.0.0".
	Host string
}

// NewUDPTransport creates a UDPTransport binding to host.
func NewUDPTransport(host string) *UDPTransport {
	return &UDPTransport{Host: host}
}

// Listen implements Transport.
func (t *UDPTransport) Listen(port uint16) (Endpoint, error) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", t.Host, port))
	if err != nil {
		return nil, errors.Wrap(err, "resolve udp address failed")
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen udp on %s failed", addr)
	}
	ep := &udpEndpoint{
		conn:     conn,
		received: make(chan Datagram),
		done:     make(chan struct{}),
	}
	go ep.readLoop()
	return ep, nil
}

type udpEndpoint struct {
	conn     *net.UDPConn
	received chan Datagram
	done     chan struct{}
	closeOne sync.Once
}

func (ep *udpEndpoint) readLoop() {
	defer close(ep.received)
	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := ep.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ep.done:
			default:
				logger.WithError(err).Warning("udp read failed")
			}
			return
		}
		payload := make([]byte, n)
		copy(payload, buf[:n])
		dg := Datagram{
			Payload: payload,
			Host:    addr.IP.String(),
			Port:    uint16(addr.Port),
		}
		select {
		case ep.received <- dg:
		case <-ep.done:
			return
		}
	}
}

func (ep *udpEndpoint) Send(payload []byte, host string, port uint16) error {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return errors.Wrap(err, "resolve udp address failed")
	}
	if _, err := ep.conn.WriteToUDP(payload, addr); err != nil {
		return errors.Wrapf(err, "send to %s failed", addr)
	}
	return nil
}

func (ep *udpEndpoint) Receive() <-chan Datagram {
	return ep.received
}

func (ep *udpEndpoint) LocalPort() uint16 {
	return uint16(ep.conn.LocalAddr().(*net.UDPAddr).Port)
}

// Close is idempotent.
func (ep *udpEndpoint) Close() error {
	var err error
	ep.closeOne.Do(func() {
		close(ep.done)
		err = ep.conn.Close()
	})
	return err
}
