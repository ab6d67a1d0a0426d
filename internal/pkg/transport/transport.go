// Package transport abstracts datagram sockets behind a small
// capability surface so the listener and handlers can be driven by a
// fake transport in tests.
package transport

// Datagram is one received datagram together with its sender address.
type Datagram struct {
	Payload []byte
	Host    string
	Port    uint16
}

// Endpoint is one bound datagram socket. Receive returns a channel
// that delivers inbound datagrams in arrival order and is closed when
// the endpoint closes.
type Endpoint interface {
	Send(payload []byte, host string, port uint16) error
	Receive() <-chan Datagram
	LocalPort() uint16
	Close() error
}

// Transport opens endpoints. Listening on port 0 binds an ephemeral port.
type Transport interface {
	Listen(port uint16) (Endpoint, error)
}
