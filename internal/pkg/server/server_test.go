package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/franbull/tftp/internal/pkg/block"
	"github.com/franbull/tftp/internal/pkg/transport"
	"github.com/franbull/tftp/internal/pkg/wire"
)

type fakeEndpoint struct {
	port     uint16
	in       chan transport.Datagram
	sent     chan transport.Datagram
	closeOne sync.Once
}

func (f *fakeEndpoint) Send(payload []byte, host string, port uint16) error {
	f.sent <- transport.Datagram{Payload: payload, Host: host, Port: port}
	return nil
}

func (f *fakeEndpoint) Receive() <-chan transport.Datagram { return f.in }

func (f *fakeEndpoint) LocalPort() uint16 { return f.port }

func (f *fakeEndpoint) Close() error {
	f.closeOne.Do(func() { close(f.in) })
	return nil
}

type fakeTransport struct {
	nextPort uint16
	listened chan *fakeEndpoint
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		nextPort: 7000,
		listened: make(chan *fakeEndpoint, 16),
	}
}

func (tr *fakeTransport) Listen(port uint16) (transport.Endpoint, error) {
	if port == 0 {
		tr.nextPort++
		port = tr.nextPort
	}
	ep := &fakeEndpoint{
		port: port,
		in:   make(chan transport.Datagram),
		sent: make(chan transport.Datagram, 16),
	}
	tr.listened <- ep
	return ep, nil
}

func (tr *fakeTransport) nextListened(t *testing.T) *fakeEndpoint {
	t.Helper()
	select {
	case ep := <-tr.listened:
		return ep
	case <-time.After(time.Second):
		t.Fatal("no endpoint listened")
		return nil
	}
}

func (tr *fakeTransport) requireNoneListened(t *testing.T) {
	t.Helper()
	select {
	case ep := <-tr.listened:
		t.Fatalf("unexpected endpoint on port %d", ep.port)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRunStartsOneTransferPerRequest(t *testing.T) {
	tr := newFakeTransport()
	provider := block.NewMemoryProvider(map[string][]byte{"woo.txt": []byte("hello")})
	s, err := NewServer(
		WithTransport(tr),
		WithBlockProvider(provider),
		WithPort(69),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	requestEp := tr.nextListened(t)
	require.Equal(t, uint16(69), requestEp.port)

	requestEp.in <- transport.Datagram{
		Payload: wire.ReadRequestMessage("woo.txt", "netascii"),
		Host:    "127.0.0.1",
		Port:    1111,
	}
	transferEp := tr.nextListened(t)
	require.NotEqual(t, uint16(69), transferEp.port)

	// first data block goes to the requester without waiting for an ack
	select {
	case dg := <-transferEp.sent:
		require.Equal(t, "127.0.0.1", dg.Host)
		require.Equal(t, uint16(1111), dg.Port)
		require.Equal(t, []byte{0x00, 0x03, 0x00, 0x01}, dg.Payload[:4])
		require.Equal(t, []byte("hello"), dg.Payload[4:])
	case <-time.After(time.Second):
		t.Fatal("first block not sent")
	}

	// finish the transfer so Run's wait group drains promptly
	transferEp.in <- transport.Datagram{Payload: wire.AckMessage(1), Host: "127.0.0.1", Port: 1111}

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
}

func TestRunCancelLetsTransfersFinish(t *testing.T) {
	tr := newFakeTransport()
	provider := block.NewMemoryProvider(map[string][]byte{"woo.txt": []byte("hello")})
	s, err := NewServer(
		WithTransport(tr),
		WithBlockProvider(provider),
		WithPort(69),
		WithIdleTimeout(time.Second),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	requestEp := tr.nextListened(t)
	requestEp.in <- transport.Datagram{
		Payload: wire.ReadRequestMessage("woo.txt", "netascii"),
		Host:    "127.0.0.1",
		Port:    1111,
	}
	transferEp := tr.nextListened(t)
	select {
	case <-transferEp.sent:
	case <-time.After(time.Second):
		t.Fatal("first block not sent")
	}

	// cancelling stops the listener but not the in-flight transfer
	cancel()
	select {
	case err := <-errCh:
		t.Fatalf("run returned before the transfer finished: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	// the transfer still accepts its ack and completes, unblocking Run
	transferEp.in <- transport.Datagram{Payload: wire.AckMessage(1), Host: "127.0.0.1", Port: 1111}
	require.ErrorIs(t, <-errCh, context.Canceled)
}

func TestRunStopsWhenRequestEndpointCloses(t *testing.T) {
	defer goleak.VerifyNone(t)
	tr := newFakeTransport()
	provider := block.NewMemoryProvider(nil)
	s, err := NewServer(
		WithTransport(tr),
		WithBlockProvider(provider),
		WithPort(69),
	)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(context.Background()) }()

	// a request socket failure ends Run without a cancellation
	requestEp := tr.nextListened(t)
	require.NoError(t, requestEp.Close())
	require.NoError(t, <-errCh)
}

func TestRunDiscardsMalformedRequests(t *testing.T) {
	tr := newFakeTransport()
	provider := block.NewMemoryProvider(map[string][]byte{"woo.txt": []byte("hello")})
	s, err := NewServer(
		WithTransport(tr),
		WithBlockProvider(provider),
		WithPort(69),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	requestEp := tr.nextListened(t)
	for _, payload := range [][]byte{
		{},
		{0x00},
		wire.AckMessage(1),
		[]byte("\x00\x02woo.txt\x00netascii\x00"), // write requests are discarded too
		[]byte("\x00\x01woo.txt\x00netascii"),
	} {
		requestEp.in <- transport.Datagram{Payload: payload, Host: "127.0.0.1", Port: 1111}
	}
	tr.requireNoneListened(t)

	// a valid request afterwards still starts a transfer
	requestEp.in <- transport.Datagram{
		Payload: wire.ReadRequestMessage("woo.txt", "netascii"),
		Host:    "127.0.0.1",
		Port:    1111,
	}
	transferEp := tr.nextListened(t)
	transferEp.in <- transport.Datagram{Payload: wire.AckMessage(1), Host: "127.0.0.1", Port: 1111}

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
}
