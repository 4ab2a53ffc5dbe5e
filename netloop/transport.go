package netloop

import (
	"errors"
	"go.uber.org/zap"
	"net"
	"shadowswap/applog"
	"sync/atomic"
)

// ErrNoPeer is returned by a host transport asked to send before any client has spoken.
var ErrNoPeer = errors.New("peer address not known yet")

// Transport is the loop's view of the UDP socket: it only ever talks to one peer.
type Transport interface {
	// Receive blocks until a datagram from the peer arrives. It returns net.ErrClosed
	// (wrapped) once the transport is closed.
	Receive(buf []byte) (int, error)
	Send(data []byte) error
	// Peer is nil until the peer address is known.
	Peer() net.Addr
	Close() error
}

// HostTransport listens on a bound socket and adopts the source of the first datagram as its peer.
// Datagrams from any other address are ignored.
type HostTransport struct {
	conn *net.UDPConn
	peer atomic.Pointer[net.UDPAddr]
}

func NewHostTransport(conn *net.UDPConn) *HostTransport {
	return &HostTransport{conn: conn}
}

func (t *HostTransport) Receive(buf []byte) (int, error) {
	for {
		n, addr, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			return 0, err
		}

		peer := t.peer.Load()
		if peer == nil {
			if t.peer.CompareAndSwap(nil, addr) {
				applog.Info("Peer address learned", zap.String("peer", addr.String()))
				return n, nil
			}
			peer = t.peer.Load()
		}

		if !sameUDPAddr(peer, addr) {
			applog.Debug("Ignoring datagram from foreign address",
				zap.String("from", addr.String()),
				zap.String("peer", peer.String()))
			continue
		}
		return n, nil
	}
}

func (t *HostTransport) Send(data []byte) error {
	peer := t.peer.Load()
	if peer == nil {
		return ErrNoPeer
	}
	_, err := t.conn.WriteToUDP(data, peer)
	return err
}

func (t *HostTransport) Peer() net.Addr {
	if peer := t.peer.Load(); peer != nil {
		return peer
	}
	return nil
}

func (t *HostTransport) Close() error {
	return t.conn.Close()
}

// ClientTransport wraps a connected socket, so the kernel already filters other sources.
type ClientTransport struct {
	conn *net.UDPConn
}

func NewClientTransport(conn *net.UDPConn) *ClientTransport {
	return &ClientTransport{conn: conn}
}

func (t *ClientTransport) Receive(buf []byte) (int, error) {
	return t.conn.Read(buf)
}

func (t *ClientTransport) Send(data []byte) error {
	_, err := t.conn.Write(data)
	return err
}

func (t *ClientTransport) Peer() net.Addr {
	return t.conn.RemoteAddr()
}

func (t *ClientTransport) Close() error {
	return t.conn.Close()
}

func sameUDPAddr(a, b *net.UDPAddr) bool {
	return a.Port == b.Port && a.IP.Equal(b.IP) && a.Zone == b.Zone
}
