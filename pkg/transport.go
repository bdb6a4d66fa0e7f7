package scuttlebutt

import "net"

// Transport abstracts the unreliable datagram socket the Gossiper speaks
// its wire protocol over. The production implementation is udpTransport
// (backed by net.UDPConn); tests can substitute an in-memory fake to run
// multi-peer scenarios without touching the network. No ordering, no
// deduplication, and no retry is provided or expected at this layer.
type Transport interface {
	// LocalAddr returns the bound address, used to derive the peer's
	// stable HOST:PORT name.
	LocalAddr() net.Addr
	// ReadFrom blocks for the next datagram, or returns an error once the
	// transport is closed.
	ReadFrom(buf []byte) (n int, addr net.Addr, err error)
	// WriteTo sends a single datagram to addr. Like the transport
	// contract as a whole, failures here are non-fatal to the caller.
	WriteTo(buf []byte, addr net.Addr) (n int, err error)
	// ResolveName parses a HOST:PORT string into a dialable address.
	ResolveName(name string) (net.Addr, error)
	Close() error
}

// udpTransport is the production Transport, backed by a bound UDP
// socket, mirroring the read-loop idiom the teacher used for its raw UDP
// echo server (net.ListenUDP + ReadFromUDP/WriteToUDP).
type udpTransport struct {
	conn *net.UDPConn
}

// NewUDPTransport binds a UDP socket at bindAddr (HOST:PORT).
func NewUDPTransport(bindAddr string) (Transport, error) {
	addr, err := net.ResolveUDPAddr("udp", bindAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}
	return &udpTransport{conn: conn}, nil
}

func (t *udpTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

func (t *udpTransport) ReadFrom(buf []byte) (int, net.Addr, error) {
	n, addr, err := t.conn.ReadFromUDP(buf)
	return n, addr, err
}

func (t *udpTransport) WriteTo(buf []byte, addr net.Addr) (int, error) {
	return t.conn.WriteTo(buf, addr)
}

func (t *udpTransport) ResolveName(name string) (net.Addr, error) {
	return net.ResolveUDPAddr("udp", name)
}

func (t *udpTransport) Close() error {
	return t.conn.Close()
}
