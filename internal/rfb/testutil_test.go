package rfb

import "net"

// loopback wraps a synchronous in-memory net.Pipe so auth/handshake code
// exercised in tests can talk over the same readWriter interface it uses
// against a real net.Conn.
type loopback struct {
	server net.Conn
	client net.Conn
}

func newLoopback() (*loopback, error) {
	server, client := net.Pipe()
	return &loopback{server: server, client: client}, nil
}

func (l *loopback) Close() error {
	_ = l.server.Close()
	return l.client.Close()
}
