package transport

import (
	"net"
)

// UDPAdapter staples a fixed remote address onto a net.PacketConn so every
// Write goes to that one peer and every Read is filtered to packets that
// came from it — the shape spec.md's C6 section describes for a
// single-peer datagram transport, and the Go counterpart of
// original_source's udp() example helper (which binds a UdpFramed to one
// fixed destination).
type UDPAdapter struct {
	conn   *net.UDPConn
	remote *net.UDPAddr
}

// DialUDP opens a UDP socket bound to localAddr (may be empty for an
// ephemeral port) with remoteAddr stapled as the only peer it will
// exchange datagrams with.
func DialUDP(localAddr, remoteAddr string) (*UDPAdapter, error) {
	remote, err := net.ResolveUDPAddr("udp", remoteAddr)
	if err != nil {
		return nil, err
	}
	var local *net.UDPAddr
	if localAddr != "" {
		local, err = net.ResolveUDPAddr("udp", localAddr)
		if err != nil {
			return nil, err
		}
	}
	conn, err := net.DialUDP("udp", local, remote)
	if err != nil {
		return nil, err
	}
	if err := tuneRecvBuffer(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &UDPAdapter{conn: conn, remote: remote}, nil
}

func (u *UDPAdapter) Read(p []byte) (int, error) {
	for {
		n, from, err := u.conn.ReadFromUDP(p)
		if err != nil {
			return n, err
		}
		if from.IP.Equal(u.remote.IP) && from.Port == u.remote.Port {
			return n, nil
		}
		// Datagram from an unexpected sender: discard and read the next one,
		// same "not our peer" filtering a stapled udp socket needs.
	}
}

func (u *UDPAdapter) Write(p []byte) (int, error) { return u.conn.Write(p) }
func (u *UDPAdapter) Close() error                { return u.conn.Close() }
