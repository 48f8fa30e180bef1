//go:build !linux

package transport

import "net"

// tuneRecvBuffer is a no-op on non-Linux builds; SO_RCVBUF tuning via
// golang.org/x/sys/unix only applies to Linux's syscall surface.
func tuneRecvBuffer(*net.UDPConn) error { return nil }
