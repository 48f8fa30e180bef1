//go:build linux

package transport

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// udpRecvBuffer is the SO_RCVBUF size requested for a GCS-to-vehicle UDP
// socket: large enough to absorb a burst of telemetry (GLOBAL_POSITION_INT,
// STATUSTEXT, COMMAND_ACK) without kernel-side drops between scheduler
// ticks. Mirrors the teacher's internal/socketcan/device.go raw-syscall
// role, applied here to a UDP socket instead of a CAN socket.
const udpRecvBuffer = 1 << 20

func tuneRecvBuffer(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return fmt.Errorf("syscall conn: %w", err)
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, udpRecvBuffer)
	})
	if err != nil {
		return err
	}
	if sockErr != nil && sockErr != unix.ENOPROTOOPT {
		return fmt.Errorf("setsockopt(SO_RCVBUF): %w", sockErr)
	}
	return nil
}
