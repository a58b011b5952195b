//go:build unix

package ws

import (
	"net"

	"golang.org/x/sys/unix"
)

// tuneSocket sets TCP_NODELAY on the raw descriptor so small control frames
// (pings, pongs, close) aren't held back by Nagle's algorithm. Best-effort:
// failure here never aborts the connect, it only costs a bit of latency.
func tuneSocket(conn net.Conn) {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	raw, err := tcpConn.SyscallConn()
	if err != nil {
		return
	}
	_ = raw.Control(func(fd uintptr) {
		_ = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	})
}
