//go:build !unix

package ws

import "net"

// tuneSocket is a no-op on platforms where golang.org/x/sys/unix's socket
// option constants don't apply.
func tuneSocket(conn net.Conn) {}
