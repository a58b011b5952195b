package ws

import (
	"crypto/tls"
	"net"
	"time"

	"github.com/pkg/errors"
)

// transport is the blocking socket primitive underneath a connection: a
// timed connect, an optional TLS upgrade with SNI, and slice-oriented
// read/write calls that let the protocol engine weave in periodic
// bookkeeping between reads.
type transport struct {
	conn net.Conn
}

// dialTransport resolves host:port, connects within timeout, and optionally
// performs a TLS client handshake using host as SNI. Candidate resolution
// and the connect-with-deadline handling are delegated to net.Dialer.Dial,
// which already iterates resolved addresses internally and applies a
// single deadline across the attempt; reimplementing that with raw
// non-blocking sockets and a manual readiness primitive would just be an
// unsafe rebuild of what the standard library's dialer already guarantees.
func dialTransport(host string, port int, useTLS bool, timeout time.Duration) (*transport, Outcome) {
	addr := net.JoinHostPort(host, portString(port))

	d := net.Dialer{Timeout: timeout}
	deadline := time.Now().Add(timeout)

	rawConn, err := d.Dial("tcp", addr)
	if err != nil {
		return nil, Outcome{Kind: OutcomeTransportFailed, Message: errors.Wrap(err, "tcp connect").Error()}
	}

	tuneSocket(rawConn)

	if !useTLS {
		return &transport{conn: rawConn}, Outcome{Kind: OutcomeOK}
	}

	tlsConn := tls.Client(rawConn, &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	})
	if err := tlsConn.SetDeadline(deadline); err != nil {
		_ = rawConn.Close()
		return nil, Outcome{Kind: OutcomeTLSFailed, Message: errors.Wrap(err, "set tls deadline").Error()}
	}
	if err := tlsConn.Handshake(); err != nil {
		_ = rawConn.Close()
		return nil, Outcome{Kind: OutcomeTLSFailed, Message: errors.Wrap(err, "tls handshake").Error()}
	}
	_ = tlsConn.SetDeadline(time.Time{})

	return &transport{conn: tlsConn}, Outcome{Kind: OutcomeOK}
}

// sendAll writes every byte of b, returning transport-failed on any hard
// error. net.Conn.Write already loops internally until all bytes are
// written or an error occurs, so no manual retry of partial writes is
// needed here.
func (t *transport) sendAll(b []byte) Outcome {
	if _, err := t.conn.Write(b); err != nil {
		return Outcome{Kind: OutcomeTransportFailed, Message: errors.Wrap(err, "write").Error()}
	}
	return Outcome{Kind: OutcomeOK}
}

// recvSome waits up to timeout for readability and returns the number of
// bytes read into buf. It returns (0, nil) on a read timeout (caller should
// loop), (n>0, nil) on data, and (0, err) on peer close or a hard error.
func (t *transport) recvSome(buf []byte, timeout time.Duration) (int, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, err
	}
	n, err := t.conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return 0, nil
		}
		return n, err
	}
	return n, nil
}

// close is idempotent and best-effort: it attempts a TLS shutdown when
// applicable, then closes the underlying socket.
func (t *transport) close() error {
	if tlsConn, ok := t.conn.(*tls.Conn); ok {
		_ = tlsConn.CloseWrite()
	}
	return t.conn.Close()
}

func portString(port int) string {
	const digits = "0123456789"
	if port == 0 {
		return "0"
	}
	var buf [5]byte
	i := len(buf)
	for port > 0 {
		i--
		buf[i] = digits[port%10]
		port /= 10
	}
	return string(buf[i:])
}
