package ws

import (
	"net/http"
	"time"
)

// Options holds the recognized dial and connection configuration surface.
// Read-only once Connect begins.
type Options struct {
	// HandshakeTimeout bounds the combined TCP connect and handshake header
	// exchange. Zero selects the 5s default.
	HandshakeTimeout time.Duration

	// MaxFrameSize is the decoded-payload ceiling; zero selects the 1 MiB
	// default. A negative value disables the check.
	MaxFrameSize int64

	// HeartbeatInterval is the period between unsolicited PING frames while
	// OPEN. Zero selects the 30s default unless DisableHeartbeat was used; a
	// negative value disables heartbeats.
	HeartbeatInterval time.Duration
	heartbeatSet      bool

	// PongTimeout bounds how long to await a matching PONG after a
	// heartbeat PING before declaring the link dead. Zero selects the 10s
	// default; a negative value disables enforcement.
	PongTimeout time.Duration

	// Header carries extra request headers appended verbatim to the
	// upgrade request.
	Header http.Header

	// Extensions maps extension token to parameter string, emitted in
	// Sec-WebSocket-Extensions.
	Extensions map[string]string

	// Compression is an optional stream transform hook; see compress.go.
	// The core never sets RSV1 itself — see Compressor doc comment.
	Compression Compressor

	// InsecureSkipVerify is carried in Options but is not passed to the TLS
	// dialer: wss:// connections always verify the server's certificate
	// chain and host name, whatever this field is set to.
	InsecureSkipVerify bool
}

const (
	defaultHandshakeTimeout = 5 * time.Second
	defaultMaxFrameSize     = 1 << 20 // 1 MiB
	defaultHeartbeat        = 30 * time.Second
	defaultPongTimeout      = 10 * time.Second
	recvSliceTimeout        = 200 * time.Millisecond
)

// withDefaults returns a copy of o with zero-valued fields replaced by
// their defaults.
func (o Options) withDefaults() Options {
	out := o
	if out.HandshakeTimeout <= 0 {
		out.HandshakeTimeout = defaultHandshakeTimeout
	}
	if out.MaxFrameSize == 0 {
		out.MaxFrameSize = defaultMaxFrameSize
	} else if out.MaxFrameSize < 0 {
		out.MaxFrameSize = 0 // disabled
	}
	if !out.heartbeatSet && out.HeartbeatInterval == 0 {
		out.HeartbeatInterval = defaultHeartbeat
	} else if out.HeartbeatInterval < 0 {
		out.HeartbeatInterval = 0
	}
	if out.PongTimeout == 0 {
		out.PongTimeout = defaultPongTimeout
	} else if out.PongTimeout < 0 {
		out.PongTimeout = 0
	}
	return out
}

// DisableHeartbeat marks HeartbeatInterval=0 as an explicit choice rather
// than "unset", so withDefaults doesn't silently reinstate the 30s default.
func (o Options) DisableHeartbeat() Options {
	o.HeartbeatInterval = 0
	o.heartbeatSet = true
	return o
}

// OutcomeKind enumerates the classes of result a dial or send can produce.
type OutcomeKind int

const (
	OutcomeOK OutcomeKind = iota
	OutcomeBadURL
	OutcomeTransportFailed
	OutcomeTLSFailed
	OutcomeHandshakeFailed
	OutcomeProtocolViolation
	OutcomeTimeout
	OutcomeClosed
	OutcomeNotOpen
	OutcomeBadArgument
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeBadURL:
		return "bad-url"
	case OutcomeTransportFailed:
		return "transport-failed"
	case OutcomeTLSFailed:
		return "tls-failed"
	case OutcomeHandshakeFailed:
		return "handshake-failed"
	case OutcomeProtocolViolation:
		return "protocol-violation"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeClosed:
		return "closed"
	case OutcomeNotOpen:
		return "not-open"
	case OutcomeBadArgument:
		return "bad-argument"
	default:
		return "unknown"
	}
}

// Outcome is the structured result surfaced to callers in place of a bare
// error, so a caller can switch on Kind without string-matching a message.
type Outcome struct {
	Kind    OutcomeKind
	Message string
}

// OK reports whether the outcome represents success.
func (o Outcome) OK() bool { return o.Kind == OutcomeOK }

// Error satisfies the error interface so an Outcome can be returned or
// wrapped anywhere plain error values are expected.
func (o Outcome) Error() string {
	if o.Message == "" {
		return o.Kind.String()
	}
	return o.Kind.String() + ": " + o.Message
}
