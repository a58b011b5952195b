package ws

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nuid"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// State is the connection lifecycle state.
type State int32

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Callbacks are the user-facing event hooks. They must be set before
// Connect and not mutated afterward (single-writer, set once). All are
// invoked from the worker goroutine; none of the synchronous API calls
// invoke them directly.
type Callbacks struct {
	OnOpen   func()
	OnText   func(string)
	OnBinary func([]byte)
	OnClose  func()
	OnError  func(Outcome)
}

func (cb Callbacks) fireOpen() {
	if cb.OnOpen != nil {
		cb.OnOpen()
	}
}
func (cb Callbacks) fireText(s string) {
	if cb.OnText != nil {
		cb.OnText(s)
	}
}
func (cb Callbacks) fireBinary(b []byte) {
	if cb.OnBinary != nil {
		cb.OnBinary(b)
	}
}
func (cb Callbacks) fireClose() {
	if cb.OnClose != nil {
		cb.OnClose()
	}
}
func (cb Callbacks) fireError(o Outcome) {
	if cb.OnError != nil {
		cb.OnError(o)
	}
}

// controlFrameRate and controlFrameBurst bound how many unsolicited
// PING/auto-PONG frames the worker will emit per second. They exist so a
// peer flooding pings cannot turn this client into an unbounded outbound
// pong generator; they never block the caller's own SendText/SendBinary/Ping
// calls.
const (
	controlFrameRate  = 20 // per second
	controlFrameBurst = 20
)

// Conn is a single client-side websocket connection: the transport socket,
// the receive buffer, the worker goroutine, the sender lock, and the
// callback set.
type Conn struct {
	id        string
	callbacks Callbacks
	opts      Options

	state atomic.Int32

	sendMu sync.Mutex
	t      *transport

	stopCh   chan struct{}
	stopOnce sync.Once
	closeWg  sync.WaitGroup

	closeOnce sync.Once

	controlLimiter *rate.Limiter

	// worker-local state; touched only from the receive loop goroutine.
	recvBuf      []byte
	fragmenting  bool
	fragOpcode   Opcode
	fragPayload  []byte
	lastPing     time.Time
	awaitingPong bool
	pongDeadline time.Time
}

// NewConn constructs a Conn in the CLOSED state. Callbacks and opts must not
// be modified after the first call to Connect.
func NewConn(callbacks Callbacks, opts Options) *Conn {
	return &Conn{
		id:             nuid.Next(),
		callbacks:      callbacks,
		opts:           opts.withDefaults(),
		controlLimiter: rate.NewLimiter(rate.Limit(controlFrameRate), controlFrameBurst),
	}
}

// ID returns a short per-connection correlation id, stable for the life of
// the Conn object, useful for matching client-side logs to a server's own
// per-connection logs.
func (c *Conn) ID() string { return c.id }

// withID prefixes a non-OK Outcome's message with this connection's
// correlation id, so a caller logging Outcome.Error() across many
// concurrent Conns can tell which one failed.
func (c *Conn) withID(o Outcome) Outcome {
	if o.OK() {
		return o
	}
	if o.Message == "" {
		o.Message = c.id
	} else {
		o.Message = c.id + ": " + o.Message
	}
	return o
}

// State returns the current lifecycle state. Safe for concurrent use.
func (c *Conn) State() State {
	return State(c.state.Load())
}

func (c *Conn) setState(s State) {
	c.state.Store(int32(s))
}

// Connect resolves the URL, dials the transport, performs the opening
// handshake and, on success, enters OPEN and spawns the receive loop. It is
// only valid from CLOSED.
func (c *Conn) Connect(rawURL string) Outcome {
	if !c.state.CompareAndSwap(int32(StateClosed), int32(StateConnecting)) {
		return c.withID(Outcome{Kind: OutcomeNotOpen, Message: "Connect is only valid from the CLOSED state"})
	}

	if o := validateCompression(c.opts.Compression); !o.OK() {
		c.setState(StateClosed)
		return c.withID(o)
	}

	endpoint, err := parseURL(rawURL)
	if err != nil {
		c.setState(StateClosed)
		return c.withID(Outcome{Kind: OutcomeBadURL, Message: err.Error()})
	}

	deadline := time.Now().Add(c.opts.HandshakeTimeout)

	tr, outcome := dialTransport(endpoint.Host, endpoint.Port, endpoint.Scheme == SchemeSecure, c.opts.HandshakeTimeout)
	if !outcome.OK() {
		c.setState(StateClosed)
		return c.withID(outcome)
	}

	key, err := newHandshakeKey()
	if err != nil {
		_ = tr.close()
		c.setState(StateClosed)
		return c.withID(Outcome{Kind: OutcomeHandshakeFailed, Message: err.Error()})
	}

	req := buildUpgradeRequest(endpoint, key, c.opts.Header, c.opts.Extensions)
	if outcome := tr.sendAll(req); !outcome.OK() {
		_ = tr.close()
		c.setState(StateClosed)
		return c.withID(outcome)
	}

	raw, outcome := readHandshakeResponse(tr, deadline)
	if !outcome.OK() {
		_ = tr.close()
		c.setState(StateClosed)
		return c.withID(outcome)
	}

	if outcome := validateHandshakeResponse(raw, key); !outcome.OK() {
		_ = tr.close()
		c.setState(StateClosed)
		return c.withID(outcome)
	}

	c.t = tr
	c.stopCh = make(chan struct{})
	c.setState(StateOpen)

	c.callbacks.fireOpen()

	c.closeWg.Add(1)
	go c.receiveLoop()

	return Outcome{Kind: OutcomeOK}
}

// SendText emits one unfragmented final TEXT frame. Valid only while OPEN.
func (c *Conn) SendText(s string) Outcome {
	return c.sendData(OpText, []byte(s))
}

// SendBinary emits one unfragmented final BINARY frame. Valid only while OPEN.
func (c *Conn) SendBinary(b []byte) Outcome {
	return c.sendData(OpBinary, b)
}

func (c *Conn) sendData(op Opcode, payload []byte) Outcome {
	if c.State() != StateOpen {
		return Outcome{Kind: OutcomeNotOpen, Message: "connection is not open"}
	}
	return c.sendFrame(Frame{Final: true, Opcode: op, Payload: payload})
}

// Ping emits a PING frame with the given payload (at most 125 bytes).
func (c *Conn) Ping(payload []byte) Outcome {
	if c.State() != StateOpen {
		return Outcome{Kind: OutcomeNotOpen, Message: "connection is not open"}
	}
	if len(payload) > maxControlPayload {
		return Outcome{Kind: OutcomeBadArgument, Message: "ping payload exceeds 125 bytes"}
	}
	return c.sendFrame(Frame{Final: true, Opcode: OpPing, Payload: payload})
}

// sendFrame serializes all outbound writes behind a single lock: no two
// frames may interleave on the wire, even when the worker emits an
// auto-pong concurrently with a caller's own send.
func (c *Conn) sendFrame(f Frame) Outcome {
	encoded, err := encodeFrame(f)
	if err != nil {
		return Outcome{Kind: OutcomeBadArgument, Message: err.Error()}
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.t == nil {
		return Outcome{Kind: OutcomeNotOpen, Message: "connection is not open"}
	}
	return c.withID(c.t.sendAll(encoded))
}

// Disconnect initiates the closing handshake if OPEN, signals the worker to
// stop, joins it, and closes the transport. Safe to call from any state and
// any number of times; the close callback fires at most once. The actual
// teardown (transport close, state -> CLOSED, on-close) is performed by
// finish, which both Disconnect and the worker's own exit path funnel
// through — this keeps peer-initiated close, protocol violations, and
// local disconnect all converging on one teardown sequence.
func (c *Conn) Disconnect() {
	if c.t == nil {
		// Never successfully connected (CLOSED, or a Connect call that
		// failed before a transport was established): nothing to tear
		// down, no worker to join, and no on-close — the connection was
		// never OPEN or left running.
		c.setState(StateClosed)
		return
	}

	if State(c.state.Load()) == StateOpen {
		_ = c.sendFrame(Frame{Final: true, Opcode: OpClose})
		c.setState(StateClosing)
	}

	c.stopOnce.Do(func() {
		close(c.stopCh)
	})

	c.closeWg.Wait()
	c.finish()
}

// finish performs the one-time teardown: best-effort transport close,
// state -> CLOSED, and the on-close callback. It runs exactly once whether
// triggered by the worker's own exit (peer close, protocol violation,
// transport failure) or by a caller's Disconnect.
func (c *Conn) finish() {
	c.closeOnce.Do(func() {
		c.sendMu.Lock()
		if c.t != nil {
			_ = c.t.close()
		}
		c.sendMu.Unlock()

		c.setState(StateClosed)
		c.callbacks.fireClose()
	})
}

// receiveLoop is the single worker goroutine per connection: it interleaves
// heartbeat bookkeeping with timed partial reads so it stays responsive to
// the stop signal without busy-waiting.
func (c *Conn) receiveLoop() {
	defer c.closeWg.Done()
	defer c.finish()

	c.callbacks.fireOpen()

	chunk := make([]byte, 4096)

	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		if outcome, done := c.tickHeartbeat(); done {
			c.reportError(outcome)
			return
		}

		n, err := c.t.recvSome(chunk, recvSliceTimeout)
		if err != nil {
			c.reportError(Outcome{Kind: OutcomeTransportFailed, Message: errors.Wrap(err, "recv").Error()})
			return
		}
		if n == 0 {
			continue
		}
		c.recvBuf = append(c.recvBuf, chunk[:n]...)

		for {
			result, err := decodeFrame(c.recvBuf, c.opts.MaxFrameSize)
			if err != nil {
				c.reportError(Outcome{Kind: OutcomeProtocolViolation, Message: err.Error()})
				return
			}
			if result.NeedMore {
				break
			}
			c.recvBuf = c.recvBuf[result.Consumed:]

			if shouldStop := c.dispatch(result.Frame); shouldStop {
				return
			}
		}
	}
}

// tickHeartbeat sends an unsolicited PING when the configured interval has
// elapsed, and enforces the pong-timeout: when a prior heartbeat PING's
// matching PONG is overdue, this is treated as a dead link.
func (c *Conn) tickHeartbeat() (Outcome, bool) {
	if c.opts.HeartbeatInterval <= 0 {
		return Outcome{}, false
	}
	now := time.Now()

	if c.awaitingPong && c.opts.PongTimeout > 0 && now.After(c.pongDeadline) {
		return Outcome{Kind: OutcomeTimeout, Message: "pong not received within timeout"}, true
	}

	if c.lastPing.IsZero() || now.Sub(c.lastPing) >= c.opts.HeartbeatInterval {
		if c.controlLimiter.Allow() {
			_ = c.sendFrame(Frame{Final: true, Opcode: OpPing})
		}
		c.lastPing = now
		c.awaitingPong = true
		c.pongDeadline = now.Add(c.opts.PongTimeout)
	}
	return Outcome{}, false
}

// dispatch handles one decoded frame according to RFC 6455 §5.5's
// control-frame semantics (PING auto-replies with PONG, PONG just clears
// the pending heartbeat, CLOSE echoes a CLOSE and ends the loop). It
// returns true when the worker should stop (peer-initiated close or an
// unrecoverable protocol violation).
func (c *Conn) dispatch(f Frame) bool {
	switch f.Opcode {
	case OpText, OpBinary, OpContinuation:
		return c.dispatchData(f)

	case OpPing:
		if c.controlLimiter.Allow() {
			_ = c.sendFrame(Frame{Final: true, Opcode: OpPong, Payload: f.Payload})
		}
		return false

	case OpPong:
		c.awaitingPong = false
		return false

	case OpClose:
		if c.State() == StateOpen {
			_ = c.sendFrame(Frame{Final: true, Opcode: OpClose})
			c.setState(StateClosing)
		}
		return true

	default:
		c.reportError(Outcome{Kind: OutcomeProtocolViolation, Message: "unknown opcode"})
		return true
	}
}

// dispatchData implements fragmentation reassembly per RFC 6455 §5.4:
// concatenate consecutive same-opcode frames until one arrives with
// Final=true; an interleaved new message while one is already open is a
// protocol violation.
func (c *Conn) dispatchData(f Frame) bool {
	if f.Opcode == OpContinuation {
		if !c.fragmenting {
			c.reportError(Outcome{Kind: OutcomeProtocolViolation, Message: "continuation frame without an open message"})
			return true
		}
		c.fragPayload = append(c.fragPayload, f.Payload...)
	} else {
		if c.fragmenting {
			c.reportError(Outcome{Kind: OutcomeProtocolViolation, Message: "interleaved data frame while a fragmented message is open"})
			return true
		}
		if !f.Final {
			c.fragmenting = true
			c.fragOpcode = f.Opcode
			c.fragPayload = append([]byte(nil), f.Payload...)
			return false
		}
		c.deliver(f.Opcode, f.Payload)
		return false
	}

	if f.Final {
		op := c.fragOpcode
		payload := c.fragPayload
		c.fragmenting = false
		c.fragOpcode = 0
		c.fragPayload = nil
		c.deliver(op, payload)
	}
	return false
}

func (c *Conn) deliver(op Opcode, payload []byte) {
	switch op {
	case OpText:
		c.callbacks.fireText(string(payload))
	case OpBinary:
		c.callbacks.fireBinary(payload)
	}
}

// reportError surfaces an asynchronous failure via on-error and moves the
// connection toward CLOSING; finish (deferred by receiveLoop) completes the
// transition to CLOSED afterward: a failure detected after OPEN fires
// on-error exactly once, then initiates close.
func (c *Conn) reportError(o Outcome) {
	if c.State() == StateOpen {
		c.setState(StateClosing)
	}
	c.callbacks.fireError(c.withID(o))
}
