package ws

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	handshakeGUID  = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"
	maxHeaderBytes = 32 * 1024
)

// handshakeKey is a fresh client nonce plus the Sec-WebSocket-Accept value a
// conforming server must return.
type handshakeKey struct {
	base64Key      string
	expectedAccept string
}

func newHandshakeKey() (handshakeKey, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return handshakeKey{}, errors.Wrap(err, "generate Sec-WebSocket-Key nonce")
	}
	key := base64.StdEncoding.EncodeToString(raw[:])
	return handshakeKey{
		base64Key:      key,
		expectedAccept: computeAccept(key),
	}, nil
}

// computeAccept computes the expected Sec-WebSocket-Accept value for a
// given base64 client key, per RFC 6455 §1.3/§4.2.2: SHA-1 of the key
// concatenated with the protocol's fixed GUID, base64-encoded.
func computeAccept(base64Key string) string {
	h := sha1.Sum([]byte(base64Key + handshakeGUID))
	return base64.StdEncoding.EncodeToString(h[:])
}

// buildUpgradeRequest renders the HTTP/1.1 upgrade request line and headers
// per RFC 6455 §4.1/§4.2.1. extraHeaders are appended verbatim; extensions,
// if any, are joined into a single Sec-WebSocket-Extensions header.
func buildUpgradeRequest(e Endpoint, key handshakeKey, extraHeaders http.Header, extensions map[string]string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "GET %s HTTP/1.1\r\n", e.requestURI())
	fmt.Fprintf(&b, "Host: %s\r\n", e.hostHeader())
	fmt.Fprintf(&b, "Upgrade: websocket\r\n")
	fmt.Fprintf(&b, "Connection: Upgrade\r\n")
	fmt.Fprintf(&b, "Sec-WebSocket-Key: %s\r\n", key.base64Key)
	fmt.Fprintf(&b, "Sec-WebSocket-Version: 13\r\n")

	for name, values := range extraHeaders {
		for _, v := range values {
			fmt.Fprintf(&b, "%s: %s\r\n", name, v)
		}
	}

	if len(extensions) > 0 {
		parts := make([]string, 0, len(extensions))
		for name, params := range extensions {
			if params == "" {
				parts = append(parts, name)
			} else {
				parts = append(parts, name+"; "+params)
			}
		}
		fmt.Fprintf(&b, "Sec-WebSocket-Extensions: %s\r\n", strings.Join(parts, ", "))
	}

	b.WriteString("\r\n")
	return []byte(b.String())
}

// readHandshakeResponse accumulates bytes from recv until the header block
// terminator appears, enforcing both the handshake deadline and a 32 KiB
// header size cap against a server that never sends one.
func readHandshakeResponse(t *transport, deadline time.Time) ([]byte, Outcome) {
	buf := make([]byte, 0, 512)
	chunk := make([]byte, 512)

	for {
		if time.Now().After(deadline) {
			return nil, Outcome{Kind: OutcomeTimeout, Message: "timed out waiting for handshake response"}
		}
		if len(buf) > maxHeaderBytes {
			return nil, Outcome{Kind: OutcomeHandshakeFailed, Message: "handshake header block exceeds 32 KiB without terminator"}
		}

		slice := 200 * time.Millisecond
		if remaining := time.Until(deadline); remaining < slice {
			slice = remaining
		}
		n, err := t.recvSome(chunk, slice)
		if err != nil {
			return nil, Outcome{Kind: OutcomeTransportFailed, Message: errors.Wrap(err, "read handshake response").Error()}
		}
		if n == 0 {
			continue
		}
		buf = append(buf, chunk[:n]...)
		if idx := indexHeaderTerminator(buf); idx >= 0 {
			return buf[:idx+4], Outcome{Kind: OutcomeOK}
		}
	}
}

func indexHeaderTerminator(buf []byte) int {
	const term = "\r\n\r\n"
	return strings.Index(string(buf), term)
}

// validateHandshakeResponse checks the raw header block against key per
// RFC 6455 §4.1: the 101 status line, Upgrade/Connection tokens, and the
// Sec-WebSocket-Accept value.
func validateHandshakeResponse(raw []byte, key handshakeKey) Outcome {
	lines := strings.Split(string(raw), "\r\n")
	if len(lines) == 0 {
		return Outcome{Kind: OutcomeHandshakeFailed, Message: "empty handshake response"}
	}

	statusLine := lines[0]
	if !strings.Contains(statusLine, "HTTP/1.1 101") {
		return Outcome{Kind: OutcomeHandshakeFailed, Message: fmt.Sprintf("unexpected status line %q", statusLine)}
	}

	headers := make(textproto.MIMEHeader)
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			continue
		}
		name := textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(line[:colon]))
		value := strings.TrimSpace(line[colon+1:])
		headers.Add(name, value)
	}

	upgrade := headers.Get("Upgrade")
	if !containsToken(upgrade, "websocket") {
		return Outcome{Kind: OutcomeHandshakeFailed, Message: fmt.Sprintf("missing Upgrade: websocket token, got %q", upgrade)}
	}

	connection := headers.Get("Connection")
	if !containsToken(connection, "upgrade") {
		return Outcome{Kind: OutcomeHandshakeFailed, Message: fmt.Sprintf("missing Connection: upgrade token, got %q", connection)}
	}

	accept := strings.TrimSpace(headers.Get("Sec-WebSocket-Accept"))
	if accept == "" {
		return Outcome{Kind: OutcomeHandshakeFailed, Message: "missing Sec-WebSocket-Accept"}
	}
	if accept != key.expectedAccept {
		return Outcome{Kind: OutcomeHandshakeFailed, Message: "Sec-WebSocket-Accept mismatch"}
	}

	return Outcome{Kind: OutcomeOK}
}

func containsToken(headerValue, token string) bool {
	for _, part := range strings.Split(headerValue, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}
