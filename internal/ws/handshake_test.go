package ws

import (
	"crypto/sha1"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeAccept_KnownVector(t *testing.T) {
	// The example key/accept pair from RFC 6455 §1.3.
	const key = "dGhlIHNhbXBsZSBub25jZQ=="
	const want = "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
	require.Equal(t, want, computeAccept(key))
}

func TestComputeAccept_MatchesDefinition(t *testing.T) {
	key := "x3JJHMbDL1EzLkh9GBhXDw=="
	h := sha1.Sum([]byte(key + handshakeGUID))
	want := base64.StdEncoding.EncodeToString(h[:])
	require.Equal(t, want, computeAccept(key))
}

func TestValidateHandshakeResponse_Accepts(t *testing.T) {
	key, err := newHandshakeKey()
	require.NoError(t, err)

	resp := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + key.expectedAccept + "\r\n\r\n"

	outcome := validateHandshakeResponse([]byte(resp), key)
	require.True(t, outcome.OK())
}

func TestValidateHandshakeResponse_RejectsPerturbedAccept(t *testing.T) {
	key, err := newHandshakeKey()
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(key.expectedAccept)
	require.NoError(t, err)
	raw[0] ^= 0x01
	perturbed := base64.StdEncoding.EncodeToString(raw)
	require.NotEqual(t, key.expectedAccept, perturbed)

	resp := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + perturbed + "\r\n\r\n"

	outcome := validateHandshakeResponse([]byte(resp), key)
	require.Equal(t, OutcomeHandshakeFailed, outcome.Kind)
}

func TestValidateHandshakeResponse_RejectsBadStatus(t *testing.T) {
	key, err := newHandshakeKey()
	require.NoError(t, err)

	resp := "HTTP/1.1 200 OK\r\n\r\n"
	outcome := validateHandshakeResponse([]byte(resp), key)
	require.Equal(t, OutcomeHandshakeFailed, outcome.Kind)
}

func TestValidateHandshakeResponse_CaseInsensitiveTokens(t *testing.T) {
	key, err := newHandshakeKey()
	require.NoError(t, err)

	resp := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: WebSocket\r\n" +
		"Connection: upgrade, keep-alive\r\n" +
		"Sec-WebSocket-Accept:   " + key.expectedAccept + "   \r\n\r\n"

	outcome := validateHandshakeResponse([]byte(resp), key)
	require.True(t, outcome.OK())
}

func TestBuildUpgradeRequest_ContainsRequiredFields(t *testing.T) {
	e, err := parseURL("ws://example.com:8080/chat?x=1")
	require.NoError(t, err)
	key, err := newHandshakeKey()
	require.NoError(t, err)

	req := string(buildUpgradeRequest(e, key, nil, map[string]string{"permessage-deflate": "client_max_window_bits"}))

	require.True(t, strings.HasPrefix(req, "GET /chat?x=1 HTTP/1.1\r\n"))
	require.Contains(t, req, "Host: example.com:8080\r\n")
	require.Contains(t, req, "Upgrade: websocket\r\n")
	require.Contains(t, req, "Connection: Upgrade\r\n")
	require.Contains(t, req, "Sec-WebSocket-Key: "+key.base64Key+"\r\n")
	require.Contains(t, req, "Sec-WebSocket-Version: 13\r\n")
	require.Contains(t, req, "Sec-WebSocket-Extensions: permessage-deflate; client_max_window_bits\r\n")
	require.True(t, strings.HasSuffix(req, "\r\n\r\n"))
}
