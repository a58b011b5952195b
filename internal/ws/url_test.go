package ws

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseURL_RoundTrip(t *testing.T) {
	cases := []struct {
		scheme string
		host   string
		port   int
		path   string
	}{
		{"ws", "example.com", 1, "/a"},
		{"ws", "127.0.0.1", 8080, "/"},
		{"wss", "example.com", 443, "/chat"},
		{"wss", "example.com", 65535, "/a/b/c"},
	}

	for _, c := range cases {
		raw := c.scheme + "://" + c.host + ":" + itoa(c.port) + c.path
		e, err := parseURL(raw)
		require.NoError(t, err, raw)
		require.Equal(t, c.host, e.Host)
		require.Equal(t, c.port, e.Port)
		require.Equal(t, c.path, e.Path)
		wantScheme := SchemeInsecure
		if c.scheme == "wss" {
			wantScheme = SchemeSecure
		}
		require.Equal(t, wantScheme, e.Scheme)
	}
}

func TestParseURL_DefaultPort(t *testing.T) {
	e, err := parseURL("ws://example.com/")
	require.NoError(t, err)
	require.Equal(t, 80, e.Port)

	e, err = parseURL("wss://example.com/")
	require.NoError(t, err)
	require.Equal(t, 443, e.Port)
}

func TestParseURL_DefaultPath(t *testing.T) {
	e, err := parseURL("ws://example.com")
	require.NoError(t, err)
	require.Equal(t, "/", e.Path)
}

func TestParseURL_Query(t *testing.T) {
	e, err := parseURL("ws://example.com/a?x=1&y=2")
	require.NoError(t, err)
	require.Equal(t, "/a", e.Path)
	require.Equal(t, "x=1&y=2", e.Query)

	e, err = parseURL("ws://example.com?x=1")
	require.NoError(t, err)
	require.Equal(t, "/", e.Path)
	require.Equal(t, "x=1", e.Query)
}

func TestParseURL_BadScheme(t *testing.T) {
	_, err := parseURL("http://example.com/")
	require.Error(t, err)
}

func TestParseURL_MissingSeparator(t *testing.T) {
	_, err := parseURL("ws:example.com/")
	require.Error(t, err)
}

func TestParseURL_EmptyHost(t *testing.T) {
	_, err := parseURL("ws:///a")
	require.Error(t, err)
}

func TestParseURL_BadPort(t *testing.T) {
	for _, raw := range []string{
		"ws://host:0/",
		"ws://host:70000/",
		"ws://host:abc/",
		"ws://host:/",
	} {
		_, err := parseURL(raw)
		require.Error(t, err, raw)
	}
}

func TestHostHeader_OmitsDefaultPort(t *testing.T) {
	e, err := parseURL("ws://example.com/")
	require.NoError(t, err)
	require.Equal(t, "example.com", e.hostHeader())

	e, err = parseURL("ws://example.com:8080/")
	require.NoError(t, err)
	require.Equal(t, "example.com:8080", e.hostHeader())
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
