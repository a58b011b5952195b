package ws

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Scheme identifies whether an Endpoint requires a TLS upgrade.
type Scheme int

const (
	SchemeInsecure Scheme = iota // ws
	SchemeSecure                 // wss
)

// Endpoint is the decomposed form of a ws[s]://host[:port][/path][?query] URL.
type Endpoint struct {
	Scheme Scheme
	Host   string
	Port   int
	Path   string
	Query  string
}

// defaultPort returns the port implied by scheme when the URL omits one.
func (s Scheme) defaultPort() int {
	if s == SchemeSecure {
		return 443
	}
	return 80
}

// parseURL decomposes a ws[s]:// URL into its connection-relevant parts. It
// does not percent-decode the path or query, and it does not consult
// net/url: the grammar enforced here is a strict subset (single ':'
// host:port split, first '/' starts the path, only ws/wss schemes) that
// net/url's more permissive parser would happily accept instead of rejecting.
func parseURL(rawURL string) (Endpoint, error) {
	const sep = "://"
	idx := strings.Index(rawURL, sep)
	if idx < 0 {
		return Endpoint{}, errors.New("missing scheme separator \"://\"")
	}
	schemeStr := rawURL[:idx]
	rest := rawURL[idx+len(sep):]

	var scheme Scheme
	switch schemeStr {
	case "ws":
		scheme = SchemeInsecure
	case "wss":
		scheme = SchemeSecure
	default:
		return Endpoint{}, errors.Errorf("unsupported scheme %q", schemeStr)
	}

	authority := rest
	path := "/"
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		authority = rest[:slash]
		path = rest[slash:]
	}

	query := ""
	if q := strings.IndexByte(authority, '?'); q >= 0 {
		// query with no explicit path, e.g. "ws://host?x=1"
		query = authority[q+1:]
		authority = authority[:q]
	} else if q := strings.IndexByte(path, '?'); q >= 0 {
		query = path[q+1:]
		path = path[:q]
	}

	if authority == "" {
		return Endpoint{}, errors.New("empty host")
	}

	host := authority
	port := scheme.defaultPort()
	if i := strings.IndexByte(authority, ':'); i >= 0 {
		if strings.IndexByte(authority[i+1:], ':') >= 0 {
			return Endpoint{}, errors.Errorf("malformed authority %q", authority)
		}
		host = authority[:i]
		portStr := authority[i+1:]
		p, err := strconv.Atoi(portStr)
		if err != nil || portStr == "" {
			return Endpoint{}, errors.Errorf("malformed port %q", portStr)
		}
		if p < 1 || p > 65535 {
			return Endpoint{}, errors.Errorf("port %d out of range", p)
		}
		port = p
	}
	if host == "" {
		return Endpoint{}, errors.New("empty host")
	}

	return Endpoint{
		Scheme: scheme,
		Host:   host,
		Port:   port,
		Path:   path,
		Query:  query,
	}, nil
}

// requestURI rebuilds the path+query for use on the HTTP request line.
func (e Endpoint) requestURI() string {
	if e.Query == "" {
		return e.Path
	}
	return e.Path + "?" + e.Query
}

// hostHeader returns the Host header value, appending :port only when the
// port is non-default for the scheme.
func (e Endpoint) hostHeader() string {
	if e.Port == e.Scheme.defaultPort() {
		return e.Host
	}
	return e.Host + ":" + strconv.Itoa(e.Port)
}
