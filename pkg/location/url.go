package location

import (
	"fmt"
	"net/url"
	"strings"
)

// URL holds the components of a browser location, using the same string
// conventions as window.location: Protocol includes the trailing colon,
// Search includes the leading "?" and Hash the leading "#", and both are
// empty when the component is absent.
type URL struct {
	Href     string `json:"href"`
	Hostname string `json:"hostname"`
	Protocol string `json:"protocol"`
	Port     string `json:"port"`
	Pathname string `json:"pathname"`
	Search   string `json:"search"`
	Hash     string `json:"hash"`
}

// Path returns pathname + search + hash.
func (u URL) Path() string {
	return u.Pathname + u.Search + u.Hash
}

// Host returns hostname[:port].
func (u URL) Host() string {
	if u.Port == "" {
		return u.Hostname
	}
	return u.Hostname + ":" + u.Port
}

// Origin returns protocol//host, e.g. "https://example.com:8443".
func (u URL) Origin() string {
	return u.Protocol + "//" + u.Host()
}

// String returns the full href composed from the components.
func (u URL) String() string {
	return u.Origin() + u.Path()
}

// ParseURL parses an absolute URL into browser location components.
func ParseURL(raw string) (URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return URL{}, fmt.Errorf("location: parse %q: %w", raw, err)
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return URL{}, fmt.Errorf("location: %q is not an absolute URL", raw)
	}
	return fromStd(parsed), nil
}

// Resolve resolves ref against u the way a browser resolves the URL passed
// to history.pushState or assigned to location.href.
func (u URL) Resolve(ref string) (URL, error) {
	base, err := url.Parse(u.String())
	if err != nil {
		return URL{}, fmt.Errorf("location: parse base %q: %w", u.String(), err)
	}
	target, err := url.Parse(ref)
	if err != nil {
		return URL{}, fmt.Errorf("location: parse %q: %w", ref, err)
	}
	return fromStd(base.ResolveReference(target)), nil
}

// WithHash returns a copy of u with its hash replaced. A hash without a
// leading "#" gets one, and "#" alone clears it.
func (u URL) WithHash(hash string) URL {
	u.Hash = normalizeHash(hash)
	u.Href = u.String()
	return u
}

func fromStd(p *url.URL) URL {
	u := URL{
		Protocol: strings.ToLower(p.Scheme) + ":",
		Hostname: strings.ToLower(p.Hostname()),
		Port:     p.Port(),
		Pathname: p.EscapedPath(),
	}
	if u.Pathname == "" {
		u.Pathname = "/"
	}
	if p.RawQuery != "" {
		u.Search = "?" + p.RawQuery
	}
	if frag := p.EscapedFragment(); frag != "" {
		u.Hash = "#" + frag
	}
	u.Href = u.String()
	return u
}

func normalizeHash(hash string) string {
	if hash == "" || hash == "#" {
		return ""
	}
	if !strings.HasPrefix(hash, "#") {
		return "#" + hash
	}
	return hash
}

// Field identifies one field of a [State].
type Field uint8

const (
	FieldHref Field = iota + 1
	FieldHostname
	FieldProtocol
	FieldPort
	FieldPathname
	FieldSearch
	FieldHash
	FieldReload
)

// String returns the field name as used on the browser side.
func (f Field) String() string {
	switch f {
	case FieldHref:
		return "href"
	case FieldHostname:
		return "hostname"
	case FieldProtocol:
		return "protocol"
	case FieldPort:
		return "port"
	case FieldPathname:
		return "pathname"
	case FieldSearch:
		return "search"
	case FieldHash:
		return "hash"
	case FieldReload:
		return "reload"
	default:
		return "unknown"
	}
}

// ReadOnly reports whether the field mirrors browser origin data and is
// written only by the Sync.
func (f Field) ReadOnly() bool {
	switch f {
	case FieldHref, FieldHostname, FieldProtocol, FieldPort:
		return true
	default:
		return false
	}
}

// HistoryMode determines how soft updates touch session history.
type HistoryMode int

const (
	// ModePush adds a history entry for each soft update (default).
	ModePush HistoryMode = iota

	// ModeReplace rewrites the current history entry.
	ModeReplace
)

// String returns "push" or "replace".
func (m HistoryMode) String() string {
	if m == ModeReplace {
		return "replace"
	}
	return "push"
}

// ParseHistoryMode parses "push" or "replace". The empty string is push.
func ParseHistoryMode(s string) (HistoryMode, error) {
	switch strings.ToLower(s) {
	case "", "push":
		return ModePush, nil
	case "replace":
		return ModeReplace, nil
	default:
		return ModePush, fmt.Errorf("location: unknown history mode %q", s)
	}
}
