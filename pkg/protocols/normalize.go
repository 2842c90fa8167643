package protocols

import (
	"net/url"
	"strings"

	"github.com/cuemby/dwn/pkg/dwnerr"
)

// normalizeURL lowercases the scheme and host and trims a trailing
// slash from the path, the canonical form protocol and schema URIs are
// compared and indexed by. A relative or unparseable URL is rejected:
// §4.6 requires every protocol/schema URI to be absolute.
func normalizeURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", dwnerr.BadRequestf("protocols: %q is not a valid url: %v", raw, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", dwnerr.BadRequestf("protocols: %q is not an absolute url", raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String(), nil
}
