package provider

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/whistlenet/whistle/params"
)

var endpointSchemes = []string{"http://", "https://", "ws://", "wss://"}

// Substrings that mark an endpoint as an injection attempt.
var endpointDenylist = []string{"<script", "javascript:", "data:", "vbscript:", "onload=", "onerror="}

// ValidateEndpoint checks a provider service URL. Scheme and denylist
// matching are case-insensitive.
func ValidateEndpoint(endpoint string) error {
	if n := len(endpoint); n < params.MinEndpointLength || n > params.MaxEndpointLength {
		return fmt.Errorf("%w: length %d outside [%d, %d]", ErrInvalidEndpoint, n, params.MinEndpointLength, params.MaxEndpointLength)
	}
	if !utf8.ValidString(endpoint) {
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidEndpoint)
	}
	for _, r := range endpoint {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("%w: control character %#x", ErrInvalidEndpoint, r)
		}
	}
	lower := strings.ToLower(endpoint)
	var rest string
	for _, scheme := range endpointSchemes {
		if strings.HasPrefix(lower, scheme) {
			rest = endpoint[len(scheme):]
			break
		}
	}
	if rest == "" {
		return fmt.Errorf("%w: scheme must be http, https, ws or wss", ErrInvalidEndpoint)
	}
	if !strings.Contains(rest, ".") {
		return fmt.Errorf("%w: missing domain", ErrInvalidEndpoint)
	}
	for _, bad := range endpointDenylist {
		if strings.Contains(lower, bad) {
			return fmt.Errorf("%w: contains %q", ErrInvalidEndpoint, bad)
		}
	}
	return nil
}
