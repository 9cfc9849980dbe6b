package sharefile

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"strings"
)

// ValidRedirect verifies the authenticity of an inbound OAuth redirect.
// ShareFile signs the redirect by appending an `h` query parameter: the
// base64 HMAC-SHA256 of the path and remaining query string, keyed with
// the client secret. The signed portion must be compared exactly as
// received — parameter order and encoding included — so the raw query
// is filtered textually rather than re-encoded through url.Values.
//
// Any malformed input yields false, never an error: a broken signature
// is "unauthenticated", not an exception a caller might swallow.
func ValidRedirect(requestURI, clientSecret string) bool {
	if requestURI == "" || clientSecret == "" {
		return false
	}

	path, rawQuery, found := strings.Cut(requestURI, "?")
	if !found || rawQuery == "" {
		return false
	}

	var kept []string
	var received string
	for _, pair := range strings.Split(rawQuery, "&") {
		if sig, ok := strings.CutPrefix(pair, "h="); ok {
			if received != "" {
				return false // duplicate signature parameters
			}
			received = sig
			continue
		}
		kept = append(kept, pair)
	}
	if received == "" {
		return false
	}

	decoded, err := url.QueryUnescape(received)
	if err != nil {
		return false
	}

	canonical := path + "?" + strings.Join(kept, "&")
	mac := hmac.New(sha256.New, []byte(clientSecret))
	mac.Write([]byte(canonical))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(decoded))
}

// SignRedirect produces the `h` signature for a redirect URI, matching
// what ValidRedirect verifies. Exposed for tests and local tooling.
func SignRedirect(requestURI, clientSecret string) string {
	mac := hmac.New(sha256.New, []byte(clientSecret))
	mac.Write([]byte(requestURI))
	return url.QueryEscape(base64.StdEncoding.EncodeToString(mac.Sum(nil)))
}
