// Package share encodes a single tab into a compact token that can live in
// a URL fragment, and decodes such tokens back.
package share

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/neilberkman/qbench/internal/core/models"
)

// ErrDecode is returned for tokens that are not valid share payloads
var ErrDecode = errors.New("malformed share token")

// Payload is the single-tab state carried by a share token
type Payload struct {
	Text       string `json:"text"`
	Compiler   string `json:"compiler,omitempty"`
	CppVersion string `json:"cppVersion,omitempty"`
	Optim      string `json:"optim,omitempty"`
	Lib        string `json:"lib,omitempty"`
}

// FromTab builds a payload from a tab's code and options
func FromTab(tab models.Tab) Payload {
	return Payload{
		Text:       tab.Code,
		Compiler:   tab.Options.Compiler,
		CppVersion: tab.Options.CppVersion,
		Optim:      tab.Options.Optim,
		Lib:        tab.Options.Lib,
	}
}

// Options returns the option fields present in the payload; absent fields are empty
func (p Payload) Options() models.Options {
	return models.Options{
		Compiler:   p.Compiler,
		CppVersion: p.CppVersion,
		Optim:      p.Optim,
		Lib:        p.Lib,
	}
}

// Encode serializes p into a base64 token
func Encode(p Payload) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return "", fmt.Errorf("marshal share payload: %w", err)
	}
	return EncodeString(strings.TrimSuffix(buf.String(), "\n")), nil
}

// EncodeString base64-encodes arbitrary text so that non-ASCII input
// survives: the text is percent-escaped, every escape is collapsed back to
// its byte, and the resulting byte string is encoded.
func EncodeString(s string) string {
	return base64.StdEncoding.EncodeToString(collapseEscapes(escapeComponent(s)))
}

// Decode parses a token produced by Encode. A leading '#' is ignored.
func Decode(token string) (Payload, error) {
	var p Payload

	token = strings.TrimPrefix(strings.TrimSpace(token), "#")
	if token == "" {
		return p, fmt.Errorf("%w: empty token", ErrDecode)
	}

	raw, err := decodeBase64(token)
	if err != nil {
		return p, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	text, err := url.PathUnescape(expandEscapes(raw))
	if err != nil {
		return p, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if !utf8.ValidString(text) {
		return p, fmt.Errorf("%w: payload is not valid UTF-8", ErrDecode)
	}

	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if p.Text == "" {
		return Payload{}, fmt.Errorf("%w: payload has no text", ErrDecode)
	}

	return p, nil
}

// Parse is the soft form of Decode: failures are logged and reported as
// "no payload" so callers can continue with defaults.
func Parse(token string) (Payload, bool) {
	p, err := Decode(token)
	if err != nil {
		slog.Debug("ignoring share token", "error", err)
		return Payload{}, false
	}
	return p, true
}

// TakeFragment decodes u's fragment and clears it, so the same address
// never hydrates twice. The fragment is cleared even when it does not decode.
func TakeFragment(u *url.URL) (Payload, bool) {
	if u == nil || u.Fragment == "" {
		return Payload{}, false
	}
	fragment := u.Fragment
	u.Fragment = ""
	u.RawFragment = ""
	return Parse(fragment)
}

// ParseInput accepts either a bare token or a full URL carrying the token
// in its fragment.
func ParseInput(input string) (Payload, bool) {
	input = strings.TrimSpace(input)
	if strings.Contains(input, "://") {
		u, err := url.Parse(input)
		if err != nil {
			slog.Debug("ignoring share url", "error", err)
			return Payload{}, false
		}
		return TakeFragment(u)
	}
	return Parse(input)
}

// Link returns base with p's token as its fragment
func Link(base string, p Payload) (string, error) {
	token, err := Encode(p)
	if err != nil {
		return "", err
	}
	if i := strings.IndexByte(base, '#'); i >= 0 {
		base = base[:i]
	}
	return base + "#" + token, nil
}

func decodeBase64(token string) ([]byte, error) {
	var firstErr error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		data, err := enc.DecodeString(token)
		if err == nil {
			return data, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}
