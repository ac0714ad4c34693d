package buildbench

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ProtocolVersion is the build protocol revision this client speaks
const ProtocolVersion = 3

// Fixed per-submission settings
const (
	AsmSyntax = "att"
	WithPP    = true
)

// TabRequest is one tab of a build submission
type TabRequest struct {
	Code       string `json:"code"`
	Title      string `json:"title"`
	Compiler   string `json:"compiler"`
	Optim      string `json:"optim"`
	CppVersion string `json:"cppVersion"`
	Lib        string `json:"lib"`
	Asm        string `json:"asm"`
	WithPP     bool   `json:"withPP"`
}

// BuildRequest is the body of POST /build/
type BuildRequest struct {
	Tabs            []TabRequest `json:"tabs"`
	ProtocolVersion int          `json:"protocolVersion"`
	Force           bool         `json:"force"`
}

// TabRecord is a tab as stored by the service and returned by GET /build/{id}
type TabRecord struct {
	Code       string `json:"code"`
	Title      string `json:"title"`
	Compiler   string `json:"compiler"`
	CppVersion string `json:"cppVersion"`
	Optim      string `json:"optim"`
	Lib        string `json:"lib"`
}

// Response is the body of both build endpoints. POST responses carry ID,
// GET responses carry Tabs; both may carry any of the result fields.
type Response struct {
	ID           string          `json:"id,omitempty"`
	Tabs         []TabRecord     `json:"tabs,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	Messages     Messages        `json:"messages,omitempty"`
	Includes     []Text          `json:"includes,omitempty"`
	Asm          []Text          `json:"asm,omitempty"`
	Preprocessed []Text          `json:"preprocessed,omitempty"`
}

// HasResult reports whether the response carries a result graph (possibly empty)
func (r *Response) HasResult() bool {
	trimmed := bytes.TrimSpace(r.Result)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// Empty reports whether the response carries nothing the client can show
func (r *Response) Empty() bool {
	return !r.HasResult() && len(r.Messages) == 0 && len(r.Tabs) == 0
}

// Messages is the service's diagnostic output: one entry per tab, or a
// single service-level entry. A bare string is accepted as one entry.
type Messages []string

// UnmarshalJSON accepts a string, null, or an array of strings/nulls
func (m *Messages) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*m = nil
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = Messages{s}
		return nil
	}

	var items []*string
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("messages: %w", err)
	}
	out := make(Messages, len(items))
	for i, s := range items {
		if s != nil {
			out[i] = *s
		}
	}
	*m = out
	return nil
}

// Text is textual output the service may send either as a JSON string or
// as a serialized Node.js Buffer ({"type":"Buffer","data":[...]}) or a
// plain byte array.
type Text string

// UnmarshalJSON decodes any of the accepted encodings into text
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	case '[':
		b, err := decodeBytes(data)
		if err != nil {
			return err
		}
		*t = Text(b)
		return nil
	case '{':
		var buf struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(data, &buf); err != nil {
			return err
		}
		if len(buf.Data) == 0 {
			*t = ""
			return nil
		}
		b, err := decodeBytes(buf.Data)
		if err != nil {
			return err
		}
		*t = Text(b)
		return nil
	}

	return fmt.Errorf("unsupported text encoding: %.20s", data)
}

func decodeBytes(data []byte) ([]byte, error) {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return nil, fmt.Errorf("buffer data: %w", err)
	}
	b := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("buffer data: byte %d out of range: %d", i, v)
		}
		b[i] = byte(v)
	}
	return b, nil
}

// Strings converts decoded texts to plain strings
func Strings(texts []Text) []string {
	if len(texts) == 0 {
		return nil
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = string(t)
	}
	return out
}
