package voltron

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// RequestKind names a sync request type.
type RequestKind string

// Request kinds understood by the sync server.
const (
	KindVersion   RequestKind = "version"
	KindCommand   RequestKind = "command"
	KindRegisters RequestKind = "registers"
	KindMemory    RequestKind = "memory"
	KindBacktrace RequestKind = "backtrace"
	KindState     RequestKind = "state"
)

// SupportedAPIVersions is the semver constraint a server must satisfy.
const SupportedAPIVersions = ">= 1.0, < 2.0"

// param is one request argument. Arguments keep their order so the encoded
// body is deterministic.
type param struct {
	key   string
	value any
}

// VersionInfo describes the sync server.
type VersionInfo struct {
	// APIVersion is the parsed API version.
	APIVersion *semver.Version

	// HostVersion is the debugger host string, e.g. "gdb 12.1".
	HostVersion string
}

// DerefKind classifies one element of a dereference chain.
type DerefKind int

const (
	// DerefOther is any element that is neither a pointer nor a string.
	DerefOther DerefKind = iota
	// DerefPointer is an address.
	DerefPointer
	// DerefString is a string read from memory.
	DerefString
)

// DerefItem is one element of a register's dereference chain.
type DerefItem struct {
	Kind    DerefKind
	Pointer uint64
	Text    string
}

// Registers is a decoded registers response.
type Registers struct {
	// Values maps register name to raw value.
	Values map[string]uint64

	// Deref maps register name to its dereference chain.
	Deref map[string][]DerefItem
}

// Frame is one backtrace entry as reported by the debugger.
type Frame struct {
	Index int
	Addr  uint64
	Name  string
}

// encodeRequest builds the JSON body for a request.
func encodeRequest(kind RequestKind, params []param) ([]byte, error) {
	body := []byte(`{"type":"request","data":{}}`)

	body, err := sjson.SetBytes(body, "request", string(kind))
	if err != nil {
		return nil, fmt.Errorf("encode request kind: %w", err)
	}

	for _, p := range params {
		body, err = sjson.SetBytes(body, "data."+p.key, p.value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", p.key, err)
		}
	}

	return body, nil
}

// decodeResponse validates the envelope and returns the payload.
func decodeResponse(kind RequestKind, body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%s response: %w: invalid JSON", kind, ErrMalformedResponse)
	}

	resp := gjson.ParseBytes(body)
	data := resp.Get("data")

	switch status := resp.Get("status").String(); status {
	case "success":
	case "error":
		msg := data.Get("message").String()
		if msg == "" {
			msg = resp.Get("message").String()
		}
		code := data.Get("code").Int()
		if code == 0 {
			code = resp.Get("code").Int()
		}
		return gjson.Result{}, &ProtocolError{Kind: kind, Code: code, Message: msg}
	default:
		return gjson.Result{}, fmt.Errorf("%s response: %w: unexpected status %q", kind, ErrMalformedResponse, status)
	}

	if !data.Exists() {
		return resp, nil
	}
	return data, nil
}

// decodeVersion decodes a version payload.
func decodeVersion(data gjson.Result) (*VersionInfo, error) {
	raw := data.Get("api_version")
	if !raw.Exists() {
		return nil, fmt.Errorf("version response: %w: missing api_version", ErrMalformedResponse)
	}

	text := raw.String()
	if raw.Type == gjson.Number {
		text = raw.Raw
	}
	v, err := semver.NewVersion(text)
	if err != nil {
		return nil, fmt.Errorf("parse api_version %q: %w", text, err)
	}

	return &VersionInfo{
		APIVersion:  v,
		HostVersion: data.Get("host_version").String(),
	}, nil
}

// CheckVersion verifies the server speaks a supported API version.
func CheckVersion(info *VersionInfo) error {
	c, err := semver.NewConstraint(SupportedAPIVersions)
	if err != nil {
		return err
	}
	if info == nil || info.APIVersion == nil || !c.Check(info.APIVersion) {
		got := "none"
		if info != nil && info.APIVersion != nil {
			got = info.APIVersion.String()
		}
		return fmt.Errorf("%w: %s (want %s)", ErrUnsupportedVersion, got, SupportedAPIVersions)
	}
	return nil
}

// decodeRegisters decodes a registers payload. Values that are not
// integers (vector registers and the like) are skipped.
func decodeRegisters(data gjson.Result) *Registers {
	out := &Registers{
		Values: make(map[string]uint64),
		Deref:  make(map[string][]DerefItem),
	}

	data.Get("registers").ForEach(func(key, value gjson.Result) bool {
		if v, ok := resultUint(value); ok {
			out.Values[key.String()] = v
		}
		return true
	})

	data.Get("deref").ForEach(func(key, chain gjson.Result) bool {
		var items []DerefItem
		chain.ForEach(func(_, item gjson.Result) bool {
			items = append(items, decodeDerefItem(item))
			return true
		})
		out.Deref[key.String()] = items
		return true
	})

	return out
}

// decodeDerefItem decodes one ["kind", payload] pair.
func decodeDerefItem(item gjson.Result) DerefItem {
	kind := item.Get("0").String()
	payload := item.Get("1")

	switch kind {
	case "pointer":
		if v, ok := resultUint(payload); ok {
			return DerefItem{Kind: DerefPointer, Pointer: v}
		}
	case "string":
		return DerefItem{Kind: DerefString, Text: payload.String()}
	}
	return DerefItem{Kind: DerefOther, Text: payload.String()}
}

// resultUint reads an unsigned integer from a number or numeric string.
// gjson keeps the raw text, so 64-bit values survive exactly.
func resultUint(r gjson.Result) (uint64, bool) {
	switch r.Type {
	case gjson.Number:
		if strings.HasPrefix(r.Raw, "-") {
			i, err := strconv.ParseInt(r.Raw, 10, 64)
			if err != nil {
				return 0, false
			}
			return uint64(i), true
		}
		if v, err := strconv.ParseUint(r.Raw, 10, 64); err == nil {
			return v, true
		}
		return r.Uint(), true
	case gjson.String:
		v, err := strconv.ParseUint(strings.TrimSpace(r.Str), 0, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

// decodeMemory decodes a memory payload. The server base64 encodes raw
// bytes; a hex encoding is accepted when the payload says so.
func decodeMemory(data gjson.Result) ([]byte, error) {
	mem := data.Get("memory")
	if !mem.Exists() {
		return nil, nil
	}

	text := mem.String()
	if data.Get("encoding").String() == "hex" {
		out, err := hex.DecodeString(text)
		if err != nil {
			return nil, fmt.Errorf("memory response: %w: %v", ErrMalformedResponse, err)
		}
		return out, nil
	}

	out, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("memory response: %w: %v", ErrMalformedResponse, err)
	}
	return out, nil
}

// decodeFrames decodes a backtrace payload.
func decodeFrames(data gjson.Result) []Frame {
	var frames []Frame
	data.Get("frames").ForEach(func(_, f gjson.Result) bool {
		addr, _ := resultUint(f.Get("addr"))
		frames = append(frames, Frame{
			Index: int(f.Get("index").Int()),
			Addr:  addr,
			Name:  f.Get("name").String(),
		})
		return true
	})
	return frames
}
