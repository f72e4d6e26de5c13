// Package canon implements C1: JCS canonicalization (RFC 8785-shaped —
// lexicographic key order, minimal string escaping, shortest round-trip
// numbers, no insignificant whitespace) plus the SHA-256 + multihash + multibase encoding pipeline
// used to produce an entryHash.
//
// No JCS library appears anywhere in the retrieved corpus, so the
// canonicalizer is hand-written here; see DESIGN.md for the justification.
package canon

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multihash"
)

// Marshal canonicalizes v (any JSON-marshalable Go value) into JCS bytes.
func Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canon: marshal: %w", err)
	}
	return CanonicalizeJSON(b)
}

// CanonicalizeJSON reparses raw JSON bytes and re-serializes them in
// canonical form. Idempotent: CanonicalizeJSON(CanonicalizeJSON(x)) == CanonicalizeJSON(x).
func CanonicalizeJSON(b []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var val any
	if err := dec.Decode(&val); err != nil {
		return nil, fmt.Errorf("canon: decode: %w", err)
	}
	var buf bytes.Buffer
	if err := encodeValue(&buf, val); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case json.Number:
		// Shortest round-trip form: fixed notation for 1e-6 <= |f| < 1e21,
		// exponent notation otherwise, with no leading zeros in the exponent.
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return fmt.Errorf("canon: number %q has no canonical form", t.String())
		}
		if f == 0 {
			f = 0 // normalize -0 to 0
		}
		if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
			buf.WriteString(strings.Replace(strconv.FormatFloat(f, 'e', -1, 64), "e-0", "e-", 1))
		} else {
			buf.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
		}
		return nil
	case string:
		encodeString(buf, t)
		return nil
	case []any:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeValue(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			encodeString(buf, k)
			buf.WriteByte(':')
			if err := encodeValue(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	default:
		return fmt.Errorf("canon: unsupported value type %T", v)
	}
}

// encodeString writes s using the minimal JSON escaping JCS requires:
// only '"', '\\', and control characters below 0x20 are escaped. Unlike
// encoding/json's default encoder, it never escapes '<', '>', '&', or
// U+2028/U+2029, and it passes multi-byte UTF-8 through unchanged.
func encodeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

// Digest returns the raw SHA-256 digest of canonical bytes.
func Digest(canonical []byte) []byte {
	sum := sha256.Sum256(canonical)
	return sum[:]
}

// EncodeMultihash wraps a SHA-256 digest as a multihash and multibase
// base58-btc encodes it (the "z..." form used as an entryHash / scid).
func EncodeMultihash(digest []byte) (string, error) {
	mh, err := multihash.Encode(digest, multihash.SHA2_256)
	if err != nil {
		return "", fmt.Errorf("canon: multihash encode: %w", err)
	}
	enc, err := multibase.Encode(multibase.Base58BTC, mh)
	if err != nil {
		return "", fmt.Errorf("canon: multibase encode: %w", err)
	}
	return enc, nil
}

// HashAndEncode canonicalizes v, hashes it, and returns the multibase
// multihash string in one step.
func HashAndEncode(v any) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return EncodeMultihash(Digest(b))
}

// DecodeMultihash reverses EncodeMultihash, returning the raw digest bytes
// (without the multihash code/length prefix).
func DecodeMultihash(s string) ([]byte, error) {
	_, data, err := multibase.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("canon: multibase decode: %w", err)
	}
	decoded, err := multihash.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("canon: multihash decode: %w", err)
	}
	return decoded.Digest, nil
}

// SubstituteStrings walks a generic JSON structure (as produced by
// json.Unmarshal into `any`) and returns a deep copy with every
// occurrence of `from` within any string value replaced by `to`. `from`
// is chosen to be collision-safe (spec §6/§9), so a substring replace is
// as precise as whole-value equality would be, but also reaches the
// common case where the placeholder is embedded in a compound value such
// as a DID string ("did:webvh:{SCID}:example.com"). Object keys are left
// untouched, per spec §4.2: "substitution is recursive and applies to
// every string value in the entry (keys are not mutated)".
func SubstituteStrings(v any, from, to string) any {
	switch t := v.(type) {
	case string:
		if from == "" {
			return t
		}
		return strings.ReplaceAll(t, from, to)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = SubstituteStrings(e, from, to)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = SubstituteStrings(e, from, to)
		}
		return out
	default:
		return t
	}
}

// ToGeneric round-trips v through JSON to obtain the generic
// map[string]any / []any / json.Number representation SubstituteStrings
// and CanonicalizeJSON operate on.
func ToGeneric(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canon: marshal: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("canon: decode: %w", err)
	}
	return out, nil
}
