package canon_test

import (
	"testing"

	"github.com/didwebvh/webvh-go/canon"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeSortsKeys(t *testing.T) {
	out, err := canon.Marshal(map[string]any{"b": 1, "a": 2})
	require.NoError(t, err)
	require.Equal(t, `{"a":2,"b":1}`, string(out))
}

func TestCanonicalizeIsIdempotent(t *testing.T) {
	in := []byte(`{ "z" : 1, "a":[3,2,1], "m": {"y":1,"x":2} }`)
	once, err := canon.CanonicalizeJSON(in)
	require.NoError(t, err)
	twice, err := canon.CanonicalizeJSON(once)
	require.NoError(t, err)
	require.Equal(t, once, twice)
}

func TestCanonicalizeKeyOrderAndWhitespaceInsensitive(t *testing.T) {
	a, err := canon.CanonicalizeJSON([]byte(`{"a":1,"b":2}`))
	require.NoError(t, err)
	b, err := canon.CanonicalizeJSON([]byte(`{  "b" : 2 ,  "a" : 1  }`))
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestEncodeMultihashRoundTrips(t *testing.T) {
	digest := canon.Digest([]byte("hello"))
	enc, err := canon.EncodeMultihash(digest)
	require.NoError(t, err)
	require.True(t, len(enc) > 0 && enc[0] == 'z')

	back, err := canon.DecodeMultihash(enc)
	require.NoError(t, err)
	require.Equal(t, digest, back)
}

func TestSubstituteStringsReplacesEmbeddedOccurrences(t *testing.T) {
	in := map[string]any{
		"scid":    "{SCID}",
		"nested":  map[string]any{"id": "did:webvh:{SCID}:example.com"},
		"keep":    "unrelated",
		"listkey": []any{"{SCID}", "other"},
	}
	out := canon.SubstituteStrings(in, "{SCID}", "abc123")
	m := out.(map[string]any)
	require.Equal(t, "abc123", m["scid"])
	require.Equal(t, "unrelated", m["keep"])
	require.Equal(t, "did:webvh:abc123:example.com", m["nested"].(map[string]any)["id"])
	require.Equal(t, "abc123", m["listkey"].([]any)[0])
}

func TestSubstituteStringsRoundTrips(t *testing.T) {
	compound := "did:webvh:{SCID}:example.com"
	substituted := canon.SubstituteStrings(compound, "{SCID}", "abc123")
	require.Equal(t, "did:webvh:abc123:example.com", substituted)

	back := canon.SubstituteStrings(substituted, "abc123", "{SCID}")
	require.Equal(t, compound, back)
}
