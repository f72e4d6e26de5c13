package webvhdoc_test

import (
	"encoding/json"
	"testing"

	"github.com/didwebvh/webvh-go/webvhdoc"
	"github.com/stretchr/testify/require"
)

func TestParseAndString(t *testing.T) {
	d, err := webvhdoc.Parse("did:webvh:zQm123:example.com%3A8080:path:seg")
	require.NoError(t, err)
	require.Equal(t, "zQm123", d.SCID)
	require.Equal(t, "example.com%3A8080", d.Domain)
	require.Equal(t, []string{"path", "seg"}, d.Path)
	require.Equal(t, "did:webvh:zQm123:example.com%3A8080:path:seg", d.String())
}

func TestBaseURLDecodesPort(t *testing.T) {
	d := webvhdoc.New("zQm123", "example.com:8080")
	require.Equal(t, "https://example.com:8080", d.BaseURL())
	require.Equal(t, "https://example.com:8080/did.jsonl", d.LogURL())
	require.Equal(t, "https://example.com:8080/did-witness.json", d.WitnessProofURL())
}

func TestHostSegmentUsesLastPathElement(t *testing.T) {
	d := webvhdoc.New("zQm123", "example.com", "tenants", "acme")
	require.Equal(t, "acme", d.HostSegment())
}

func TestStripPrivateKeysRemovesSecretKeyMultibase(t *testing.T) {
	doc := map[string]any{
		"id": "did:webvh:zQm:example.com",
		"verificationMethod": []any{
			map[string]any{
				"id":                 "did:webvh:zQm:example.com#key-1",
				"publicKeyMultibase": "zPub",
				"secretKeyMultibase": "zSecret",
			},
		},
	}
	stripped := webvhdoc.StripPrivateKeys(doc)
	vm := stripped["verificationMethod"].([]any)[0].(map[string]any)
	_, has := vm["secretKeyMultibase"]
	require.False(t, has)
	require.Equal(t, "zPub", vm["publicKeyMultibase"])

	// original untouched
	orig := doc["verificationMethod"].([]any)[0].(map[string]any)
	require.Equal(t, "zSecret", orig["secretKeyMultibase"])
}

func TestWitnessLegacyFlatFieldNormalizesOnUnmarshal(t *testing.T) {
	var p webvhdoc.Parameters
	err := json.Unmarshal([]byte(`{"witnesses":[{"id":"did:key:z1"},{"id":"did:key:z2"}]}`), &p)
	require.NoError(t, err)
	require.NotNil(t, p.Witness)
	require.Equal(t, 2, p.Witness.Threshold)
	require.Len(t, p.Witness.Witnesses, 2)

	b, err := json.Marshal(p)
	require.NoError(t, err)
	require.Contains(t, string(b), `"witness"`)
	// Only the object form is written: no top-level legacy "witnesses" key
	// (the object form itself nests a "witnesses" array under "witness").
	var wire map[string]any
	require.NoError(t, json.Unmarshal(b, &wire))
	require.NotContains(t, wire, "witnesses")
}

func TestSplitAndBuildVersionID(t *testing.T) {
	n, hash, err := webvhdoc.SplitVersionID("3-zAbc")
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, "zAbc", hash)
	require.Equal(t, "3-zAbc", webvhdoc.BuildVersionID(3, "zAbc"))
}
