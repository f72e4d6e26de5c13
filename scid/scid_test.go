package scid_test

import (
	"testing"

	"github.com/didwebvh/webvh-go/scid"
	"github.com/didwebvh/webvh-go/webvhdoc"
	"github.com/stretchr/testify/require"
)

func TestDeriveIsDeterministic(t *testing.T) {
	entry := map[string]any{
		"parameters": map[string]any{"scid": webvhdoc.Placeholder},
		"state":      map[string]any{"id": "did:webvh:" + webvhdoc.Placeholder + ":example.com"},
	}
	a, err := scid.Derive(entry)
	require.NoError(t, err)
	b, err := scid.Derive(entry)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.True(t, len(a) > 0 && a[0] == 'z')
}

func TestIsFromHashRoundTrips(t *testing.T) {
	entry := map[string]any{"parameters": map[string]any{"scid": webvhdoc.Placeholder}}
	s, err := scid.Derive(entry)
	require.NoError(t, err)

	ok, err := scid.IsFromHash(s, entry)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = scid.IsFromHash("zWrongHash", entry)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSubstitutePlaceholderReplacesEmbeddedOccurrences(t *testing.T) {
	entry := map[string]any{
		"state": map[string]any{"id": "did:webvh:" + webvhdoc.Placeholder + ":example.com"},
	}
	out := scid.SubstitutePlaceholder(entry, "zReal").(map[string]any)
	state := out["state"].(map[string]any)
	require.Equal(t, "did:webvh:zReal:example.com", state["id"])
}

func TestReconstructPlaceholderReversesSubstitutePlaceholder(t *testing.T) {
	original := map[string]any{
		"parameters": map[string]any{"scid": webvhdoc.Placeholder},
		"state":      map[string]any{"id": "did:webvh:" + webvhdoc.Placeholder + ":example.com"},
	}
	sealed := scid.SubstitutePlaceholder(original, "zReal")
	reconstructed := scid.ReconstructPlaceholder(sealed, "zReal")
	require.Equal(t, original, reconstructed)
}
