package resolver_test

import (
	"context"
	"testing"
	"time"

	"github.com/didwebvh/webvh-go/builder"
	"github.com/didwebvh/webvh-go/ed25519suite"
	"github.com/didwebvh/webvh-go/proof"
	"github.com/didwebvh/webvh-go/replay"
	"github.com/didwebvh/webvh-go/resolver"
	"github.com/didwebvh/webvh-go/webvhdoc"
	"github.com/stretchr/testify/require"
)

type memFetcher struct {
	log []webvhdoc.Entry
}

func (f *memFetcher) FetchLog(context.Context, webvhdoc.DID) ([]webvhdoc.Entry, error) {
	return f.log, nil
}

func (f *memFetcher) FetchWitnessProofs(context.Context, webvhdoc.DID) (webvhdoc.WitnessProofFile, error) {
	return nil, nil
}

func newTestDID(t *testing.T, domain string) (webvhdoc.Entry, string, *ed25519suite.Signer, string) {
	t.Helper()
	placeholderDID := "did:webvh:" + webvhdoc.Placeholder + ":" + domain
	pub, priv, err := ed25519suite.GenerateKey()
	require.NoError(t, err)
	km, err := proof.EncodeEd25519PublicKeyMultibase(pub)
	require.NoError(t, err)
	signer := ed25519suite.NewSigner(priv, placeholderDID+"#"+km)
	method := "did:webvh:1.0"

	result, err := builder.Create(context.Background(), builder.CreateInput{
		Domain:   domain,
		Document: map[string]any{"id": placeholderDID},
		Parameters: webvhdoc.Parameters{
			Method:     &method,
			UpdateKeys: []string{km},
		},
		VersionTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Signer:      signer,
		Verifier:    ed25519suite.Verifier{},
	})
	require.NoError(t, err)
	return result.Entry, result.DID, signer, km
}

func TestResolverResolveDIDFromLog(t *testing.T) {
	entry, did, _, _ := newTestDID(t, "example.com")
	res := resolver.New(&memFetcher{log: []webvhdoc.Entry{entry}}, ed25519suite.Verifier{})

	result, err := res.ResolveDIDFromLog(context.Background(), did, replay.Options{})
	require.NoError(t, err)
	require.Equal(t, did, result.DID)
	require.Equal(t, entry.VersionID, result.Metadata.VersionID)
}

func TestResolverCachesExplicitTarget(t *testing.T) {
	entry, did, _, _ := newTestDID(t, "example.com")
	fetcher := &memFetcher{log: []webvhdoc.Entry{entry}}
	res := resolver.New(fetcher, ed25519suite.Verifier{}, resolver.WithCache(16, time.Minute))

	first, err := res.ResolveDIDFromLog(context.Background(), did, replay.Options{TargetVersionNumber: 1})
	require.NoError(t, err)

	fetcher.log = nil // prove the second call served from cache, not a re-fetch
	second, err := res.ResolveDIDFromLog(context.Background(), did, replay.Options{TargetVersionNumber: 1})
	require.NoError(t, err)
	require.Equal(t, first.Metadata.VersionID, second.Metadata.VersionID)
}

func TestResolverUpdateDIDFetchesLogWhenNotSupplied(t *testing.T) {
	entry, did, signer, km := newTestDID(t, "example.com")
	fetcher := &memFetcher{log: []webvhdoc.Entry{entry}}
	res := resolver.New(fetcher, ed25519suite.Verifier{})

	updateResult, err := res.UpdateDID(context.Background(), did, builder.UpdateInput{
		Document:    map[string]any{"id": did, "extra": km},
		VersionTime: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Signer:      signer,
	})
	require.NoError(t, err)
	require.Equal(t, 2, mustVersionNumber(t, updateResult.Entry.VersionID))
	require.Len(t, updateResult.Log, 2)
	require.Equal(t, updateResult.Entry.VersionID, updateResult.Metadata.VersionID)
}

func mustVersionNumber(t *testing.T, versionID string) int {
	t.Helper()
	n, _, err := webvhdoc.SplitVersionID(versionID)
	require.NoError(t, err)
	return n
}
