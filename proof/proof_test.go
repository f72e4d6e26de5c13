package proof_test

import (
	"context"
	"testing"
	"time"

	"github.com/didwebvh/webvh-go/ed25519suite"
	"github.com/didwebvh/webvh-go/proof"
	"github.com/didwebvh/webvh-go/webvhdoc"
	"github.com/stretchr/testify/require"
)

func TestBuildAndVerifyRoundTrip(t *testing.T) {
	pub, priv, err := ed25519suite.GenerateKey()
	require.NoError(t, err)

	keyMultibase, err := proof.EncodeEd25519PublicKeyMultibase(pub)
	require.NoError(t, err)
	vmID := "did:webvh:zExample:example.com#" + keyMultibase

	signer := ed25519suite.NewSigner(priv, vmID)
	doc := map[string]any{"hello": "world"}

	sealed, err := proof.Build(context.Background(), signer, doc, webvhdoc.Proof{
		Created:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		ProofPurpose: "authentication",
	})
	require.NoError(t, err)
	require.Equal(t, proof.Cryptosuite, sealed.Cryptosuite)
	require.NotEmpty(t, sealed.ProofValue)

	key, err := proof.ResolveKey(context.Background(), sealed, nil)
	require.NoError(t, err)
	require.Equal(t, []byte(pub), key)

	ok, err := proof.Verify(context.Background(), ed25519suite.Verifier{}, doc, sealed, key)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyFailsOnTamperedDocument(t *testing.T) {
	pub, priv, err := ed25519suite.GenerateKey()
	require.NoError(t, err)
	keyMultibase, err := proof.EncodeEd25519PublicKeyMultibase(pub)
	require.NoError(t, err)
	vmID := "did:webvh:zExample:example.com#" + keyMultibase

	signer := ed25519suite.NewSigner(priv, vmID)
	doc := map[string]any{"hello": "world"}
	sealed, err := proof.Build(context.Background(), signer, doc, webvhdoc.Proof{ProofPurpose: "authentication"})
	require.NoError(t, err)

	tampered := map[string]any{"hello": "mars"}
	ok, err := proof.Verify(context.Background(), ed25519suite.Verifier{}, tampered, sealed, pub)
	require.NoError(t, err)
	require.False(t, ok)
}
