package witness_test

import (
	"context"
	"testing"

	"github.com/didwebvh/webvh-go/ed25519suite"
	"github.com/didwebvh/webvh-go/proof"
	"github.com/didwebvh/webvh-go/webvhdoc"
	"github.com/didwebvh/webvh-go/witness"
	"github.com/stretchr/testify/require"
)

func makeWitness(t *testing.T) (webvhdoc.WitnessEntry, *ed25519suite.Signer) {
	t.Helper()
	pub, priv, err := ed25519suite.GenerateKey()
	require.NoError(t, err)
	keyMultibase, err := proof.EncodeEd25519PublicKeyMultibase(pub)
	require.NoError(t, err)
	did := "did:key:" + keyMultibase
	vmID := did + "#" + keyMultibase
	return webvhdoc.WitnessEntry{ID: did}, ed25519suite.NewSigner(priv, vmID)
}

func signWitnessProof(t *testing.T, signer *ed25519suite.Signer, versionID string) webvhdoc.Proof {
	t.Helper()
	doc := map[string]any{"versionId": versionID}
	p, err := proof.Build(context.Background(), signer, doc, webvhdoc.Proof{ProofPurpose: "assertionMethod"})
	require.NoError(t, err)
	return p
}

func TestValidateParamsRejectsThresholdAboveWeight(t *testing.T) {
	w := &webvhdoc.Witness{
		Witnesses: []webvhdoc.WitnessEntry{{ID: "did:key:z1"}},
		Threshold: 2,
	}
	err := witness.ValidateParams("1-zAbc", w)
	require.Error(t, err)
}

func TestValidateParamsRejectsDuplicates(t *testing.T) {
	w := &webvhdoc.Witness{
		Witnesses: []webvhdoc.WitnessEntry{{ID: "did:key:z1"}, {ID: "did:key:z1"}},
		Threshold: 1,
	}
	require.Error(t, witness.ValidateParams("1-zAbc", w))
}

func TestValidateParamsZeroThresholdIsNoOp(t *testing.T) {
	w := &webvhdoc.Witness{Witnesses: nil, Threshold: 0}
	require.NoError(t, witness.ValidateParams("1-zAbc", w))
}

func TestCheckQuorumSucceedsAtThreshold(t *testing.T) {
	we1, s1 := makeWitness(t)
	we2, s2 := makeWitness(t)
	we3, _ := makeWitness(t)

	w := &webvhdoc.Witness{Witnesses: []webvhdoc.WitnessEntry{we1, we2, we3}, Threshold: 2}
	tip := "3-zTip"

	file := webvhdoc.WitnessProofFile{
		{VersionID: tip, Proof: []webvhdoc.Proof{
			signWitnessProof(t, s1, tip),
			signWitnessProof(t, s2, tip),
		}},
	}

	err := witness.CheckQuorum(context.Background(), tip, w, file, ed25519suite.Verifier{}, nil)
	require.NoError(t, err)
}

func TestCheckQuorumFailsBelowThreshold(t *testing.T) {
	we1, s1 := makeWitness(t)
	we2, _ := makeWitness(t)
	we3, _ := makeWitness(t)

	w := &webvhdoc.Witness{Witnesses: []webvhdoc.WitnessEntry{we1, we2, we3}, Threshold: 2}
	tip := "3-zTip"

	file := webvhdoc.WitnessProofFile{
		{VersionID: tip, Proof: []webvhdoc.Proof{signWitnessProof(t, s1, tip)}},
	}

	err := witness.CheckQuorum(context.Background(), tip, w, file, ed25519suite.Verifier{}, nil)
	require.Error(t, err)
}

func TestCheckQuorumIgnoresProofsForOtherVersions(t *testing.T) {
	we1, s1 := makeWitness(t)
	we2, s2 := makeWitness(t)

	w := &webvhdoc.Witness{Witnesses: []webvhdoc.WitnessEntry{we1, we2}, Threshold: 2}
	tip := "3-zTip"

	file := webvhdoc.WitnessProofFile{
		{VersionID: "2-zOld", Proof: []webvhdoc.Proof{signWitnessProof(t, s1, "2-zOld")}},
		{VersionID: tip, Proof: []webvhdoc.Proof{signWitnessProof(t, s2, tip)}},
	}

	err := witness.CheckQuorum(context.Background(), tip, w, file, ed25519suite.Verifier{}, nil)
	require.Error(t, err)
}
