// Package ed25519suite is a reference implementation of proof.Signer and
// proof.Verifier over crypto/ed25519. It exists for tests and the example
// CLI (cmd/webvhctl): the core (canon, scid, proof, builder, replay,
// witness, resolver) never imports it, since key material handling is an
// external collaborator per spec §1.
//
// Grounded on other_examples/whyrusleeping-go-did__signing.go's
// hash-then-sign key-wrapper shape, adapted to crypto/ed25519.
package ed25519suite

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/didwebvh/webvh-go/proof"
)

// Signer signs with a single Ed25519 private key and always reports the
// same verification method id.
type Signer struct {
	PrivateKey           ed25519.PrivateKey
	VerificationMethodIDValue string
}

var _ proof.Signer = (*Signer)(nil)

// NewSigner builds a Signer. The verification method id is typically
// "<did>#<multibase-encoded-public-key>".
func NewSigner(priv ed25519.PrivateKey, verificationMethodID string) *Signer {
	return &Signer{PrivateKey: priv, VerificationMethodIDValue: verificationMethodID}
}

func (s *Signer) Sign(_ context.Context, message []byte) ([]byte, error) {
	if len(s.PrivateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("ed25519suite: invalid private key size %d", len(s.PrivateKey))
	}
	return ed25519.Sign(s.PrivateKey, message), nil
}

func (s *Signer) VerificationMethodID(context.Context) (string, error) {
	if s.VerificationMethodIDValue == "" {
		return "", fmt.Errorf("ed25519suite: no verification method id configured")
	}
	return s.VerificationMethodIDValue, nil
}

// Verifier checks Ed25519 signatures. Stateless — safe for concurrent use.
type Verifier struct{}

var _ proof.Verifier = Verifier{}

func (Verifier) Verify(_ context.Context, signature, message, publicKey []byte) (bool, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return false, fmt.Errorf("ed25519suite: invalid public key size %d", len(publicKey))
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), message, signature), nil
}

// GenerateKey is a thin wrapper over ed25519.GenerateKey, for tests and
// the example CLI's key-bootstrap path.
func GenerateKey() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(nil)
}
