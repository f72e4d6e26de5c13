// Package proof implements C3: building and verifying W3C Data Integrity
// proofs under the eddsa-jcs-2022 cryptosuite, per spec §4.3.
//
// Key material handling and raw signature primitives are external
// collaborators (spec §1); this package only defines the Signer/Verifier
// shapes it consumes and the hash-then-(sign|verify) procedure around
// them. Grounded on other_examples/whyrusleeping-go-did__signing.go's
// SignDocument/VerifyDocumentSignature split.
package proof

import "context"

// Signer produces a raw detached signature over a message this package
// has already canonicalized and hashed, and names the verification method
// the resulting proof should be attributed to. Mirrors spec §6's
// "sign(input: {document, proof}) -> {proofValue}" plus
// "getVerificationMethodId() -> string", with the canonicalize/hash step
// performed by this package rather than the signer.
type Signer interface {
	Sign(ctx context.Context, message []byte) (signature []byte, err error)
	VerificationMethodID(ctx context.Context) (string, error)
}

// Verifier checks a raw detached signature, per spec §6's
// "verify(signature, message, publicKey) -> bool".
type Verifier interface {
	Verify(ctx context.Context, signature, message, publicKey []byte) (bool, error)
}

// KeyResolver dereferences a verificationMethod id to the raw public key
// bytes it names, for proofs whose verificationMethod is not an inline
// multibase key. Optional: most did:webvh verification methods are
// "<did>#<multibase-key>" and resolve locally via ResolveKey's
// InlineKeyFromVerificationMethod path.
type KeyResolver interface {
	ResolveKey(ctx context.Context, verificationMethodID string) (publicKey []byte, err error)
}
