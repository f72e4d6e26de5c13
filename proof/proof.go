package proof

import (
	"context"
	"fmt"

	"github.com/didwebvh/webvh-go/canon"
	"github.com/didwebvh/webvh-go/webvhdoc"
)

// Cryptosuite is the single Data Integrity cryptosuite this method
// supports, per spec §4.3 / §6.
const Cryptosuite = "eddsa-jcs-2022"

// hashForSigning implements spec §4.3's two-hash scheme: canonicalize the
// document and the proof options separately, hash each with SHA-256, and
// concatenate hash(proofOptions) || hash(document).
func hashForSigning(documentGeneric, proofOptionsGeneric any) ([]byte, error) {
	docBytes, err := canon.Marshal(documentGeneric)
	if err != nil {
		return nil, fmt.Errorf("proof: canonicalize document: %w", err)
	}
	optBytes, err := canon.Marshal(proofOptionsGeneric)
	if err != nil {
		return nil, fmt.Errorf("proof: canonicalize proof options: %w", err)
	}
	docHash := canon.Digest(docBytes)
	optHash := canon.Digest(optBytes)
	out := make([]byte, 0, len(docHash)+len(optHash))
	out = append(out, optHash...)
	out = append(out, docHash...)
	return out, nil
}

// proofOptionsGeneric returns p with ProofValue cleared, as a generic
// structure suitable for canonicalization.
func proofOptionsGeneric(p webvhdoc.Proof) (any, error) {
	p.ProofValue = ""
	generic, err := canon.ToGeneric(p)
	if err != nil {
		return nil, err
	}
	if m, ok := generic.(map[string]any); ok {
		delete(m, "proofValue")
		return m, nil
	}
	return generic, nil
}

// Build signs documentGeneric (the entry without its own proof array, as
// a generic JSON structure) under the cryptosuite named by options and
// returns the sealed proof with ProofValue populated.
func Build(ctx context.Context, signer Signer, documentGeneric any, options webvhdoc.Proof) (webvhdoc.Proof, error) {
	if options.Type == "" {
		options.Type = "DataIntegrityProof"
	}
	if options.Cryptosuite == "" {
		options.Cryptosuite = Cryptosuite
	}
	if options.VerificationMethod == "" {
		vmID, err := signer.VerificationMethodID(ctx)
		if err != nil {
			return webvhdoc.Proof{}, fmt.Errorf("proof: verification method id: %w", err)
		}
		options.VerificationMethod = vmID
	}

	optGeneric, err := proofOptionsGeneric(options)
	if err != nil {
		return webvhdoc.Proof{}, fmt.Errorf("proof: proof options: %w", err)
	}

	message, err := hashForSigning(documentGeneric, optGeneric)
	if err != nil {
		return webvhdoc.Proof{}, err
	}

	sig, err := signer.Sign(ctx, message)
	if err != nil {
		return webvhdoc.Proof{}, fmt.Errorf("proof: sign: %w", err)
	}

	pv, err := EncodeSignatureMultibase(sig)
	if err != nil {
		return webvhdoc.Proof{}, err
	}
	options.ProofValue = pv
	return options, nil
}

// Verify checks one proof over documentGeneric. publicKey must be the raw
// Ed25519 public key bytes (32 bytes) named by proof.VerificationMethod.
func Verify(ctx context.Context, verifier Verifier, documentGeneric any, p webvhdoc.Proof, publicKey []byte) (bool, error) {
	if p.Cryptosuite != Cryptosuite {
		return false, fmt.Errorf("proof: unsupported cryptosuite %q", p.Cryptosuite)
	}
	if p.ProofValue == "" {
		return false, fmt.Errorf("proof: missing proofValue")
	}

	optGeneric, err := proofOptionsGeneric(p)
	if err != nil {
		return false, fmt.Errorf("proof: proof options: %w", err)
	}

	message, err := hashForSigning(documentGeneric, optGeneric)
	if err != nil {
		return false, err
	}

	sig, err := DecodeSignatureMultibase(p.ProofValue)
	if err != nil {
		return false, err
	}

	return verifier.Verify(ctx, sig, message, publicKey)
}

// ResolveKey returns the raw public key for proof's verificationMethod,
// preferring an inline multibase-encoded key fragment and falling back to
// resolver when the id does not carry its own key material.
func ResolveKey(ctx context.Context, p webvhdoc.Proof, resolver KeyResolver) ([]byte, error) {
	if frag, ok := InlineKeyFromVerificationMethod(p.VerificationMethod); ok {
		if key, err := DecodeEd25519PublicKeyMultibase(frag); err == nil {
			return key, nil
		}
	}
	if resolver == nil {
		return nil, fmt.Errorf("proof: cannot resolve verification method %q without a KeyResolver", p.VerificationMethod)
	}
	return resolver.ResolveKey(ctx, p.VerificationMethod)
}
