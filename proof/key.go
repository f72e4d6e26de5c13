package proof

import (
	"fmt"

	"github.com/multiformats/go-multibase"
)

// ed25519MulticodecPrefix is the multicodec varint prefix for Ed25519
// public keys (0xed01), per the multikey convention used by did:key and
// carried over from other_examples/invincible-jha-agent-identity-framework__did.go.
var ed25519MulticodecPrefix = []byte{0xed, 0x01}

// EncodeEd25519PublicKeyMultibase multibase (base58-btc) encodes an
// Ed25519 public key with its multicodec prefix, for use as an
// updateKeys entry or an inline verificationMethod key.
func EncodeEd25519PublicKeyMultibase(pub []byte) (string, error) {
	if len(pub) != 32 {
		return "", fmt.Errorf("proof: ed25519 public key must be 32 bytes, got %d", len(pub))
	}
	prefixed := append(append([]byte{}, ed25519MulticodecPrefix...), pub...)
	enc, err := multibase.Encode(multibase.Base58BTC, prefixed)
	if err != nil {
		return "", fmt.Errorf("proof: multibase encode: %w", err)
	}
	return enc, nil
}

// DecodeEd25519PublicKeyMultibase decodes a multibase-encoded Ed25519
// public key, tolerating both the multicodec-prefixed form (34 bytes) and
// a bare 32-byte key.
func DecodeEd25519PublicKeyMultibase(s string) ([]byte, error) {
	_, data, err := multibase.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("proof: multibase decode %q: %w", s, err)
	}
	switch len(data) {
	case 32:
		return data, nil
	case 34:
		if data[0] != ed25519MulticodecPrefix[0] || data[1] != ed25519MulticodecPrefix[1] {
			return nil, fmt.Errorf("proof: unexpected multicodec prefix in %q", s)
		}
		return data[2:], nil
	default:
		return nil, fmt.Errorf("proof: unexpected decoded key length %d for %q", len(data), s)
	}
}

// DecodeSignatureMultibase decodes a multibase-encoded signature. Spec §6
// tolerates both base58-btc ("z") and base64url ("u") for proofValues.
func DecodeSignatureMultibase(s string) ([]byte, error) {
	_, data, err := multibase.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("proof: multibase decode proofValue: %w", err)
	}
	return data, nil
}

// EncodeSignatureMultibase base58-btc encodes a raw signature as a
// proofValue.
func EncodeSignatureMultibase(sig []byte) (string, error) {
	enc, err := multibase.Encode(multibase.Base58BTC, sig)
	if err != nil {
		return "", fmt.Errorf("proof: multibase encode proofValue: %w", err)
	}
	return enc, nil
}

// InlineKeyFromVerificationMethod extracts the multibase key segment from
// a verificationMethod id of the form "<did>#<multibase-key>" or a bare
// "#<multibase-key>" fragment, the common case where the verification
// method id itself carries the key (no external dereference needed).
func InlineKeyFromVerificationMethod(verificationMethodID string) (string, bool) {
	idx := -1
	for i := len(verificationMethodID) - 1; i >= 0; i-- {
		if verificationMethodID[i] == '#' {
			idx = i
			break
		}
	}
	if idx < 0 || idx == len(verificationMethodID)-1 {
		return "", false
	}
	return verificationMethodID[idx+1:], true
}
