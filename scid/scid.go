// Package scid implements C2: deriving and verifying a did:webvh Self
// Certifying IDentifier from its genesis log entry.
//
// Grounded on cocoon/plc/client.go's didForCreateOp: hash a
// pre-identifier document, derive the identifier from the hash. Here the
// "pre-identifier document" is the placeholder-bearing genesis entry, and
// the hash is a multihash/multibase string rather than a truncated
// base32 digest.
package scid

import (
	"crypto/subtle"
	"fmt"

	"github.com/didwebvh/webvh-go/canon"
	"github.com/didwebvh/webvh-go/webvhdoc"
)

// Derive computes the scid for a genesis entry that still carries
// webvhdoc.Placeholder in place of its scid. The caller is responsible for
// having already substituted the placeholder everywhere the real scid
// will eventually go (parameters.scid, state.id, ...); Derive just hashes
// whatever generic structure it is given.
func Derive(placeholderEntry any) (string, error) {
	b, err := canon.Marshal(placeholderEntry)
	if err != nil {
		return "", fmt.Errorf("scid: canonicalize: %w", err)
	}
	return canon.EncodeMultihash(canon.Digest(b))
}

// IsFromHash recomputes the hash of placeholderEntry and compares it
// against scid in constant time, per spec §4.2 ("verification recomputes
// the hash and constant-time compares").
func IsFromHash(scid string, placeholderEntry any) (bool, error) {
	got, err := Derive(placeholderEntry)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(scid)) == 1, nil
}

// SubstitutePlaceholder replaces every occurrence of webvhdoc.Placeholder
// in a generic JSON structure with scid, wherever it appears within a
// string value (e.g. embedded in a compound DID like
// "did:webvh:{SCID}:example.com"). It is a thin, scid-flavored wrapper
// over canon.SubstituteStrings.
func SubstitutePlaceholder(v any, scid string) any {
	return canon.SubstituteStrings(v, webvhdoc.Placeholder, scid)
}

// ReconstructPlaceholder reverses SubstitutePlaceholder: given a sealed
// genesis entry (already carrying its real scid everywhere the
// placeholder used to be), it puts webvhdoc.Placeholder back so the
// entry's hash can be recomputed and compared against scid, per spec
// §4.2's verification step.
func ReconstructPlaceholder(v any, scid string) any {
	return canon.SubstituteStrings(v, scid, webvhdoc.Placeholder)
}
