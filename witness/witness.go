// Package witness implements C6: validating the shape of a witness
// parameter and checking whether a set of witness proofs meets the
// declared threshold at a log's tip.
//
// The weighted-count-over-independent-proofs model here has no direct
// analog in the retrieved corpus (dedis-cothority's kyber package covers
// Shamir/BLS threshold and collective signing, a different primitive —
// see DESIGN.md). The proof file's array-of-entries shape is grounded on
// cocoon/identity.FetchDidAuditLog's decode pattern.
package witness

import (
	"context"
	"strings"

	"github.com/didwebvh/webvh-go/proof"
	"github.com/didwebvh/webvh-go/webvhdoc"
	"github.com/didwebvh/webvh-go/werr"
	"github.com/go-playground/validator"
)

// shapeValidator checks the struct-tag-level shape of a witness parameter
// (types, non-negativity, non-empty ids) before the business-rule checks in
// ValidateParams run. Same library cocoon/server.CustomValidator wraps for
// request bodies; here it validates a decoded parameter delta instead of an
// HTTP payload.
var shapeValidator = validator.New()

type witnessShape struct {
	Threshold int                 `validate:"gte=0"`
	Witnesses []witnessEntryShape `validate:"dive"`
}

type witnessEntryShape struct {
	ID     string `validate:"required,startswith=did:"`
	Weight *int   `validate:"omitempty,gt=0"`
}

// KeyResolver resolves a witness DID to the raw public key it should sign
// with. Most witnesses are did:key identities, whose key is already
// inline in their verificationMethod fragment (see proof.ResolveKey), so
// a nil KeyResolver is fine unless a witness uses a DID method requiring
// external dereference.
type KeyResolver interface {
	ResolveWitnessKey(ctx context.Context, witnessDID string) ([]byte, error)
}

// ValidateParams checks the shape of a witness parameter, per spec §4.6:
// threshold must be a non-negative integer, and if positive must not
// exceed the sum of witness weights (default weight 1); witness ids must
// be well-formed DIDs with no duplicates. A nil w or a zero threshold is
// valid (the check becomes a no-op elsewhere).
func ValidateParams(versionID string, w *webvhdoc.Witness) error {
	if w == nil {
		return nil
	}
	shape := witnessShape{Threshold: w.Threshold, Witnesses: make([]witnessEntryShape, len(w.Witnesses))}
	for i, we := range w.Witnesses {
		shape.Witnesses[i] = witnessEntryShape{ID: we.ID, Weight: we.Weight}
	}
	if err := shapeValidator.Struct(shape); err != nil {
		return werr.Wrap(werr.InputShape, versionID, err, "witness parameter failed shape validation")
	}

	seen := make(map[string]bool, len(w.Witnesses))
	sum := 0
	for _, we := range w.Witnesses {
		if !isWellFormedDID(we.ID) {
			return werr.Newf(werr.InputShape, versionID, "witness id %q is not a well-formed DID", we.ID)
		}
		if seen[we.ID] {
			return werr.Newf(werr.InputShape, versionID, "duplicate witness id %q", we.ID)
		}
		seen[we.ID] = true
		sum += we.EffectiveWeight()
	}

	if w.Threshold > 0 && w.Threshold > sum {
		return werr.Newf(werr.InputShape, versionID, "witness threshold %d exceeds total weight %d", w.Threshold, sum)
	}
	return nil
}

func isWellFormedDID(s string) bool {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[0] != "did" || parts[1] == "" || parts[2] == "" {
		return false
	}
	return true
}

// keyResolverAdapter lets a witness.KeyResolver stand in for proof.KeyResolver,
// stripping the fragment off a verificationMethod id to recover the
// witness's base DID before delegating.
type keyResolverAdapter struct{ inner KeyResolver }

func (a keyResolverAdapter) ResolveKey(ctx context.Context, verificationMethodID string) ([]byte, error) {
	witnessDID := verificationMethodID
	if idx := strings.IndexByte(verificationMethodID, '#'); idx >= 0 {
		witnessDID = verificationMethodID[:idx]
	}
	return a.inner.ResolveWitnessKey(ctx, witnessDID)
}

// CheckQuorum verifies witness proofs from file against the declared
// witness parameter w for the tip version tipVersionID, per spec §4.6 and
// §3 invariant 9. A nil w or zero threshold is a no-op success.
func CheckQuorum(
	ctx context.Context,
	tipVersionID string,
	w *webvhdoc.Witness,
	file webvhdoc.WitnessProofFile,
	verifier proof.Verifier,
	resolver KeyResolver,
) error {
	if w == nil || w.Threshold <= 0 {
		return nil
	}

	var kr proof.KeyResolver
	if resolver != nil {
		kr = keyResolverAdapter{inner: resolver}
	}

	byID := make(map[string]webvhdoc.WitnessEntry, len(w.Witnesses))
	for _, we := range w.Witnesses {
		byID[we.ID] = we
	}

	doc := map[string]any{"versionId": tipVersionID}
	verified := make(map[string]bool, len(w.Witnesses))
	weight := 0

	for _, entry := range file {
		if entry.VersionID != tipVersionID {
			continue
		}
		for _, p := range entry.Proof {
			witnessDID := p.VerificationMethod
			if idx := strings.IndexByte(witnessDID, '#'); idx >= 0 {
				witnessDID = witnessDID[:idx]
			}
			we, ok := byID[witnessDID]
			if !ok || verified[witnessDID] {
				continue
			}
			key, err := proof.ResolveKey(ctx, p, kr)
			if err != nil {
				continue
			}
			ok2, err := proof.Verify(ctx, verifier, doc, p, key)
			if err != nil || !ok2 {
				continue
			}
			verified[witnessDID] = true
			weight += we.EffectiveWeight()
		}
	}

	if weight < w.Threshold {
		return werr.Newf(werr.WitnessQuorumFailure, tipVersionID, "witness quorum not met: got weight %d, need %d", weight, w.Threshold)
	}
	return nil
}
