// Package replay implements C5: walking a did:webvh log from genesis,
// verifying every invariant in spec §3 as it goes, and producing the
// {did, document, metadata} triple for a requested target version (or the
// tip, by default).
//
// Grounded on cocoon/identity.go's log-walking resolve path (fetch the
// audit log, replay operations in order, verify each against the prior
// state) and cocoon/plc/client.go's prev-hash chain-linking model,
// generalized from a single "prev CID" pointer to the numbered
// versionId/entryHash chain.
package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/didwebvh/webvh-go/canon"
	"github.com/didwebvh/webvh-go/proof"
	"github.com/didwebvh/webvh-go/scid"
	"github.com/didwebvh/webvh-go/webvhdoc"
	"github.com/didwebvh/webvh-go/werr"
	"github.com/didwebvh/webvh-go/witness"
)

// witnessCheckWindow is K in spec §4.5's fast-resolution mode: the number
// of trailing entries (plus genesis) that always get full cryptographic
// verification even when FastResolution is set.
const witnessCheckWindow = 10

// Options configures one replay. Verifier is required unless every entry
// in the log is unsigned (which no valid log is); KeyResolver is only
// consulted for verification methods without an inline key; WitnessProofs and WitnessKeyResolver are only consulted if the log's tip
// declares a witness threshold above zero.
type Options struct {
	// Target selects which version's snapshot to return. At most one of
	// TargetVersionID, TargetVersionNumber, TargetVersionTime, and
	// TargetVerificationMethod should be set; if more than one is set,
	// TargetVersionID/TargetVersionNumber wins, then TargetVersionTime,
	// then TargetVerificationMethod. If none are set, the tip is returned.
	TargetVersionID          string
	TargetVersionNumber      int
	TargetVersionTime        *time.Time
	TargetVerificationMethod string

	Verifier    proof.Verifier
	KeyResolver proof.KeyResolver

	WitnessProofs      webvhdoc.WitnessProofFile
	WitnessKeyResolver witness.KeyResolver

	// FastResolution elides signature verification on interior entries,
	// per spec §4.5, still fully validating the hash chain and parameter
	// state for every entry, and fully verifying signatures on the
	// genesis entry and the last witnessCheckWindow entries.
	FastResolution bool

	// SkipWitnessQuorum lets the entry builder (package builder) run this
	// same validation over a single new entry in isolation, without a
	// witness proof file, per spec §4.4 step 6 ("skipping witness check").
	SkipWitnessQuorum bool
}

func (o Options) hasExplicitTarget() bool {
	return o.TargetVersionID != "" || o.TargetVersionNumber != 0 ||
		o.TargetVersionTime != nil || o.TargetVerificationMethod != ""
}

// Result is the {did, document, metadata} triple spec §4.5 says resolution
// produces.
type Result struct {
	DID      string
	Document map[string]any
	Metadata webvhdoc.Metadata
}

// Replay validates log from its genesis entry and returns the resolved
// snapshot for opts' target (or the tip). Per spec §4.5 / §7, if opts names
// an explicit target and a valid snapshot matching it was already captured
// before a later failure, that snapshot is returned instead of the error
// (best-effort resolution); resolving to the (implicit) tip never recovers
// this way, since the tip is exactly the version that failed.
func Replay(ctx context.Context, log []webvhdoc.Entry, opts Options) (Result, error) {
	if len(log) == 0 {
		return Result{}, werr.New(werr.InputShape, "", "log has no entries")
	}

	explicitTarget := opts.hasExplicitTarget()

	var (
		meta      webvhdoc.Metadata
		params    webvhdoc.Parameters
		prevEntry *webvhdoc.Entry
		did       webvhdoc.DID
		v1DID     webvhdoc.DID
		captured  *Result
		matchedVM bool
	)

	fail := func(err error) (Result, error) {
		if explicitTarget && captured != nil {
			return *captured, nil
		}
		return Result{}, err
	}

	n := len(log)
	for i, entry := range log {
		versionNum := i + 1

		num, hash, err := webvhdoc.SplitVersionID(entry.VersionID)
		if err != nil {
			return fail(werr.Wrap(werr.ChainIntegrity, entry.VersionID, err, "malformed versionId"))
		}
		if num != versionNum {
			return fail(werr.Newf(werr.ChainIntegrity, entry.VersionID, "versionId number %d does not match log position %d", num, versionNum))
		}

		if prevEntry != nil && entry.VersionTime.Before(prevEntry.VersionTime) {
			return fail(werr.Newf(werr.ChainIntegrity, entry.VersionID, "versionTime %s precedes prior version's %s", entry.VersionTime, prevEntry.VersionTime))
		}

		params = webvhdoc.Merge(params, entry.Parameters)

		if i == 0 {
			if params.Method == nil || *params.Method == "" {
				return fail(werr.New(werr.InputShape, entry.VersionID, "genesis entry missing required parameters.method"))
			}
			if !params.HasUpdateKeys() || len(params.UpdateKeys) == 0 {
				return fail(werr.New(werr.InputShape, entry.VersionID, "genesis entry missing required parameters.updateKeys"))
			}
			if params.SCID == nil || *params.SCID == "" {
				return fail(werr.New(werr.InputShape, entry.VersionID, "genesis entry missing required parameters.scid"))
			}
		} else if meta.Deactivated {
			return fail(werr.New(werr.PolicyViolation, entry.VersionID, "no entry may follow a deactivation entry"))
		}

		if err := witness.ValidateParams(entry.VersionID, params.Witness); err != nil {
			return fail(err)
		}

		docID := webvhdoc.DocumentID(entry.State)
		parsedDID, err := webvhdoc.Parse(docID)
		if err != nil {
			return fail(werr.Wrap(werr.InputShape, entry.VersionID, err, "state.id is not a valid did:webvh identifier"))
		}
		if i == 0 {
			did = parsedDID
			v1DID = parsedDID
		} else {
			if parsedDID.SCID != did.SCID {
				return fail(werr.Newf(werr.ChainIntegrity, entry.VersionID, "scid changed from %q to %q", did.SCID, parsedDID.SCID))
			}
			if !effectivePortable(params) && parsedDID.HostSegment() != v1DID.HostSegment() {
				return fail(werr.Newf(werr.PolicyViolation, entry.VersionID, "non-portable did's host segment changed from %q to %q", v1DID.HostSegment(), parsedDID.HostSegment()))
			}
			did = parsedDID
		}

		hashable, err := webvhdoc.HashableGeneric(entry)
		if err != nil {
			return fail(werr.Wrap(werr.ChainIntegrity, entry.VersionID, err, "canonicalizing entry"))
		}

		var wantHash string
		if i == 0 {
			placeholderForm := scid.ReconstructPlaceholder(hashable, *params.SCID)
			computedSCID, err := scid.Derive(placeholderForm)
			if err != nil {
				return fail(werr.Wrap(werr.ChainIntegrity, entry.VersionID, err, "deriving scid"))
			}
			if computedSCID != *params.SCID {
				return fail(werr.Newf(werr.ChainIntegrity, entry.VersionID, "scid %q does not match hash of genesis entry", *params.SCID))
			}
			wantHash = computedSCID
		} else {
			wantHash, err = canon.HashAndEncode(hashable)
			if err != nil {
				return fail(werr.Wrap(werr.ChainIntegrity, entry.VersionID, err, "hashing entry"))
			}
		}
		if wantHash != hash {
			return fail(werr.Newf(werr.ChainIntegrity, entry.VersionID, "entryHash mismatch: versionId declares %q, entry hashes to %q", hash, wantHash))
		}

		if i > 0 {
			priorNextKeyHashes := priorParams(log, i).NextKeyHashes
			if len(priorNextKeyHashes) > 0 && entry.Parameters.HasUpdateKeys() {
				if err := checkPreRotation(entry.VersionID, entry.Parameters.UpdateKeys, priorNextKeyHashes); err != nil {
					return fail(err)
				}
			}
		}

		shouldVerifyCrypto := !opts.FastResolution || i == 0 || i >= n-witnessCheckWindow
		if shouldVerifyCrypto {
			effectiveKeys := params.UpdateKeys
			if i > 0 {
				effectiveKeys = priorParams(log, i).UpdateKeys
			}
			if err := verifyAnyProof(ctx, opts, entry, effectiveKeys); err != nil {
				return fail(err)
			}
		}

		meta = webvhdoc.Metadata{
			VersionID:     entry.VersionID,
			Created:       firstOr(meta.Created, entry.VersionTime, i == 0),
			Updated:       entry.VersionTime,
			SCID:          did.SCID,
			UpdateKeys:    params.UpdateKeys,
			NextKeyHashes: params.NextKeyHashes,
			Prerotation:   len(params.NextKeyHashes) > 0,
			Portable:      effectivePortable(params),
			Deactivated:   params.Deactivated != nil && *params.Deactivated,
			Witness:       params.Witness,
			Watchers:      params.Watchers,
		}

		if i == n-1 && !opts.SkipWitnessQuorum {
			if err := witness.CheckQuorum(ctx, entry.VersionID, meta.Witness, opts.WitnessProofs, opts.Verifier, opts.WitnessKeyResolver); err != nil {
				return fail(err)
			}
		}

		snap := Result{
			DID:      did.String(),
			Document: webvhdoc.WithDefaultServices(entry.State, did.BaseURL()),
			Metadata: meta.Clone(),
		}

		switch {
		case opts.TargetVersionID != "":
			if entry.VersionID == opts.TargetVersionID {
				c := snap
				captured = &c
			}
		case opts.TargetVersionNumber != 0:
			if versionNum == opts.TargetVersionNumber {
				c := snap
				captured = &c
			}
		case opts.TargetVersionTime != nil:
			if !entry.VersionTime.After(*opts.TargetVersionTime) {
				c := snap
				captured = &c
			}
		case opts.TargetVerificationMethod != "":
			if !matchedVM && containsString(webvhdoc.VerificationMethodIDs(entry.State), opts.TargetVerificationMethod) {
				matchedVM = true
				c := snap
				captured = &c
			}
		default:
			c := snap
			captured = &c
		}

		prevEntry = &log[i]
	}

	if captured == nil {
		return Result{}, werr.New(werr.InputShape, "", "requested target not found in log")
	}
	return *captured, nil
}

// priorParams returns the fully-merged effective parameters as of entry
// i-1 (the version whose updateKeys/nextKeyHashes authorize entry i).
func priorParams(log []webvhdoc.Entry, i int) webvhdoc.Parameters {
	var params webvhdoc.Parameters
	for j := 0; j < i; j++ {
		params = webvhdoc.Merge(params, log[j].Parameters)
	}
	return params
}

func effectivePortable(p webvhdoc.Parameters) bool {
	if p.Portable == nil {
		return true
	}
	return *p.Portable
}

func firstOr(existing, candidate time.Time, useCandidate bool) time.Time {
	if useCandidate {
		return candidate
	}
	return existing
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// checkPreRotation enforces spec §3 invariant 7: every updateKey newly
// declared by an entry must hash, under the same commitment scheme
// webvhdoc.KeyCommitment uses, to one of the prior version's nextKeyHashes.
func checkPreRotation(versionID string, newKeys, committed []string) error {
	set := make(map[string]bool, len(committed))
	for _, h := range committed {
		set[h] = true
	}
	for _, key := range newKeys {
		h, err := webvhdoc.KeyCommitment(key)
		if err != nil {
			return werr.Wrap(werr.Authorization, versionID, err, "hashing updateKey for pre-rotation check")
		}
		if !set[h] {
			return werr.Newf(werr.Authorization, versionID, "updateKey does not match any committed nextKeyHash from the prior version")
		}
	}
	return nil
}

// verifyAnyProof checks that at least one of entry's proofs verifies under
// one of effectiveKeys, per spec §3 invariant 6 and §4.3's key-authorization
// rule.
func verifyAnyProof(ctx context.Context, opts Options, entry webvhdoc.Entry, effectiveKeys []string) error {
	if len(entry.Proof) == 0 {
		return werr.New(werr.Authorization, entry.VersionID, "entry has no proof")
	}

	documentGeneric, err := documentGenericWithoutProof(entry)
	if err != nil {
		return werr.Wrap(werr.ChainIntegrity, entry.VersionID, err, "canonicalizing entry for proof verification")
	}

	allowed := make(map[string]bool, len(effectiveKeys))
	for _, k := range effectiveKeys {
		allowed[k] = true
	}

	var lastErr error
	for _, p := range entry.Proof {
		if !authorizedKey(p.VerificationMethod, allowed) {
			lastErr = fmt.Errorf("verification method %q is not among the effective update keys", p.VerificationMethod)
			continue
		}

		key, err := proof.ResolveKey(ctx, p, opts.KeyResolver)
		if err != nil {
			lastErr = err
			continue
		}

		ok, err := proof.Verify(ctx, opts.Verifier, documentGeneric, p, key)
		if err != nil {
			lastErr = err
			continue
		}
		if ok {
			return nil
		}
		lastErr = fmt.Errorf("signature verification failed for %q", p.VerificationMethod)
	}
	return werr.Wrap(werr.Authorization, entry.VersionID, lastErr, "no proof verifies under the effective update keys")
}

// authorizedKey reports whether verificationMethodID's inline key (its
// "#<multibase-key>" fragment) is one of the effective update keys.
// updateKeys are themselves multibase-encoded public keys, so this is a
// direct string comparison against the fragment.
func authorizedKey(verificationMethodID string, allowed map[string]bool) bool {
	frag, ok := proof.InlineKeyFromVerificationMethod(verificationMethodID)
	if !ok {
		return false
	}
	return allowed[frag]
}

func documentGenericWithoutProof(entry webvhdoc.Entry) (any, error) {
	stripped := entry
	stripped.Proof = nil
	generic, err := canon.ToGeneric(stripped)
	if err != nil {
		return nil, err
	}
	if m, ok := generic.(map[string]any); ok {
		delete(m, "proof")
		return m, nil
	}
	return generic, nil
}
