// Package builder implements C4: assembling and sealing a new did:webvh log
// entry for creation, update, or deactivation, per spec §4.4.
//
// Grounded on cocoon/plc/client.go's op-construction path (build the
// operation body, compute its CID, sign, append to the operation log) and
// cocoon/plc/lexicon.go's genesis-vs-update op shape, generalized to the
// entryHash/versionId chain and Data Integrity proofs.
package builder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Azure/go-autorest/autorest/to"
	"github.com/didwebvh/webvh-go/canon"
	"github.com/didwebvh/webvh-go/proof"
	"github.com/didwebvh/webvh-go/replay"
	"github.com/didwebvh/webvh-go/scid"
	"github.com/didwebvh/webvh-go/webvhdoc"
	"github.com/didwebvh/webvh-go/werr"
	"github.com/didwebvh/webvh-go/witness"
)

// Result is the {did, doc, meta, log} tuple spec §4.7 says create, update,
// and deactivate all produce: the newly sealed entry, the log it now
// belongs to, and the resolved snapshot obtained by replaying that log.
type Result struct {
	Entry    webvhdoc.Entry
	Log      []webvhdoc.Entry
	DID      string
	Document map[string]any
	Metadata webvhdoc.Metadata
}

// CreateInput assembles a genesis entry.
type CreateInput struct {
	// Domain is the host[:port] the DID's log will be served from.
	Domain string
	Path   []string

	// Document is the initial DID document. Every string referencing the
	// DID itself (id, verificationMethod ids, controller, ...) must use
	// webvhdoc.Placeholder in place of the scid, since the scid does not
	// exist until this entry is hashed.
	Document map[string]any

	// Parameters is the genesis parameter set. Method and UpdateKeys are
	// required; SCID is overwritten with webvhdoc.Placeholder regardless
	// of what the caller supplies.
	Parameters webvhdoc.Parameters

	VersionTime  time.Time
	Signer       proof.Signer
	Verifier     proof.Verifier
	KeyResolver  proof.KeyResolver
	ProofOptions webvhdoc.Proof
}

// Create assembles, hashes, and signs a genesis entry, deriving the scid
// from its own hash (spec §4.2, §4.4). It returns the {did, doc, meta, log}
// tuple spec §4.7 documents for createDID.
func Create(ctx context.Context, in CreateInput) (Result, error) {
	if in.Parameters.Method == nil || *in.Parameters.Method == "" {
		return Result{}, werr.New(werr.InputShape, "", "genesis requires parameters.method")
	}
	if !in.Parameters.HasUpdateKeys() || len(in.Parameters.UpdateKeys) == 0 {
		return Result{}, werr.New(werr.InputShape, "", "genesis requires at least one parameters.updateKeys entry")
	}
	if err := witness.ValidateParams("", in.Parameters.Witness); err != nil {
		return Result{}, err
	}

	params := in.Parameters
	params.SCID = to.StringPtr(webvhdoc.Placeholder)
	doc := webvhdoc.StripPrivateKeys(in.Document)

	placeholderEntry := webvhdoc.Entry{
		VersionTime: in.VersionTime,
		Parameters:  params,
		State:       doc,
	}
	hashable, err := webvhdoc.HashableGeneric(placeholderEntry)
	if err != nil {
		return Result{}, werr.Wrap(werr.ChainIntegrity, "", err, "canonicalizing genesis entry")
	}

	scidVal, err := scid.Derive(hashable)
	if err != nil {
		return Result{}, werr.Wrap(werr.ChainIntegrity, "", err, "deriving scid")
	}

	realEntry, err := substituteEntry(placeholderEntry, webvhdoc.Placeholder, scidVal)
	if err != nil {
		return Result{}, werr.Wrap(werr.ChainIntegrity, "", err, "substituting scid into genesis entry")
	}
	realEntry.VersionID = webvhdoc.BuildVersionID(1, scidVal)

	documentGeneric, err := documentGenericForSigning(realEntry)
	if err != nil {
		return Result{}, werr.Wrap(werr.ChainIntegrity, realEntry.VersionID, err, "canonicalizing entry for signing")
	}
	sealedProof, err := proof.Build(ctx, in.Signer, documentGeneric, in.ProofOptions)
	if err != nil {
		return Result{}, werr.Wrap(werr.ExternalFailure, realEntry.VersionID, err, "signing genesis entry")
	}
	realEntry.Proof = []webvhdoc.Proof{sealedProof}

	newLog := []webvhdoc.Entry{realEntry}
	snapshot, err := replay.Replay(ctx, newLog, replay.Options{
		Verifier:          in.Verifier,
		KeyResolver:       in.KeyResolver,
		SkipWitnessQuorum: true,
	})
	if err != nil {
		return Result{}, werr.Wrap(werr.ChainIntegrity, realEntry.VersionID, err, "self-validation of genesis entry failed")
	}

	return Result{
		Entry:    realEntry,
		Log:      newLog,
		DID:      snapshot.DID,
		Document: snapshot.Document,
		Metadata: snapshot.Metadata,
	}, nil
}

// UpdateInput assembles a non-genesis, non-deactivating entry.
type UpdateInput struct {
	Log         []webvhdoc.Entry
	Document    map[string]any
	Parameters  webvhdoc.Parameters
	VersionTime time.Time

	Signer      proof.Signer
	Verifier    proof.Verifier
	KeyResolver proof.KeyResolver

	WitnessProofs      webvhdoc.WitnessProofFile
	WitnessKeyResolver witness.KeyResolver

	ProofOptions webvhdoc.Proof
}

// Update replays the existing log to confirm it is currently valid and not
// deactivated, then appends and seals a new entry, returning the
// {did, doc, meta, log} tuple spec §4.7 documents for updateDID.
func Update(ctx context.Context, in UpdateInput) (Result, error) {
	if in.Parameters.Deactivated != nil && *in.Parameters.Deactivated {
		return Result{}, werr.New(werr.InputShape, "", "use Deactivate to deactivate a DID")
	}
	current, err := replay.Replay(ctx, in.Log, replay.Options{
		Verifier:           in.Verifier,
		KeyResolver:        in.KeyResolver,
		WitnessProofs:      in.WitnessProofs,
		WitnessKeyResolver: in.WitnessKeyResolver,
	})
	if err != nil {
		return Result{}, werr.Wrap(werr.ChainIntegrity, "", err, "existing log failed validation")
	}
	if current.Metadata.Deactivated {
		return Result{}, werr.New(werr.PolicyViolation, current.Metadata.VersionID, "cannot update a deactivated did")
	}

	return sealNextEntry(ctx, in.Log, in.Document, in.Parameters, in.VersionTime, in.Signer, in.Verifier, in.KeyResolver, in.ProofOptions)
}

// DeactivateInput assembles the terminal entry of a log.
type DeactivateInput struct {
	Log         []webvhdoc.Entry
	Document    map[string]any // optional: defaults to the tip's current state
	VersionTime time.Time

	Signer      proof.Signer
	Verifier    proof.Verifier
	KeyResolver proof.KeyResolver

	WitnessProofs      webvhdoc.WitnessProofFile
	WitnessKeyResolver witness.KeyResolver

	ProofOptions webvhdoc.Proof
}

// Deactivate replays the existing log, then appends a final entry with
// parameters.deactivated set to true, per spec §3 invariant 8, returning
// the {did, doc, meta, log} tuple spec §4.7 documents for deactivateDID.
func Deactivate(ctx context.Context, in DeactivateInput) (Result, error) {
	current, err := replay.Replay(ctx, in.Log, replay.Options{
		Verifier:           in.Verifier,
		KeyResolver:        in.KeyResolver,
		WitnessProofs:      in.WitnessProofs,
		WitnessKeyResolver: in.WitnessKeyResolver,
	})
	if err != nil {
		return Result{}, werr.Wrap(werr.ChainIntegrity, "", err, "existing log failed validation")
	}
	if current.Metadata.Deactivated {
		return Result{}, werr.New(werr.PolicyViolation, current.Metadata.VersionID, "did is already deactivated")
	}

	doc := in.Document
	if doc == nil {
		doc = in.Log[len(in.Log)-1].State
	}
	params := webvhdoc.Parameters{Deactivated: to.BoolPtr(true)}

	return sealNextEntry(ctx, in.Log, doc, params, in.VersionTime, in.Signer, in.Verifier, in.KeyResolver, in.ProofOptions)
}

func sealNextEntry(
	ctx context.Context,
	log []webvhdoc.Entry,
	document map[string]any,
	params webvhdoc.Parameters,
	versionTime time.Time,
	signer proof.Signer,
	verifier proof.Verifier,
	keyResolver proof.KeyResolver,
	proofOptions webvhdoc.Proof,
) (Result, error) {
	if err := witness.ValidateParams("", params.Witness); err != nil {
		return Result{}, err
	}

	n := len(log) + 1
	doc := webvhdoc.StripPrivateKeys(document)
	entry := webvhdoc.Entry{
		VersionTime: versionTime,
		Parameters:  params,
		State:       doc,
	}

	hashable, err := webvhdoc.HashableGeneric(entry)
	if err != nil {
		return Result{}, werr.Wrap(werr.ChainIntegrity, "", err, "canonicalizing entry")
	}
	entryHash, err := canon.HashAndEncode(hashable)
	if err != nil {
		return Result{}, werr.Wrap(werr.ChainIntegrity, "", err, "hashing entry")
	}
	entry.VersionID = webvhdoc.BuildVersionID(n, entryHash)

	documentGeneric, err := documentGenericForSigning(entry)
	if err != nil {
		return Result{}, werr.Wrap(werr.ChainIntegrity, entry.VersionID, err, "canonicalizing entry for signing")
	}
	sealedProof, err := proof.Build(ctx, signer, documentGeneric, proofOptions)
	if err != nil {
		return Result{}, werr.Wrap(werr.ExternalFailure, entry.VersionID, err, "signing entry")
	}
	entry.Proof = []webvhdoc.Proof{sealedProof}

	newLog := make([]webvhdoc.Entry, 0, n)
	newLog = append(newLog, log...)
	newLog = append(newLog, entry)

	snapshot, err := replay.Replay(ctx, newLog, replay.Options{
		Verifier:          verifier,
		KeyResolver:       keyResolver,
		SkipWitnessQuorum: true,
	})
	if err != nil {
		return Result{}, werr.Wrap(werr.ChainIntegrity, entry.VersionID, err, "self-validation of new entry failed")
	}

	return Result{
		Entry:    entry,
		Log:      newLog,
		DID:      snapshot.DID,
		Document: snapshot.Document,
		Metadata: snapshot.Metadata,
	}, nil
}

// documentGenericForSigning returns entry (with versionId, without its own
// proof) as a generic structure, the "document" half of spec §4.3's
// two-hash signing scheme.
func documentGenericForSigning(entry webvhdoc.Entry) (any, error) {
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

// substituteEntry round-trips entry through JSON to replace every exact
// occurrence of from with to across its generic structure, then decodes
// back into a typed Entry.
func substituteEntry(entry webvhdoc.Entry, from, replacement string) (webvhdoc.Entry, error) {
	generic, err := canon.ToGeneric(entry)
	if err != nil {
		return webvhdoc.Entry{}, err
	}
	substituted := canon.SubstituteStrings(generic, from, replacement)
	b, err := json.Marshal(substituted)
	if err != nil {
		return webvhdoc.Entry{}, fmt.Errorf("builder: re-marshal substituted entry: %w", err)
	}
	var out webvhdoc.Entry
	if err := json.Unmarshal(b, &out); err != nil {
		return webvhdoc.Entry{}, fmt.Errorf("builder: decode substituted entry: %w", err)
	}
	return out, nil
}
