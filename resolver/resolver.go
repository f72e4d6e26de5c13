// Package resolver implements C7: the facade tying together the entry
// builder, log replay, and witness quorum check behind CreateDID,
// ResolveDIDFromLog, UpdateDID, and DeactivateDID, plus an optional
// resolution cache.
//
// Grounded on cocoon/plc/client.go's Client (holds a signer, issues
// create/update PLC operations against a directory) for the facade shape,
// and cocoon/identity/mem_cache.go's MemCache (expirable.LRU keyed caches
// for resolved documents and DIDs) for the resolution cache.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/didwebvh/webvh-go/builder"
	"github.com/didwebvh/webvh-go/proof"
	"github.com/didwebvh/webvh-go/replay"
	"github.com/didwebvh/webvh-go/webvhdoc"
	"github.com/didwebvh/webvh-go/werr"
	"github.com/didwebvh/webvh-go/witness"
)

// Fetcher retrieves a DID's log and witness proof file. Implemented by
// package fetch for HTTP origins; tests and offline callers can supply an
// in-memory stub.
type Fetcher interface {
	FetchLog(ctx context.Context, did webvhdoc.DID) ([]webvhdoc.Entry, error)
	FetchWitnessProofs(ctx context.Context, did webvhdoc.DID) (webvhdoc.WitnessProofFile, error)
}

const defaultCacheTTL = 5 * time.Minute

// Resolver wires a Fetcher and a set of cryptographic collaborators into
// the four did:webvh operations.
type Resolver struct {
	Fetcher            Fetcher
	Verifier           proof.Verifier
	KeyResolver        proof.KeyResolver
	WitnessKeyResolver witness.KeyResolver
	Logger             *slog.Logger

	cache *lru.LRU[string, replay.Result]
}

// Option configures a Resolver at construction time.
type Option func(*Resolver)

// WithKeyResolver sets the resolver used to look up update-key material for
// verification methods that do not carry an inline multibase key.
func WithKeyResolver(kr proof.KeyResolver) Option {
	return func(r *Resolver) { r.KeyResolver = kr }
}

// WithWitnessKeyResolver sets the resolver used to look up witness key
// material for verification methods that do not carry an inline key.
func WithWitnessKeyResolver(kr witness.KeyResolver) Option {
	return func(r *Resolver) { r.WitnessKeyResolver = kr }
}

// WithLogger overrides the default slog.Default() logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.Logger = l }
}

// WithCache enables an in-memory LRU cache of resolved {did, target}
// snapshots, holding up to size entries for ttl.
func WithCache(size int, ttl time.Duration) Option {
	return func(r *Resolver) { r.cache = lru.NewLRU[string, replay.Result](size, nil, ttl) }
}

// New builds a Resolver over fetcher and verifier, applying any options.
func New(fetcher Fetcher, verifier proof.Verifier, opts ...Option) *Resolver {
	r := &Resolver{Fetcher: fetcher, Verifier: verifier, Logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func cacheKey(did string, ropts replay.Options) string {
	switch {
	case ropts.TargetVersionID != "":
		return did + "|id:" + ropts.TargetVersionID
	case ropts.TargetVersionNumber != 0:
		return fmt.Sprintf("%s|n:%d", did, ropts.TargetVersionNumber)
	case ropts.TargetVersionTime != nil:
		return did + "|t:" + ropts.TargetVersionTime.Format(time.RFC3339Nano)
	case ropts.TargetVerificationMethod != "":
		return did + "|vm:" + ropts.TargetVerificationMethod
	default:
		return did + "|tip"
	}
}

// ResolveDIDFromLog fetches did's log (and witness proof file, if any) and
// replays it, returning the {did, document, metadata} snapshot ropts
// selects. Successful resolutions to an explicit target are cached; tip
// resolutions are never cached, since a fresh fetch may extend the log.
func (r *Resolver) ResolveDIDFromLog(ctx context.Context, did string, ropts replay.Options) (replay.Result, error) {
	parsed, err := webvhdoc.Parse(did)
	if err != nil {
		return replay.Result{}, werr.Wrap(werr.InputShape, "", err, "parsing did")
	}

	explicitTarget := ropts.TargetVersionID != "" || ropts.TargetVersionNumber != 0 ||
		ropts.TargetVersionTime != nil || ropts.TargetVerificationMethod != ""

	key := cacheKey(did, ropts)
	if r.cache != nil && explicitTarget {
		if cached, ok := r.cache.Get(key); ok {
			return cached, nil
		}
	}

	log, err := r.Fetcher.FetchLog(ctx, parsed)
	if err != nil {
		return replay.Result{}, werr.Wrap(werr.ExternalFailure, "", err, "fetching log")
	}
	proofs, err := r.Fetcher.FetchWitnessProofs(ctx, parsed)
	if err != nil {
		return replay.Result{}, werr.Wrap(werr.ExternalFailure, "", err, "fetching witness proofs")
	}

	ropts.Verifier = r.Verifier
	ropts.KeyResolver = r.KeyResolver
	ropts.WitnessKeyResolver = r.WitnessKeyResolver
	ropts.WitnessProofs = proofs

	result, err := replay.Replay(ctx, log, ropts)
	if err != nil {
		r.logger().Warn("did resolution failed", "did", did, "error", err)
		return replay.Result{}, err
	}

	if r.cache != nil && explicitTarget {
		r.cache.Add(key, result)
	}
	r.logger().Debug("resolved did", "did", did, "versionId", result.Metadata.VersionID)
	return result, nil
}

// CreateDID delegates to builder.Create, filling in this Resolver's
// Verifier and KeyResolver if in did not already set them, and returns the
// {did, doc, meta, log} tuple spec §4.7 documents for createDID.
func (r *Resolver) CreateDID(ctx context.Context, in builder.CreateInput) (builder.Result, error) {
	if in.Verifier == nil {
		in.Verifier = r.Verifier
	}
	if in.KeyResolver == nil {
		in.KeyResolver = r.KeyResolver
	}
	result, err := builder.Create(ctx, in)
	if err == nil {
		r.logger().Info("created did", "did", result.DID)
	}
	return result, err
}

// UpdateDID fetches did's current log (unless in.Log is already populated),
// then delegates to builder.Update, returning the {did, doc, meta, log}
// tuple spec §4.7 documents for updateDID.
func (r *Resolver) UpdateDID(ctx context.Context, did string, in builder.UpdateInput) (builder.Result, error) {
	if len(in.Log) == 0 {
		parsed, err := webvhdoc.Parse(did)
		if err != nil {
			return builder.Result{}, werr.Wrap(werr.InputShape, "", err, "parsing did")
		}
		log, err := r.Fetcher.FetchLog(ctx, parsed)
		if err != nil {
			return builder.Result{}, werr.Wrap(werr.ExternalFailure, "", err, "fetching log")
		}
		in.Log = log
	}
	if in.Verifier == nil {
		in.Verifier = r.Verifier
	}
	if in.KeyResolver == nil {
		in.KeyResolver = r.KeyResolver
	}
	if in.WitnessKeyResolver == nil {
		in.WitnessKeyResolver = r.WitnessKeyResolver
	}
	result, err := builder.Update(ctx, in)
	if err == nil {
		r.logger().Info("updated did", "did", did, "versionId", result.Entry.VersionID)
	}
	return result, err
}

// DeactivateDID fetches did's current log (unless in.Log is already
// populated), then delegates to builder.Deactivate, returning the
// {did, doc, meta, log} tuple spec §4.7 documents for deactivateDID.
func (r *Resolver) DeactivateDID(ctx context.Context, did string, in builder.DeactivateInput) (builder.Result, error) {
	if len(in.Log) == 0 {
		parsed, err := webvhdoc.Parse(did)
		if err != nil {
			return builder.Result{}, werr.Wrap(werr.InputShape, "", err, "parsing did")
		}
		log, err := r.Fetcher.FetchLog(ctx, parsed)
		if err != nil {
			return builder.Result{}, werr.Wrap(werr.ExternalFailure, "", err, "fetching log")
		}
		in.Log = log
	}
	if in.Verifier == nil {
		in.Verifier = r.Verifier
	}
	if in.KeyResolver == nil {
		in.KeyResolver = r.KeyResolver
	}
	if in.WitnessKeyResolver == nil {
		in.WitnessKeyResolver = r.WitnessKeyResolver
	}
	result, err := builder.Deactivate(ctx, in)
	if err == nil {
		r.logger().Info("deactivated did", "did", did, "versionId", result.Entry.VersionID)
	}
	return result, err
}
