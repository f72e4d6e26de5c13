package webvhdoc

import (
	"fmt"
	"strings"
)

// MethodName is the did:webvh method name used in the DID string itself
// (as opposed to Parameters.Method, the protocol-version identifier).
const MethodName = "webvh"

// DID is a parsed did:webvh identifier:
// did:webvh:<scid>:<domain>[:<path-segment>...]
type DID struct {
	SCID    string
	Domain  string // percent-encoded host[,%3Aport]
	Path    []string
}

// Parse parses a did:webvh DID string.
func Parse(did string) (DID, error) {
	parts := strings.Split(did, ":")
	if len(parts) < 4 || parts[0] != "did" || parts[1] != MethodName {
		return DID{}, fmt.Errorf("webvhdoc: not a did:%s identifier: %q", MethodName, did)
	}
	scid := parts[2]
	if scid == "" {
		return DID{}, fmt.Errorf("webvhdoc: missing scid in %q", did)
	}
	domain := parts[3]
	if domain == "" {
		return DID{}, fmt.Errorf("webvhdoc: missing domain in %q", did)
	}
	var path []string
	if len(parts) > 4 {
		path = parts[4:]
	}
	return DID{SCID: scid, Domain: domain, Path: path}, nil
}

// String reconstructs the DID string.
func (d DID) String() string {
	segs := append([]string{"did", MethodName, d.SCID, d.Domain}, d.Path...)
	return strings.Join(segs, ":")
}

// HostSegment returns the last colon-delimited segment of the DID: the
// domain if there is no path, else the final path segment. Spec §3
// invariant 5 compares this across versions to enforce portability.
func (d DID) HostSegment() string {
	if len(d.Path) == 0 {
		return d.Domain
	}
	return d.Path[len(d.Path)-1]
}

// EncodeDomain percent-encodes a "host[:port]" string for embedding in a
// DID: the colon before a port becomes %3A.
func EncodeDomain(hostport string) string {
	return strings.ReplaceAll(hostport, ":", "%3A")
}

// DecodeDomain reverses EncodeDomain.
func DecodeDomain(domain string) string {
	return strings.ReplaceAll(domain, "%3A", ":")
}

// BaseURL returns the https origin + path this DID's log is hosted under,
// without a trailing filename: https://<decoded-domain>/[<path>/...].
func (d DID) BaseURL() string {
	host := DecodeDomain(d.Domain)
	if len(d.Path) == 0 {
		return "https://" + host
	}
	return "https://" + host + "/" + strings.Join(d.Path, "/")
}

// LogURL returns the did.jsonl location for this DID, per spec §6.
func (d DID) LogURL() string {
	return d.BaseURL() + "/did.jsonl"
}

// WitnessProofURL returns the did-witness.json location for this DID, per
// spec §6.
func (d DID) WitnessProofURL() string {
	return d.BaseURL() + "/did-witness.json"
}

// New builds a DID from an scid, a host[:port], and optional path
// segments, percent-encoding the host's colon if present.
func New(scid, hostport string, path ...string) DID {
	return DID{SCID: scid, Domain: EncodeDomain(hostport), Path: path}
}
