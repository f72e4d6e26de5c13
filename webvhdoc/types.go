// Package webvhdoc holds the did:webvh wire types: log entries,
// parameters, resolution metadata, and the DID document fields this core
// actually reads. Field shapes are adapted from cocoon/identity/types.go's
// DidDoc/DidLog/DidLogEntry family.
package webvhdoc

import "time"

// Placeholder is the sentinel substituted for the SCID in a genesis
// entry before its hash (and therefore its SCID) can be computed.
const Placeholder = "{SCID}"

// Entry is one line of a did:webvh log.
type Entry struct {
	VersionID   string         `json:"versionId"`
	VersionTime time.Time      `json:"versionTime"`
	Parameters  Parameters     `json:"parameters"`
	State       map[string]any `json:"state"`
	Proof       []Proof        `json:"proof,omitempty"`
}

// Proof is a W3C Data Integrity proof, fixed to cryptosuite eddsa-jcs-2022
// by this method.
type Proof struct {
	Type               string    `json:"type"`
	Cryptosuite        string    `json:"cryptosuite"`
	Created            time.Time `json:"created,omitempty"`
	VerificationMethod string    `json:"verificationMethod"`
	ProofPurpose       string    `json:"proofPurpose"`
	ProofValue         string    `json:"proofValue,omitempty"`
}

// Witness is the object form of the witness parameter.
type Witness struct {
	Witnesses []WitnessEntry `json:"witnesses"`
	Threshold int            `json:"threshold"`
}

// WitnessEntry names one witness and its (optional, default 1) weight.
type WitnessEntry struct {
	ID     string `json:"id"`
	Weight *int   `json:"weight,omitempty"`
}

// EffectiveWeight returns the witness's weight, defaulting to 1.
func (w WitnessEntry) EffectiveWeight() int {
	if w.Weight == nil {
		return 1
	}
	return *w.Weight
}

// Metadata is the accumulator produced by replaying a log, per spec §3.
type Metadata struct {
	VersionID     string    `json:"versionId"`
	Created       time.Time `json:"created"`
	Updated       time.Time `json:"updated"`
	SCID          string    `json:"scid"`
	UpdateKeys    []string  `json:"updateKeys"`
	NextKeyHashes []string  `json:"nextKeyHashes"`
	Prerotation   bool      `json:"prerotation"`
	Portable      bool      `json:"portable"`
	Deactivated   bool      `json:"deactivated"`
	Witness       *Witness  `json:"witness,omitempty"`
	Watchers      []string  `json:"watchers,omitempty"`
}

// Clone returns a deep copy of m, per spec §5 ("one deep-clone per emitted
// snapshot").
func (m Metadata) Clone() Metadata {
	out := m
	out.UpdateKeys = append([]string(nil), m.UpdateKeys...)
	out.NextKeyHashes = append([]string(nil), m.NextKeyHashes...)
	out.Watchers = append([]string(nil), m.Watchers...)
	if m.Witness != nil {
		w := *m.Witness
		w.Witnesses = append([]WitnessEntry(nil), m.Witness.Witnesses...)
		out.Witness = &w
	}
	return out
}

// WitnessProofFile is the JSON array fetched from <base-url>/did-witness.json.
type WitnessProofFile []WitnessProofEntry

// WitnessProofEntry is one entry in a witness proof file: a witness's
// attestation over a specific log tip.
type WitnessProofEntry struct {
	VersionID string  `json:"versionId"`
	Proof     []Proof `json:"proof"`
}
