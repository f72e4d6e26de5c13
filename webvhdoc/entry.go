package webvhdoc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/didwebvh/webvh-go/canon"
)

// HashableGeneric returns the generic (map[string]any) JSON representation
// of entry with versionId and proof stripped, ready for canonicalization.
// Per spec §4.1: "entryHash computation takes the entry with versionId and
// proof fields omitted."
func HashableGeneric(entry Entry) (any, error) {
	stripped := entry
	stripped.VersionID = ""
	stripped.Proof = nil

	generic, err := canon.ToGeneric(stripped)
	if err != nil {
		return nil, fmt.Errorf("webvhdoc: %w", err)
	}
	m, ok := generic.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("webvhdoc: entry did not decode to an object")
	}
	delete(m, "versionId")
	delete(m, "proof")
	return m, nil
}

// SplitVersionID splits "<n>-<entryHash>" into its numeric prefix and
// hash suffix.
func SplitVersionID(versionID string) (n int, hash string, err error) {
	idx := strings.Index(versionID, "-")
	if idx < 0 {
		return 0, "", fmt.Errorf("webvhdoc: malformed versionId %q", versionID)
	}
	n, err = strconv.Atoi(versionID[:idx])
	if err != nil {
		return 0, "", fmt.Errorf("webvhdoc: malformed versionId %q: %w", versionID, err)
	}
	return n, versionID[idx+1:], nil
}

// BuildVersionID joins a 1-based version number and an entryHash into the
// "<n>-<entryHash>" form.
func BuildVersionID(n int, hash string) string {
	return fmt.Sprintf("%d-%s", n, hash)
}

// KeyCommitment hashes an updateKey string the same way on both sides of a
// pre-rotation commitment: callers compute it to populate the
// nextKeyHashes they pass to builder, and replay recomputes it to check a later entry's updateKeys against that
// commitment (spec §3 invariant 7).
func KeyCommitment(updateKey string) (string, error) {
	return canon.HashAndEncode(updateKey)
}
