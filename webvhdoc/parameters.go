package webvhdoc

import "encoding/json"

// Parameters carries one version's protocol-parameter delta. Every field is
// optional after v1 and, per spec §3, sticky: a parameter not present in an
// entry's delta keeps the value it last held.
type Parameters struct {
	Method        *string   `json:"method,omitempty"`
	SCID          *string   `json:"scid,omitempty"`
	UpdateKeys    []string  `json:"updateKeys,omitempty"`
	NextKeyHashes []string  `json:"nextKeyHashes,omitempty"`
	Portable      *bool     `json:"portable,omitempty"`
	Witness       *Witness  `json:"witness,omitempty"`
	Watchers      []string  `json:"watchers,omitempty"`
	Deactivated   *bool     `json:"deactivated,omitempty"`

	// updateKeysSet / nextKeyHashesSet / watchersSet record whether the
	// corresponding slice was present in the source JSON at all (even as
	// an empty array), so Merge can distinguish "not specified, stays
	// sticky" from "explicitly cleared to empty".
	updateKeysSet    bool
	nextKeyHashesSet bool
	watchersSet      bool
}

// legacyParameters mirrors the wire shape, including spec §9 Open Question
// (a)'s legacy flat "witnesses"/"threshold" fields alongside the object
// "witness" field. UpdateKeys, NextKeyHashes, and Watchers are pointers so
// that "field absent" (nil pointer, omitted from the JSON) is distinct from
// "field present but empty" (non-nil pointer to a zero-length slice) — spec
// §3 makes these optional-after-v1 and sticky, so an unset field must be
// absent from the wire form, not present as an explicit null.
type legacyParameters struct {
	Method          *string        `json:"method,omitempty"`
	SCID            *string        `json:"scid,omitempty"`
	UpdateKeys      *[]string      `json:"updateKeys,omitempty"`
	NextKeyHashes   *[]string      `json:"nextKeyHashes,omitempty"`
	Portable        *bool          `json:"portable,omitempty"`
	Witness         *Witness       `json:"witness,omitempty"`
	WitnessesLegacy []WitnessEntry `json:"witnesses,omitempty"`
	ThresholdLegacy *int           `json:"threshold,omitempty"`
	Watchers        *[]string      `json:"watchers,omitempty"`
	Deactivated     *bool          `json:"deactivated,omitempty"`
}

// UnmarshalJSON accepts both the object witness form and the legacy flat
// witnesses/threshold form, normalizing to the object form.
func (p *Parameters) UnmarshalJSON(b []byte) error {
	var aux legacyParameters
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	p.Method = aux.Method
	p.SCID = aux.SCID
	p.UpdateKeys = sliceFromPtr(aux.UpdateKeys)
	p.updateKeysSet = aux.UpdateKeys != nil
	p.NextKeyHashes = sliceFromPtr(aux.NextKeyHashes)
	p.nextKeyHashesSet = aux.NextKeyHashes != nil
	p.Portable = aux.Portable
	p.Watchers = sliceFromPtr(aux.Watchers)
	p.watchersSet = aux.Watchers != nil
	p.Deactivated = aux.Deactivated

	switch {
	case aux.Witness != nil:
		p.Witness = aux.Witness
	case aux.WitnessesLegacy != nil:
		threshold := len(aux.WitnessesLegacy)
		if aux.ThresholdLegacy != nil {
			threshold = *aux.ThresholdLegacy
		}
		p.Witness = &Witness{Witnesses: aux.WitnessesLegacy, Threshold: threshold}
	}

	return nil
}

// MarshalJSON always emits the object witness form, never the legacy flat
// fields (spec §9 Open Question (a): "emit only the object form on write").
func (p Parameters) MarshalJSON() ([]byte, error) {
	aux := legacyParameters{
		Method:      p.Method,
		SCID:        p.SCID,
		Portable:    p.Portable,
		Witness:     p.Witness,
		Deactivated: p.Deactivated,
	}
	if p.updateKeysSet || p.UpdateKeys != nil {
		v := nonNilSlice(p.UpdateKeys)
		aux.UpdateKeys = &v
	}
	if p.nextKeyHashesSet || p.NextKeyHashes != nil {
		v := nonNilSlice(p.NextKeyHashes)
		aux.NextKeyHashes = &v
	}
	if p.watchersSet || p.Watchers != nil {
		v := nonNilSlice(p.Watchers)
		aux.Watchers = &v
	}
	return json.Marshal(aux)
}

func nonNilSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func sliceFromPtr(p *[]string) []string {
	if p == nil {
		return nil
	}
	return *p
}

// HasUpdateKeys reports whether this delta specifies updateKeys at all
// (even as an empty set).
func (p Parameters) HasUpdateKeys() bool { return p.updateKeysSet || p.UpdateKeys != nil }

// HasNextKeyHashes reports whether this delta specifies nextKeyHashes at
// all (even as an empty set).
func (p Parameters) HasNextKeyHashes() bool { return p.nextKeyHashesSet || p.NextKeyHashes != nil }

// Merge applies delta on top of prior (the accumulated sticky state),
// returning the resulting effective parameters for this version. Fields
// absent from delta keep prior's value.
func Merge(prior Parameters, delta Parameters) Parameters {
	out := prior
	if delta.Method != nil {
		out.Method = delta.Method
	}
	if delta.SCID != nil {
		out.SCID = delta.SCID
	}
	if delta.HasUpdateKeys() {
		out.UpdateKeys = delta.UpdateKeys
		out.updateKeysSet = true
	}
	if delta.HasNextKeyHashes() {
		out.NextKeyHashes = delta.NextKeyHashes
		out.nextKeyHashesSet = true
	}
	if delta.Portable != nil {
		out.Portable = delta.Portable
	}
	if delta.Witness != nil {
		out.Witness = delta.Witness
	}
	if delta.watchersSet || delta.Watchers != nil {
		out.Watchers = delta.Watchers
		out.watchersSet = true
	}
	if delta.Deactivated != nil {
		out.Deactivated = delta.Deactivated
	}
	return out
}
