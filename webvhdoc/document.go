package webvhdoc

// StripPrivateKeys returns a deep copy of a DID document with every
// secretKeyMultibase field removed from any verificationMethod entry, per
// spec §4.4 step 1 ("the core must never emit private keys in state").
func StripPrivateKeys(doc map[string]any) map[string]any {
	out := deepCopyMap(doc)
	vms, ok := out["verificationMethod"].([]any)
	if !ok {
		return out
	}
	for i, v := range vms {
		vm, ok := v.(map[string]any)
		if !ok {
			continue
		}
		delete(vm, "secretKeyMultibase")
		vms[i] = vm
	}
	out["verificationMethod"] = vms
	return out
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return t
	}
}

// DocumentID returns doc["id"] as a string, or "" if absent/malformed.
func DocumentID(doc map[string]any) string {
	id, _ := doc["id"].(string)
	return id
}

// VerificationMethodIDs returns the "id" of every entry in
// doc["verificationMethod"].
func VerificationMethodIDs(doc map[string]any) []string {
	vms, _ := doc["verificationMethod"].([]any)
	ids := make([]string, 0, len(vms))
	for _, v := range vms {
		vm, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := vm["id"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// WithDefaultServices returns a copy of doc with the #files and #whois
// default services injected if not already present, per spec §4.5.
// Injection happens only for display/resolution output — the hash inputs
// must use the un-injected doc (see replay.go).
func WithDefaultServices(doc map[string]any, baseURL string) map[string]any {
	out := deepCopyMap(doc)
	services, _ := out["service"].([]any)

	has := func(id string) bool {
		for _, s := range services {
			svc, ok := s.(map[string]any)
			if ok && svc["id"] == id {
				return true
			}
		}
		return false
	}

	if !has("#files") {
		services = append(services, map[string]any{
			"id":              "#files",
			"type":            "relativeRef",
			"serviceEndpoint": baseURL,
		})
	}
	if !has("#whois") {
		services = append(services, map[string]any{
			"id":              "#whois",
			"type":            "LinkedVerifiablePresentation",
			"serviceEndpoint": baseURL + "/whois.vp",
		})
	}
	out["service"] = services
	return out
}
