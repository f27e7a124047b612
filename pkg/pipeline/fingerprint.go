package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"ajala-hq/ajala/pkg/providers"
)

// Fingerprint returns a deterministic SHA-256 digest of the template, the
// variables (sorted by name), the provider and the model. Credentials are
// not part of it.
func Fingerprint(req *Request, pc providers.ProviderConfig) string {
	h := sha256.New()
	field := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}

	field(req.Template)

	names := make([]string, 0, len(req.Variables))
	for name := range req.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		field(name)
		field(req.Variables[name])
	}

	field(string(pc.Provider))
	field(pc.Model)
	return hex.EncodeToString(h.Sum(nil))
}
