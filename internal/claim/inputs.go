package claim

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// Roles of the two claim phases.
const (
	RoleDoctor  = "doctor"
	RolePatient = "patient"
)

// DomainInputs separates input digests from any other hash in the system.
const DomainInputs = "zkclaim/inputs/v1"

// Inputs are the named circuit inputs for one phase. Values are decimal
// strings as the circuit expects them.
type Inputs map[string]string

// Clone returns an independent copy. A nil map clones to an empty one.
func (in Inputs) Clone() Inputs {
	out := make(Inputs, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}

// With returns a copy of in with key set to value.
func (in Inputs) With(key, value string) Inputs {
	out := in.Clone()
	out[key] = value
	return out
}

// Digest fingerprints the inputs for logs and run history without
// recording the private values themselves.
//
// Format: hex(SHA256(domain + 0x00 + k1 + 0x00 + v1 + 0x00 + ...)) over
// NFC-normalised pairs sorted by key. Keys that normalise to the same
// form are hashed once, keeping the value of the smallest raw key.
func (in Inputs) Digest() string {
	raw := make([]string, 0, len(in))
	for k := range in {
		raw = append(raw, k)
	}
	sort.Strings(raw)

	keys := make([]string, 0, len(in))
	norms := make(map[string]string, len(in))
	for _, k := range raw {
		nk := norm.NFC.String(k)
		if _, dup := norms[nk]; dup {
			continue
		}
		keys = append(keys, nk)
		norms[nk] = norm.NFC.String(in[k])
	}
	sort.Strings(keys)

	h := sha256.New()
	h.Write([]byte(DomainInputs))
	h.Write([]byte{0x00})
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0x00})
		h.Write([]byte(norms[k]))
		h.Write([]byte{0x00})
	}
	return hex.EncodeToString(h.Sum(nil))
}
