package prefs

import (
	"fmt"
	"hash/fnv"
)

// stableHash derives a deterministic fingerprint for an "other"-typed
// source from its known fields and opaque extras, so two distinct opaque
// sources never collide under DedupKey while identical ones do (needed
// for Merge idempotence — spec §4.6 property tests).
func stableHash(s Source) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s|%s", s.Type, s.StatEnergyFrom, s.StatEnergyTo, s.StatRate)
	for _, k := range s.Extra.Keys() {
		v, _ := s.Extra.Get(k)
		fmt.Fprintf(h, "|%s=%s", k, string(v))
	}
	return fmt.Sprintf("%x", h.Sum64())
}
