package buckets

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/flowlane/telemetryd/metric"
)

// Fingerprint returns a 64-bit, permutation-invariant hash of name and tags:
// two metrics with the same name and tag set in different insertion orders
// always hash to the same fingerprint, because tags are iterated in sorted
// key order.
func Fingerprint(name string, tags metric.TagMap) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(name)
	for _, k := range tags.Keys() {
		_, _ = h.WriteString(k)
		_, _ = h.WriteString("=")
		_, _ = h.WriteString(tags[k])
	}
	return h.Sum64()
}

// Key is a human-readable, still order-independent cache key built from a
// fingerprint; used where a map key needs to stay a string (e.g. when
// exposing iteration order to a sink).
func Key(name string, tags metric.TagMap) string {
	return name + "#" + strconv.FormatUint(Fingerprint(name, tags), 16)
}
