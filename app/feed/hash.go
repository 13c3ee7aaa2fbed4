package feed

import (
	"strconv"
)

// StableID derives a deterministic fingerprint from an article's title and
// URL: a 32-bit signed accumulator over the concatenated string, base-36
// encoded absolute value. Collisions are tolerated; this is not a security
// property.
func StableID(title, url string) string {
	var h int32
	for _, r := range title + url {
		h = (h << 5) - h + int32(r)
	}

	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 36)
}
