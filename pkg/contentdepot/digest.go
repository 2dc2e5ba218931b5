package contentdepot

import (
	"fmt"
	"path"
)

const digestHexLen = 64 // sha256

// ValidateDigest checks that a digest is lowercase sha256 hex.
func ValidateDigest(digest string) error {
	if len(digest) != digestHexLen {
		return fmt.Errorf("%w: want %d hex characters, got %d", ErrInvalidDigest, digestHexLen, len(digest))
	}
	for _, c := range digest {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("%w: non-hex character %q", ErrInvalidDigest, c)
		}
	}
	return nil
}

// objectKeyForDigest maps a digest onto a sharded blob key. Two shard levels
// keep directory fan-out bounded on filesystem backends.
func objectKeyForDigest(digest string) string {
	return path.Join("artifact", digest[:2], digest[2:4], digest[4:])
}
