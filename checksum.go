package docview

import (
	"fmt"
	"io"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint returns the xxhash64 of data as 16 hex digits. It identifies a
// document's content and serves as its HTTP ETag.
func Fingerprint(data []byte) string {
	return formatSum(xxhash.Sum64(data))
}

// FingerprintReader computes the same fingerprint as Fingerprint while
// streaming r.
func FingerprintReader(r io.Reader) (string, error) {
	h := xxhash.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to calculate fingerprint: %w", err)
	}
	return formatSum(h.Sum64()), nil
}

func formatSum(sum uint64) string {
	s := strconv.FormatUint(sum, 16)
	for len(s) < 16 {
		s = "0" + s
	}
	return s
}
