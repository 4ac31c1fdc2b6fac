// Package xid makes short identifiers that sort by creation time and are
// easy to read back from a printed receipt.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// New returns prefix-YYYYMMDD-HHMMSS-xxxxxxxx, with the timestamp in UTC and
// eight random hex digits.
func New(prefix string, at time.Time) string {
	stamp := at.UTC().Format("20060102-150405")
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%s-%09d", prefix, stamp, at.Nanosecond())
	}
	return fmt.Sprintf("%s-%s-%s", prefix, stamp, hex.EncodeToString(buf))
}
