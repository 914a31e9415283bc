package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// timestampLayout is the canonical second-precision form hashed for every block.
const timestampLayout = "2006-01-02T15:04:05"

// CanonicalTimestamp renders t as UTC ISO-8601 with whole-second precision.
func CanonicalTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(timestampLayout)
}

// ComputeHash returns the lowercase hex SHA-256 over seq, timestamp, payload and
// prevHash, concatenated in that order with no separators.
//
// A zero timestamp means the caller never stamped the block; ComputeHash panics.
func ComputeHash(seq int64, ts time.Time, payload, prevHash string) string {
	if ts.IsZero() {
		panic("chain: ComputeHash called with zero timestamp")
	}
	h := sha256.New()
	h.Write([]byte(strconv.FormatInt(seq, 10)))
	h.Write([]byte(CanonicalTimestamp(ts)))
	h.Write([]byte(payload))
	h.Write([]byte(prevHash))
	return hex.EncodeToString(h.Sum(nil))
}
