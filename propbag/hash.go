package propbag

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// Checksum is the running sum of payload hashes for one document.
//
// Addition is commutative, so the checksum depends on the set of payloads and
// not on their order.
type Checksum uint64

// add accumulates the hash of one token payload.
func (c *Checksum) add(payload string) {
	*c += Checksum(HashPayload(payload))
}

// String renders the checksum as the 10-character trailer field: decimal text
// truncated to its first 10 characters, or left-padded with '0'.
//
// Truncation loses the low-order digits of very large sums. That is part of
// the format.
func (c Checksum) String() string {
	s := strconv.FormatUint(uint64(c), 10)
	if len(s) > ChecksumWidth {
		return s[:ChecksumWidth]
	}
	if len(s) < ChecksumWidth {
		return strings.Repeat("0", ChecksumWidth-len(s)) + s
	}
	return s
}

// HashPayload is the string hash summed into the checksum (32-bit FNV-1a).
func HashPayload(payload string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(payload))
	return h.Sum32()
}

// ChecksumOf returns the checksum of a set of payloads.
func ChecksumOf(payloads ...string) Checksum {
	var c Checksum
	for _, p := range payloads {
		c.add(p)
	}
	return c
}
