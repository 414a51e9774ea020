package simhash

import (
	"hash/fnv"
	"math/bits"
	"strings"
)

// Of computes a 64-bit SimHash over a token set. Token order does not
// matter; duplicate tokens weigh once per occurrence. An empty set yields 0.
func Of(tokens []string) uint64 {
	if len(tokens) == 0 {
		return 0
	}

	var vector [64]int
	h := fnv.New64a()
	for _, tok := range tokens {
		h.Reset()
		h.Write([]byte(tok))
		sum := h.Sum64()
		for i := 0; i < 64; i++ {
			if sum&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var fp uint64
	for i, v := range vector {
		if v > 0 {
			fp |= 1 << uint(i)
		}
	}
	return fp
}

// OfText fingerprints the whitespace-separated words of text.
func OfText(text string) uint64 {
	return Of(strings.Fields(text))
}

// Distance returns the Hamming distance between two fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similar reports whether two fingerprints are within threshold bits.
func Similar(a, b uint64, threshold int) bool {
	return Distance(a, b) <= threshold
}

// Tracker compares each page fingerprint with the one before it. A results
// site that clamps an out-of-range page index serves the last page again;
// the tracker flags that so pagination can stop.
type Tracker struct {
	threshold int
	prev      uint64
	primed    bool
}

// NewTracker returns a tracker. A negative threshold disables detection.
func NewTracker(threshold int) *Tracker {
	return &Tracker{threshold: threshold}
}

// Repeated records fp and reports whether it matches the previous page.
func (t *Tracker) Repeated(fp uint64) bool {
	if t.threshold < 0 {
		return false
	}
	repeated := t.primed && Similar(t.prev, fp, t.threshold)
	t.prev = fp
	t.primed = true
	return repeated
}
