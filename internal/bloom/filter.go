// Package bloom provides a probabilistic membership filter over catalog
// filenames. During bulk indexing the catalog seeds a filter with every
// stored filename and consults it before querying the store: a negative
// answer is definitive and skips the query, a positive answer falls
// through to the real lookup.
package bloom

import (
	"math"

	"github.com/spaolacci/murmur3"
)

// Filter is a bloom filter over strings. It guarantees no false
// negatives: if a name was added, MayContain always returns true.
// It is not safe for concurrent use; the catalog runs single-threaded.
type Filter struct {
	bits      []uint64
	numBits   uint64
	numHashes uint64
	count     int
}

// New creates a Filter with the given number of bits and hash functions.
func New(numBits, numHashes int) *Filter {
	if numBits <= 0 {
		numBits = 1024
	}
	if numHashes <= 0 {
		numHashes = 7
	}

	numWords := (numBits + 63) / 64
	return &Filter{
		bits:      make([]uint64, numWords),
		numBits:   uint64(numWords * 64),
		numHashes: uint64(numHashes),
	}
}

// NewWithEstimates creates a Filter sized for the expected number of
// names and target false positive rate.
func NewWithEstimates(expectedItems int, targetFPR float64) *Filter {
	numBits, numHashes := OptimalParameters(expectedItems, targetFPR)
	return New(numBits, numHashes)
}

// OptimalParameters calculates bit and hash counts for an expected item
// count and false positive rate:
//
//	m = -n * ln(p) / (ln(2)^2)
//	k = (m/n) * ln(2)
func OptimalParameters(expectedItems int, targetFPR float64) (numBits, numHashes int) {
	if expectedItems <= 0 {
		expectedItems = 1000
	}
	if targetFPR <= 0 || targetFPR >= 1 {
		targetFPR = 0.01
	}

	n := float64(expectedItems)
	m := -n * math.Log(targetFPR) / (math.Ln2 * math.Ln2)
	k := (m / n) * math.Ln2

	numBits = int(math.Ceil(m))
	numHashes = int(math.Round(k))
	if numHashes < 1 {
		numHashes = 1
	}
	return numBits, numHashes
}

// Add records a name in the filter.
func (f *Filter) Add(name string) {
	h1, h2 := murmur3.Sum128([]byte(name))
	for i := uint64(0); i < f.numHashes; i++ {
		pos := (h1 + i*h2) % f.numBits
		f.bits[pos/64] |= 1 << (pos % 64)
	}
	f.count++
}

// MayContain reports whether the name may have been added. False
// positives are possible; false negatives are not.
func (f *Filter) MayContain(name string) bool {
	h1, h2 := murmur3.Sum128([]byte(name))
	for i := uint64(0); i < f.numHashes; i++ {
		pos := (h1 + i*h2) % f.numBits
		if f.bits[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}
	return true
}

// Count returns the number of names added.
func (f *Filter) Count() int { return f.count }
