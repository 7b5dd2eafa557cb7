// In-memory Bloom filter over primary-key values.
//
// Adapted from the teacher's bloom.go, which built a filter over document
// IDs for sparse-region lookups. Here it sits in front of the write path's
// uniqueness check (spec.md §4.7): Add hashes the new record's primary-key
// values into the filter before running the full query, and only pays for
// the query when the filter reports a possible hit. A class is rebuilt
// lazily, from the registry's index files, the first time Add needs it.
package rwhois

import "hash/fnv"

const (
	bloomSize = 11982 // bytes, ~96k bits, sized for ~10k keys at 1% FP
	bloomK    = 7
)

type bloomFilter struct {
	bits []byte
}

func newBloomFilter() *bloomFilter {
	return &bloomFilter{bits: make([]byte, bloomSize)}
}

func (b *bloomFilter) Add(key string) {
	for _, pos := range bloomPositions(key) {
		b.bits[pos/8] |= 1 << (pos % 8)
	}
}

func (b *bloomFilter) MaybeContains(key string) bool {
	for _, pos := range bloomPositions(key) {
		if b.bits[pos/8]&(1<<(pos%8)) == 0 {
			return false
		}
	}
	return true
}

func (b *bloomFilter) Reset() { clear(b.bits) }

func bloomPositions(key string) [bloomK]uint {
	h64 := fnv.New64a()
	h64.Write([]byte(key))
	a := h64.Sum64()

	h32 := fnv.New32a()
	h32.Write([]byte(key))
	b := uint(h32.Sum32())

	nbits := uint(bloomSize * 8)
	var pos [bloomK]uint
	for i := range bloomK {
		pos[i] = (uint(a) + uint(i)*b) % nbits
	}
	return pos
}
