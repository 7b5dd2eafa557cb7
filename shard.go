// Shard-key hashing for the indexer's external sort.
//
// This is not part of the original's on-disk format: the original shells
// out to system sort(1). This rewrite buckets index lines by a hash of
// their key before sorting each bucket in memory (§4.5, §4.11), reusing
// the teacher's multi-algorithm hash.go pattern. The write path's Bloom
// filter (bloom.go) does not use these hashes; it hashes with FNV directly.
package rwhois

import (
	"fmt"
	"hash/fnv"

	"github.com/zeebo/xxh3"
	"golang.org/x/crypto/blake2b"
)

// shardHash returns a 64-bit hash of key using the configured algorithm,
// for bucketing into one of n shards.
func shardHash(key string, alg int) uint64 {
	switch alg {
	case ShardFNV1a:
		h := fnv.New64a()
		h.Write([]byte(key))
		return h.Sum64()
	case ShardBlake2b:
		h, _ := blake2b.New(8, nil)
		h.Write([]byte(key))
		var sum [8]byte
		copy(sum[:], h.Sum(nil))
		return uint64(sum[0])<<56 | uint64(sum[1])<<48 | uint64(sum[2])<<40 | uint64(sum[3])<<32 |
			uint64(sum[4])<<24 | uint64(sum[5])<<16 | uint64(sum[6])<<8 | uint64(sum[7])
	default:
		return xxh3.HashString(key)
	}
}

func shardOf(key string, alg int, nshards int) int {
	if nshards <= 1 {
		return 0
	}
	return int(shardHash(key, alg) % uint64(nshards))
}

func shardFileName(base string, kind int) string {
	return fmt.Sprintf("%s.shard%03d", base, kind)
}
