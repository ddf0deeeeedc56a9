package util

import "github.com/cespare/xxhash/v2"

// Shard maps key onto one of n buckets. The same key always lands in the
// same bucket for a given n. n <= 1 always yields 0.
func Shard(key string, n int) int {
	if n <= 1 {
		return 0
	}
	return int(xxhash.Sum64String(key) % uint64(n))
}
