package util

import (
	"fmt"
	"testing"
)

func TestShardStableAndInRange(t *testing.T) {
	const n = 7
	for i := 0; i < 1000; i++ {
		k := fmt.Sprintf("key:%d", i)
		s := Shard(k, n)
		if s < 0 || s >= n {
			t.Fatalf("Shard(%q)=%d out of range", k, s)
		}
		if again := Shard(k, n); again != s {
			t.Fatalf("Shard(%q) not stable: %d vs %d", k, s, again)
		}
	}
}

func TestShardSingleBucket(t *testing.T) {
	for _, n := range []int{-1, 0, 1} {
		if got := Shard("anything", n); got != 0 {
			t.Fatalf("Shard with n=%d = %d, want 0", n, got)
		}
	}
}

func TestShardSpreadsKeys(t *testing.T) {
	const n = 4
	seen := make(map[int]int)
	for i := 0; i < 400; i++ {
		seen[Shard(fmt.Sprintf("k%d", i), n)]++
	}
	if len(seen) != n {
		t.Fatalf("expected all %d buckets used, got %v", n, seen)
	}
}
