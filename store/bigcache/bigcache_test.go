package bigcache

import (
	"context"
	"testing"

	"github.com/unkn0wn-root/synckv/store/storetest"
)

func TestRoundTripAndGetAll(t *testing.T) {
	ctx := context.Background()
	s := New(Config{Shards: 4})
	defer s.Close()

	c, err := s.Open(ctx, "db")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, kv := range [][2]string{{"b", "2"}, {"a", "1"}, {"c", "3"}} {
		if err := c.Put(ctx, kv[0], kv[1]); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Delete(ctx, "c"); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(ctx, "never"); err != nil {
		t.Fatalf("Delete absent: %v", err)
	}

	all, err := c.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].Key != "a" || all[0].Value != "1" || all[1].Key != "b" {
		t.Fatalf("GetAll=%v", all)
	}
	if _, ok, err := c.Get(ctx, "c"); err != nil || ok {
		t.Fatalf("deleted key still present: ok=%v err=%v", ok, err)
	}
}

func TestPartitionSharedWithinStore(t *testing.T) {
	ctx := context.Background()
	s := New(Config{Shards: 2})
	defer s.Close()

	a, _ := s.Open(ctx, "db")
	b, _ := s.Open(ctx, "db")
	o, _ := s.Open(ctx, "other")
	_ = a.Put(ctx, "k", "v")
	if v, ok, _ := b.Get(ctx, "k"); !ok || v != "v" {
		t.Fatalf("second conn missed write: %q %v", v, ok)
	}
	if _, ok, _ := o.Get(ctx, "k"); ok {
		t.Fatalf("partitions leaked into each other")
	}
}

func TestConnContract(t *testing.T) {
	s := New(Config{Shards: 4})
	defer s.Close()
	storetest.Run(t, s)
}
