// Package storetest checks that a store.Store honours the store.Conn contract.
// Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/unkn0wn-root/synckv/store"
)

// Run exercises st on fresh partitions. Names are unique per call so a
// shared backend (a live Redis or Postgres) can be reused across runs.
func Run(t *testing.T, st store.Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	base := fmt.Sprintf("contract_%d", time.Now().UnixNano())
	open := func(t *testing.T, name string) store.Conn {
		t.Helper()
		c, err := st.Open(ctx, name)
		if err != nil {
			t.Fatalf("Open(%q): %v", name, err)
		}
		t.Cleanup(func() { _ = c.Close(context.Background()) })
		return c
	}

	t.Run("fresh partition is empty", func(t *testing.T) {
		c := open(t, base+"_fresh")
		all, err := c.GetAll(ctx)
		if err != nil {
			t.Fatalf("GetAll: %v", err)
		}
		if len(all) != 0 {
			t.Fatalf("GetAll on fresh partition = %v", all)
		}
		if v, ok, err := c.Get(ctx, "missing"); err != nil || ok || v != "" {
			t.Fatalf("Get miss = %q %v %v", v, ok, err)
		}
	})

	t.Run("put get overwrite delete", func(t *testing.T) {
		c := open(t, base+"_crud")
		if err := c.Put(ctx, "a", "1"); err != nil {
			t.Fatalf("Put: %v", err)
		}
		if v, ok, err := c.Get(ctx, "a"); err != nil || !ok || v != "1" {
			t.Fatalf("Get after Put = %q %v %v", v, ok, err)
		}
		if err := c.Put(ctx, "a", "2"); err != nil {
			t.Fatalf("overwrite: %v", err)
		}
		if v, _, _ := c.Get(ctx, "a"); v != "2" {
			t.Fatalf("Get after overwrite = %q", v)
		}
		if err := c.Delete(ctx, "a"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, ok, err := c.Get(ctx, "a"); err != nil || ok {
			t.Fatalf("Get after Delete = %v %v", ok, err)
		}
		if err := c.Delete(ctx, "never-written"); err != nil {
			t.Fatalf("Delete of absent key: %v", err)
		}
	})

	t.Run("GetAll returns every live entry", func(t *testing.T) {
		c := open(t, base+"_all")
		want := map[string]string{"b": "2", "a": "1", "c": "3", "": "empty"}
		for k, v := range want {
			if err := c.Put(ctx, k, v); err != nil {
				t.Fatalf("Put(%q): %v", k, err)
			}
		}
		if err := c.Put(ctx, "gone", "x"); err != nil {
			t.Fatal(err)
		}
		if err := c.Delete(ctx, "gone"); err != nil {
			t.Fatal(err)
		}

		all, err := c.GetAll(ctx)
		if err != nil {
			t.Fatalf("GetAll: %v", err)
		}
		got := make(map[string]string, len(all))
		for _, p := range all {
			if _, dup := got[p.Key]; dup {
				t.Fatalf("GetAll returned %q twice", p.Key)
			}
			got[p.Key] = p.Value
		}
		if len(got) != len(want) {
			t.Fatalf("GetAll keys = %v want %v", keys(got), keys(want))
		}
		for k, v := range want {
			if got[k] != v {
				t.Fatalf("GetAll[%q] = %q want %q", k, got[k], v)
			}
		}
	})

	t.Run("partitions are isolated", func(t *testing.T) {
		a := open(t, base+"_iso_a")
		b := open(t, base+"_iso_b")
		if err := a.Put(ctx, "k", "a"); err != nil {
			t.Fatal(err)
		}
		if _, ok, err := b.Get(ctx, "k"); err != nil || ok {
			t.Fatalf("write leaked across partitions: %v %v", ok, err)
		}
	})

	t.Run("conns on one name share data", func(t *testing.T) {
		a := open(t, base+"_shared")
		b := open(t, base+"_shared")
		if err := a.Put(ctx, "k", "v"); err != nil {
			t.Fatal(err)
		}
		if v, ok, err := b.Get(ctx, "k"); err != nil || !ok || v != "v" {
			t.Fatalf("second conn Get = %q %v %v", v, ok, err)
		}
		if err := a.Close(ctx); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if err := a.Close(ctx); err != nil {
			t.Fatalf("second Close: %v", err)
		}
		if err := b.Put(ctx, "k2", "v2"); err != nil {
			t.Fatalf("Put on sibling after Close: %v", err)
		}
		if v, _, err := b.Get(ctx, "k2"); err != nil || v != "v2" {
			t.Fatalf("sibling Get after Close = %q %v", v, err)
		}
	})
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
