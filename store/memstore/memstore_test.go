package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/unkn0wn-root/synckv/store"
	"github.com/unkn0wn-root/synckv/store/storetest"
)

func TestPartitionsSharedByName(t *testing.T) {
	ctx := context.Background()
	s := New()

	a, err := s.Open(ctx, "db")
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Open(ctx, "db")
	if err != nil {
		t.Fatal(err)
	}
	other, err := s.Open(ctx, "other")
	if err != nil {
		t.Fatal(err)
	}

	if err := a.Put(ctx, "k", "v"); err != nil {
		t.Fatal(err)
	}
	if v, ok, err := b.Get(ctx, "k"); err != nil || !ok || v != "v" {
		t.Fatalf("second conn Get: %q %v %v", v, ok, err)
	}
	if _, ok, _ := other.Get(ctx, "k"); ok {
		t.Fatalf("partitions must be isolated by name")
	}
}

func TestGetAllInsertionOrder(t *testing.T) {
	ctx := context.Background()
	c, _ := New().Open(ctx, "db")
	for _, p := range []store.Pair{{Key: "z", Value: "1"}, {Key: "a", Value: "2"}, {Key: "m", Value: "3"}} {
		if err := c.Put(ctx, p.Key, p.Value); err != nil {
			t.Fatal(err)
		}
	}
	got, err := c.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []store.Pair{{Key: "z", Value: "1"}, {Key: "a", Value: "2"}, {Key: "m", Value: "3"}}
	if len(got) != len(want) {
		t.Fatalf("GetAll=%v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("GetAll[%d]=%v want %v", i, got[i], want[i])
		}
	}
}

func TestDeleteAbsentIsNotAnError(t *testing.T) {
	ctx := context.Background()
	c, _ := New().Open(ctx, "db")
	if err := c.Delete(ctx, "missing"); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
}

func TestClosedConnRejectsCalls(t *testing.T) {
	ctx := context.Background()
	c, _ := New().Open(ctx, "db")
	_ = c.Close(ctx)
	_ = c.Close(ctx)
	if err := c.Put(ctx, "k", "v"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Put after close: %v", err)
	}
	if _, err := c.GetAll(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("GetAll after close: %v", err)
	}
}

func TestConnContract(t *testing.T) {
	storetest.Run(t, New())
}
