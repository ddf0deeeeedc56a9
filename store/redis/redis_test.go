package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/synckv/store/storetest"
)

func TestNewRequiresClient(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrNilClient) {
		t.Fatalf("expected ErrNilClient, got %v", err)
	}
}

func TestKeyPrefix(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()

	s, err := New(Config{Client: rdb})
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Key("prefs"); got != "synckv:prefs" {
		t.Fatalf("Key=%q", got)
	}
	s2, _ := New(Config{Client: rdb, Prefix: "app:"})
	if got := s2.Key("prefs"); got != "app:prefs" {
		t.Fatalf("Key=%q", got)
	}
	if s.Kind() != Kind {
		t.Fatalf("Kind=%q", s.Kind())
	}
}

func TestOpenFailsWhenUnreachable(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	s, _ := New(Config{Client: rdb})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := s.Open(ctx, "prefs"); err == nil {
		t.Fatalf("Open against a closed port should fail")
	}
	if _, err := s.Open(ctx, ""); err == nil {
		t.Fatalf("Open with empty name should fail")
	}
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	return mr, goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
}

func TestConnContract(t *testing.T) {
	_, rdb := newMiniredis(t)
	defer rdb.Close()
	s, err := New(Config{Client: rdb})
	if err != nil {
		t.Fatal(err)
	}
	storetest.Run(t, s)
}

func TestOwnedClientClosedOnLastConn(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newMiniredis(t)
	s, err := New(Config{Client: rdb, CloseClient: true})
	if err != nil {
		t.Fatal(err)
	}

	a, err := s.Open(ctx, "a")
	if err != nil {
		t.Fatalf("Open a: %v", err)
	}
	b, err := s.Open(ctx, "b")
	if err != nil {
		t.Fatalf("Open b: %v", err)
	}

	if err := a.Close(ctx); err != nil {
		t.Fatalf("Close a: %v", err)
	}
	if err := a.Close(ctx); err != nil {
		t.Fatalf("second Close a: %v", err)
	}
	if err := b.Put(ctx, "k", "v"); err != nil {
		t.Fatalf("Put on b after a closed: %v", err)
	}
	if got := mr.HGet(s.Key("b"), "k"); got != "v" {
		t.Fatalf("backend value = %q", got)
	}

	if err := b.Close(ctx); err != nil {
		t.Fatalf("Close b: %v", err)
	}
	if err := rdb.Ping(ctx).Err(); !errors.Is(err, goredis.ErrClosed) {
		t.Fatalf("owned client should be closed after last Conn, ping err = %v", err)
	}
}

func TestBorrowedClientLeftOpen(t *testing.T) {
	ctx := context.Background()
	_, rdb := newMiniredis(t)
	defer rdb.Close()
	s, _ := New(Config{Client: rdb})

	c, err := s.Open(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Fatalf("borrowed client closed by Conn.Close: %v", err)
	}
}
