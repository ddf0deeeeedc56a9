package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/unkn0wn-root/synckv/store/storetest"
)

func TestNewRequiresPoolOrDSN(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error without pool or DSN")
	}
}

func TestNewRejectsMalformedDSN(t *testing.T) {
	if _, err := New(context.Background(), Config{DSN: "postgres://%zz"}); err == nil {
		t.Fatalf("expected error for malformed DSN")
	}
}

func TestTableIdentifierSanitized(t *testing.T) {
	s, err := New(context.Background(), Config{DSN: "postgres://user@127.0.0.1:1/db", Table: `kv"; DROP`})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()
	if s.table != `"kv""; DROP"` {
		t.Fatalf("table identifier not quoted: %s", s.table)
	}
	if s.Kind() != Kind {
		t.Fatalf("Kind=%q", s.Kind())
	}
}

// TestConnContract runs against a live server named by SYNCKV_TEST_POSTGRES_DSN.
func TestConnContract(t *testing.T) {
	dsn := os.Getenv("SYNCKV_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SYNCKV_TEST_POSTGRES_DSN not set")
	}
	s, err := New(context.Background(), Config{DSN: dsn, Table: "synckv_contract"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()
	storetest.Run(t, s)
}
