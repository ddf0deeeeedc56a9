package synckv

import (
	"testing"

	"github.com/unkn0wn-root/synckv/codec"
	"github.com/unkn0wn-root/synckv/store/memstore"
)

type profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestTypedJSON(t *testing.T) {
	ctx := testCtx(t)
	st := memstore.New()
	c := newTestCache(t, st, nil)
	p := NewTyped[profile](c, codec.JSON[profile]{})

	if err := p.Set("u1", profile{ID: "1", Name: "Ada"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	raw, _ := c.GetItem("u1")
	if raw != `{"id":"1","name":"Ada"}` {
		t.Fatalf("raw item: %s", raw)
	}
	got, ok, err := p.Get("u1")
	if err != nil || !ok || got.Name != "Ada" {
		t.Fatalf("Get: %+v %v %v", got, ok, err)
	}

	if err := c.SetItem("bad", "{"); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	if _, _, err := p.Get("bad"); err == nil {
		t.Fatalf("undecodable value should be reported")
	}

	if err := p.Remove("u1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok, _ := p.Get("u1"); ok {
		t.Fatalf("removed value still present")
	}
	if err := c.WaitForCommit(ctx); err != nil {
		t.Fatalf("WaitForCommit: %v", err)
	}
}

func TestTypedReload(t *testing.T) {
	ctx := testCtx(t)
	fs := newFaultStore()
	fs.backendPut(testName, "u1", `{"id":"1","name":"old"}`)
	c := newTestCache(t, fs, nil)
	p := NewTyped[profile](c, codec.LimitCodec[profile]{Inner: codec.JSON[profile]{}, MaxDecode: 64})

	fs.backendPut(testName, "u1", `{"id":"1","name":"new"}`)
	got, ok, err := p.Reload(ctx, "u1")
	if err != nil || !ok || got.Name != "new" {
		t.Fatalf("Reload: %+v %v %v", got, ok, err)
	}
	if _, ok, err := p.Reload(ctx, "missing"); err != nil || ok {
		t.Fatalf("Reload missing: %v %v", ok, err)
	}
	if p.Storage() != Storage(c) {
		t.Fatalf("Storage should return the wrapped cache")
	}
}
