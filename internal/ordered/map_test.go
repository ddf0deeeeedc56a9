package ordered

import (
	"reflect"
	"testing"
)

func TestInsertionOrderKept(t *testing.T) {
	m := New()
	m.Set("b", "1")
	m.Set("a", "2")
	m.Set("c", "3")
	m.Set("a", "overwritten") // keeps position

	if got, want := m.Keys(), []string{"b", "a", "c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys=%v want %v", got, want)
	}
	if v, ok := m.Get("a"); !ok || v != "overwritten" {
		t.Fatalf("Get(a)=%q,%v", v, ok)
	}
}

func TestDeleteThenReaddMovesToEnd(t *testing.T) {
	m := New()
	m.Set("x", "1")
	m.Set("y", "2")
	if !m.Delete("x") {
		t.Fatalf("Delete(x) should report presence")
	}
	if m.Delete("x") {
		t.Fatalf("second Delete(x) should report absence")
	}
	m.Set("x", "3")
	if got, want := m.Keys(), []string{"y", "x"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys=%v want %v", got, want)
	}
	if m.Len() != 2 {
		t.Fatalf("Len=%d want 2", m.Len())
	}
}

func TestSetIfAbsent(t *testing.T) {
	m := New()
	if !m.SetIfAbsent("k", "first") {
		t.Fatalf("expected insert on empty map")
	}
	if m.SetIfAbsent("k", "second") {
		t.Fatalf("expected no insert for present key")
	}
	if v, _ := m.Get("k"); v != "first" {
		t.Fatalf("Get(k)=%q want first", v)
	}
}

func TestKeysIsACopy(t *testing.T) {
	m := New()
	m.Set("a", "1")
	ks := m.Keys()
	ks[0] = "mutated"
	m.Set("b", "2")
	if !m.Has("a") || m.Has("mutated") || len(ks) != 1 {
		t.Fatalf("Keys must return an independent snapshot")
	}
}
