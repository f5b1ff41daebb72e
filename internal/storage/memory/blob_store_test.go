package memory

import (
	"context"
	"testing"
)

func TestBlobStorePersistCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	payload := []byte("content")
	uri, err := store.Persist(context.Background(), "123", "456.html", payload)
	if err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if uri != "memory://123/456.html" {
		t.Fatalf("unexpected uri %s", uri)
	}
	payload[0] = 'C'
	stored, ok := store.Get("123", "456.html")
	if !ok || string(stored) != "content" {
		t.Fatalf("expected stored copy to be immutable, got %q", stored)
	}
}

func TestBlobStoreNames(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	for _, name := range []string{"catalog", "456.html", "456.html_x.jpg", "456.html_x.jpg"} {
		if _, err := store.Persist(context.Background(), "123", name, []byte(name)); err != nil {
			t.Fatalf("Persist(%s) error = %v", name, err)
		}
	}
	if _, err := store.Persist(context.Background(), "999", "catalog", nil); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	got := store.Names("123")
	want := []string{"456.html", "456.html_x.jpg", "catalog"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if store.Writes() != 5 {
		t.Fatalf("expected 5 writes, got %d", store.Writes())
	}
}

func TestBlobStoreRejectsBadNames(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	if _, err := store.Persist(context.Background(), "123", "a/b", nil); err == nil {
		t.Fatal("expected error for name with separator")
	}
}
