package blob_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alan-mat/saidia/internal/blob"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	s, err := blob.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	ctx := context.Background()
	payload := []byte("%PDF-1.4 pretend document")

	if err := s.Store(ctx, "report.pdf", payload); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	got, err := s.Fetch(ctx, "report.pdf")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("fetched %q, expected %q", got, payload)
	}
}

func TestLocalStoreFetchMissing(t *testing.T) {
	s, err := blob.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	_, err = s.Fetch(context.Background(), "never-stored.txt")
	if !errors.Is(err, blob.ErrNotFound) {
		t.Errorf("got %v, expected ErrNotFound", err)
	}
}

func TestLocalStoreRemove(t *testing.T) {
	s, err := blob.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	ctx := context.Background()
	if err := s.Store(ctx, "doc.txt", []byte("text")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := s.Remove(ctx, "doc.txt"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := s.Fetch(ctx, "doc.txt"); !errors.Is(err, blob.ErrNotFound) {
		t.Errorf("got %v, expected ErrNotFound after remove", err)
	}

	// removing a missing object is a no-op
	if err := s.Remove(ctx, "doc.txt"); err != nil {
		t.Errorf("second Remove failed: %v", err)
	}
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	s, err := blob.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}

	// path components are stripped, so the write lands inside the store
	ctx := context.Background()
	if err := s.Store(ctx, "../../etc/passwd", []byte("nope")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if _, err := s.Fetch(ctx, "passwd"); err != nil {
		t.Errorf("expected object stored under its base name: %v", err)
	}
}
