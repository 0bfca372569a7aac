package mirror

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewMirrorSupplier(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ok.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer other.Close()

	s := NewMirrorSupplier(context.Background(), []string{ok.URL, broken.URL, other.URL}, 2*time.Second)
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}

	got := []string{s.Next(), s.Next(), s.Next()}
	want := []string{ok.URL, other.URL, ok.URL}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Next() sequence = %v, want %v", got, want)
		}
	}
}

func TestEmptyMirrorSupplier(t *testing.T) {
	s := NewMirrorSupplier(context.Background(), nil, time.Second)
	if s.Len() != 0 || s.Next() != "" {
		t.Fatal("empty supplier must hand out nothing")
	}
}
