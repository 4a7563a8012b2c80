package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrSnakeDoc/marque/internal/domain"
)

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("<html>ok</html>")); err != nil {
			t.Errorf("write failed: %v", err)
		}
	}))
	defer srv.Close()

	f := New(2 * time.Second)
	body, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if body != "<html>ok</html>" {
		t.Errorf("Fetch body = %q, want %q", body, "<html>ok</html>")
	}
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	f := New(50 * time.Millisecond)
	_, err := f.Fetch(context.Background(), srv.URL)
	if !errors.Is(err, domain.ErrFetchTimeout) {
		t.Errorf("Fetch error = %v, want ErrFetchTimeout", err)
	}
}

func TestFetchNetworkError(t *testing.T) {
	f := New(time.Second)
	// Closed port: transport failure, not a timeout.
	_, err := f.Fetch(context.Background(), "http://127.0.0.1:1")
	if !errors.Is(err, domain.ErrFetchNetwork) {
		t.Errorf("Fetch error = %v, want ErrFetchNetwork", err)
	}
}

func TestFetchBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := New(time.Second)
	_, err := f.Fetch(context.Background(), srv.URL)
	if !errors.Is(err, domain.ErrFetchNetwork) {
		t.Errorf("Fetch error = %v, want ErrFetchNetwork on 5xx", err)
	}
}
