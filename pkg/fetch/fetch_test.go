package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchOK(t *testing.T) {
	payload := []byte("fake png bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(payload)
	}))
	defer srv.Close()

	c := New(5*time.Second, 1<<20, nil)
	body, ctype, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctype != "image/png" {
		t.Fatalf("expected image/png got %q", ctype)
	}
	if !bytes.Equal(body, payload) {
		t.Fatalf("body mismatch")
	}
}

func TestFetchFollowsRedirect(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg"))
	}))
	defer target.Close()
	redir := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusFound)
	}))
	defer redir.Close()

	c := New(5*time.Second, 1<<20, nil)
	body, _, err := c.Fetch(context.Background(), redir.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "jpeg" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestFetchNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := New(5*time.Second, 1<<20, nil)
	_, _, err := c.Fetch(context.Background(), srv.URL)
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch got %v", err)
	}
}

func TestFetchDisallowedType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	c := New(5*time.Second, 1<<20, nil)
	_, _, err := c.Fetch(context.Background(), srv.URL)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation got %v", err)
	}
}

func TestFetchAllowList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/gif")
		w.Write([]byte("gif"))
	}))
	defer srv.Close()

	c := New(5*time.Second, 1<<20, []string{"image/png", "image/jpeg"})
	_, _, err := c.Fetch(context.Background(), srv.URL)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for image/gif got %v", err)
	}
}

func TestFetchOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(bytes.Repeat([]byte("x"), 2048))
	}))
	defer srv.Close()

	c := New(5*time.Second, 1024, nil)
	_, _, err := c.Fetch(context.Background(), srv.URL)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation got %v", err)
	}
}

func TestCheckType(t *testing.T) {
	anyImage := New(time.Second, 1, nil)
	if err := anyImage.CheckType("image/webp"); err != nil {
		t.Fatalf("image/* should pass with empty allow-list: %v", err)
	}
	if err := anyImage.CheckType("application/pdf"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation got %v", err)
	}
	strict := New(time.Second, 1, []string{"image/png"})
	if err := strict.CheckType("image/png"); err != nil {
		t.Fatalf("listed type should pass: %v", err)
	}
	if err := strict.CheckType("image/jpeg"); !errors.Is(err, ErrValidation) {
		t.Fatalf("unlisted type should fail, got %v", err)
	}
}
