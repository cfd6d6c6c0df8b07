package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/bookgeo/internal/model"
)

func TestLoader_Load_TextFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.txt")
	if err := os.WriteFile(path, []byte("It was a dark and stormy night."), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	loader := NewLoader(model.HTTPConfig{})
	text, err := loader.Load(context.Background(), path, 0)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if text != "It was a dark and stormy night." {
		t.Errorf("Unexpected text: %q", text)
	}
}

func TestLoader_Load_LimitChars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "book.txt")
	if err := os.WriteFile(path, []byte("Hello world"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	loader := NewLoader(model.HTTPConfig{})
	text, err := loader.Load(context.Background(), path, 5)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if text != "Hello" {
		t.Errorf("Expected truncation to 5 runes, got %q", text)
	}
}

func TestTruncateRunes_Multibyte(t *testing.T) {
	if got := truncateRunes("ñandú", 3); got != "ñan" {
		t.Errorf("Expected rune-aware truncation, got %q", got)
	}
	if got := truncateRunes("abc", 10); got != "abc" {
		t.Errorf("Expected pass-through, got %q", got)
	}
	if got := truncateRunes("abc", 0); got != "abc" {
		t.Errorf("Expected zero limit to pass through, got %q", got)
	}
}

func TestLoader_Load_UnsupportedExtension(t *testing.T) {
	loader := NewLoader(model.HTTPConfig{})
	_, err := loader.Load(context.Background(), "book.epub", 0)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !errors.Is(err, ErrUnsupportedSource) {
		t.Errorf("Expected ErrUnsupportedSource, got %v", err)
	}
}

func TestLoader_Load_HTMLPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if got := r.Header.Get("User-Agent"); !strings.HasPrefix(got, "bookgeo/") {
			t.Errorf("Unexpected User-Agent: %s", got)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>Book</title></head><body>
<script>alert(1)</script>
<p>First paragraph.</p>
<p>Second paragraph.</p>
</body></html>`))
	}))
	defer server.Close()

	loader := NewLoader(model.HTTPConfig{})
	text, err := loader.Load(context.Background(), server.URL+"/book", 0)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !strings.Contains(text, "First paragraph.") || !strings.Contains(text, "Second paragraph.") {
		t.Errorf("Expected paragraph text, got %q", text)
	}
	if !strings.Contains(text, "\n\n") {
		t.Errorf("Expected paragraph break, got %q", text)
	}
	if strings.Contains(text, "alert") {
		t.Errorf("Expected script content to be dropped, got %q", text)
	}
	if strings.Contains(text, "Book") {
		t.Errorf("Expected head content to be dropped, got %q", text)
	}
}

func TestLoader_Load_RobotsDisallowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /\n"))
			return
		}
		t.Errorf("Unexpected fetch of %s", r.URL.Path)
	}))
	defer server.Close()

	loader := NewLoader(model.HTTPConfig{})
	_, err := loader.Load(context.Background(), server.URL+"/book", 0)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), "robots.txt") {
		t.Errorf("Expected robots.txt error, got %v", err)
	}
}

func TestLoader_Load_PlainTextURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Call me Ishmael."))
	}))
	defer server.Close()

	loader := NewLoader(model.HTTPConfig{})
	text, err := loader.Load(context.Background(), server.URL+"/book.txt", 0)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if text != "Call me Ishmael." {
		t.Errorf("Unexpected text: %q", text)
	}
}

func TestLoader_Load_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	loader := NewLoader(model.HTTPConfig{})
	_, err := loader.Load(context.Background(), server.URL+"/book", 0)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), "unexpected status 500") {
		t.Errorf("Expected status error, got %v", err)
	}
}

func TestHTMLToText_InlineSpacing(t *testing.T) {
	text, err := htmlToText("<p>He went to <b>Paris</b> today.</p>")
	if err != nil {
		t.Fatalf("htmlToText failed: %v", err)
	}
	if text != "He went to Paris today." {
		t.Errorf("Unexpected text: %q", text)
	}
}

func TestRobotsAgent(t *testing.T) {
	if got := robotsAgent("bookgeo/1.0 (+https://github.com/ppiankov/bookgeo)"); got != "bookgeo" {
		t.Errorf("Expected bookgeo, got %q", got)
	}
	if got := robotsAgent(""); got != "" {
		t.Errorf("Expected empty, got %q", got)
	}
}
