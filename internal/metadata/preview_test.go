package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestResolveGateway(t *testing.T) {
	p := NewPreviewer(1000, 0, "https://ipfs.io/", zap.NewNop())

	tests := []struct {
		input    string
		expected string
	}{
		{"ipfs://QmHash/0.json", "https://ipfs.io/ipfs/QmHash/0.json"},
		{"https://example.com/meta.json", "https://example.com/meta.json"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := p.resolve(tt.input); got != tt.expected {
				t.Errorf("resolve(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFetchJSONMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"Dusk #7","description":"Seventh of the dusk series","image":"ipfs://QmImg/7.png"}`))
	}))
	defer srv.Close()

	p := NewPreviewer(2000, 0, "https://gw.example", zap.NewNop())
	preview, err := p.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if preview.Title != "Dusk #7" {
		t.Errorf("title = %q", preview.Title)
	}
	if preview.Description != "Seventh of the dusk series" {
		t.Errorf("description = %q", preview.Description)
	}
	if preview.Image != "https://gw.example/ipfs/QmImg/7.png" {
		t.Errorf("image = %q", preview.Image)
	}
}

func TestFetchHTMLOpenGraph(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head>
			<title>Fallback title</title>
			<meta property="og:title" content="Dusk Gallery">
			<meta property="og:description" content="A collection page">
			<meta property="og:image" content="https://cdn.example/cover.png">
		</head><body></body></html>`))
	}))
	defer srv.Close()

	p := NewPreviewer(2000, 0, "https://gw.example", zap.NewNop())
	preview, err := p.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if preview.Title != "Dusk Gallery" {
		t.Errorf("title = %q", preview.Title)
	}
	if preview.Image != "https://cdn.example/cover.png" {
		t.Errorf("image = %q", preview.Image)
	}
}

func TestFetchHTMLTitleFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Plain Page</title></head><body></body></html>`))
	}))
	defer srv.Close()

	p := NewPreviewer(2000, 0, "https://gw.example", zap.NewNop())
	preview, err := p.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if preview.Title != "Plain Page" {
		t.Errorf("title = %q", preview.Title)
	}
}

func TestFetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewPreviewer(2000, 0, "https://gw.example", zap.NewNop())
	if _, err := p.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for HTTP 404")
	}
}
