package googlefree

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipforge/internal/services"
)

func TestTranslateParsesNestedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("tl"); got != "en" {
			t.Errorf("tl = %q", got)
		}
		if got := r.URL.Query().Get("sl"); got != "auto" {
			t.Errorf("sl = %q", got)
		}
		w.Write([]byte(`[[["Hello ","Ciao ",null,null,1],["world.","mondo.",null,null,1]],null,"it"]`))
	}))
	defer server.Close()

	client := NewClient(Config{TranslateBaseURL: server.URL})
	out, err := client.Translate(context.Background(), "Ciao mondo.", "auto", "en")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if out != "Hello world." {
		t.Fatalf("out = %q", out)
	}
}

func TestTranslateServerErrorIsProviderUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(Config{TranslateBaseURL: server.URL})
	_, err := client.Translate(context.Background(), "testo", "it", "en")
	if !errors.Is(err, services.ErrProviderUnavailable) {
		t.Fatalf("expected provider unavailable, got %v", err)
	}
}

func TestTranslateRejectsUnknownTarget(t *testing.T) {
	client := NewClient(Config{})
	if _, err := client.Translate(context.Background(), "x", "auto", "elvish"); err == nil {
		t.Fatal("expected error for unknown target language")
	}
}

func TestSynthesizeSplitsLongText(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		q := r.URL.Query().Get("q")
		if len(q) > 200 {
			t.Errorf("request text exceeds limit: %d chars", len(q))
		}
		w.Write([]byte("MP3"))
	}))
	defer server.Close()

	client := NewClient(Config{SpeechBaseURL: server.URL})
	out := filepath.Join(t.TempDir(), "speech.mp3")
	text := strings.Repeat("A short sentence here. ", 20) // ~460 chars
	if err := client.Synthesize(context.Background(), text, "en", "", out); err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if requests < 2 {
		t.Fatalf("expected multiple chunked requests, got %d", requests)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != strings.Repeat("MP3", requests) {
		t.Fatalf("audio not concatenated in order: %q", data)
	}
}

func TestSynthesizeRequiresText(t *testing.T) {
	client := NewClient(Config{})
	if err := client.Synthesize(context.Background(), "  ", "en", "", "out.mp3"); err == nil {
		t.Fatal("expected error for empty text")
	}
}
