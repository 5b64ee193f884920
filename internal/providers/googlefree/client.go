package googlefree

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	langpkg "clipforge/internal/language"
	"clipforge/internal/services"
	"clipforge/internal/textchunk"
)

const (
	// DefaultTranslateBaseURL is the unauthenticated translation endpoint.
	DefaultTranslateBaseURL = "https://translate.googleapis.com/translate_a/single"
	// DefaultSpeechBaseURL is the unauthenticated text-to-speech endpoint.
	DefaultSpeechBaseURL = "https://translate.google.com/translate_tts"

	// speechMaxChars is the endpoint's per-request text limit.
	speechMaxChars = 200

	defaultTimeout = 30 * time.Second
)

// Config holds the endpoint URLs, overridable for tests.
type Config struct {
	TranslateBaseURL string
	SpeechBaseURL    string
	Timeout          time.Duration
}

// Client is the free-tier translation and speech provider. It talks to the
// public Google Translate endpoints without credentials, so any failure is
// reported as provider-unavailable and the caller falls back.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a client with the given configuration.
func NewClient(cfg Config) *Client {
	if cfg.TranslateBaseURL == "" {
		cfg.TranslateBaseURL = DefaultTranslateBaseURL
	}
	if cfg.SpeechBaseURL == "" {
		cfg.SpeechBaseURL = DefaultSpeechBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// WithHTTPClient sets a custom HTTP client (for testing).
func (c *Client) WithHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Name identifies the provider in logs and fallback errors.
func (c *Client) Name() string { return "google-free" }

// Translate translates one chunk of text. The source language may be "auto".
func (c *Client) Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error) {
	source := langpkg.ToISO2(sourceLanguage)
	if source == "" {
		source = langpkg.Auto
	}
	target := langpkg.ToISO2(targetLanguage)
	if target == "" {
		return "", fmt.Errorf("translate: target language %q not recognized", targetLanguage)
	}

	query := url.Values{}
	query.Set("client", "gtx")
	query.Set("sl", source)
	query.Set("tl", target)
	query.Set("dt", "t")
	query.Set("q", text)

	body, err := c.get(ctx, c.cfg.TranslateBaseURL+"?"+query.Encode())
	if err != nil {
		return "", err
	}
	return parseTranslation(body)
}

// parseTranslation extracts the translated text from the endpoint's nested
// array payload: [[["translated","original",...],...],...].
func parseTranslation(body []byte) (string, error) {
	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil || len(payload) == 0 {
		return "", fmt.Errorf("%w: google-free: unexpected translation payload", services.ErrProviderUnavailable)
	}
	var sentences [][]json.RawMessage
	if err := json.Unmarshal(payload[0], &sentences); err != nil {
		return "", fmt.Errorf("%w: google-free: unexpected translation payload", services.ErrProviderUnavailable)
	}

	var b strings.Builder
	for _, sentence := range sentences {
		if len(sentence) == 0 {
			continue
		}
		var part string
		if err := json.Unmarshal(sentence[0], &part); err != nil {
			continue
		}
		b.WriteString(part)
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("%w: google-free: empty translation", services.ErrProviderUnavailable)
	}
	return out, nil
}

// Synthesize renders text as MP3 speech. The endpoint caps request size, so
// long text is split on sentence boundaries and the audio concatenated.
func (c *Client) Synthesize(ctx context.Context, text, language, voice, outputPath string) error {
	_ = voice // the free endpoint has a single voice per language

	target := langpkg.ToISO2(language)
	if target == "" {
		return fmt.Errorf("synthesize: language %q not recognized", language)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("synthesize: text required")
	}

	var audio []byte
	for _, chunk := range textchunk.Split(text, speechMaxChars) {
		query := url.Values{}
		query.Set("ie", "UTF-8")
		query.Set("client", "tw-ob")
		query.Set("tl", target)
		query.Set("q", chunk)

		body, err := c.get(ctx, c.cfg.SpeechBaseURL+"?"+query.Encode())
		if err != nil {
			return err
		}
		audio = append(audio, body...)
	}

	if err := os.WriteFile(outputPath, audio, 0o644); err != nil {
		return fmt.Errorf("synthesize: write audio: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("google-free: build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: google-free: %v", services.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: google-free: read response: %v", services.ErrProviderUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: google-free: status %d: %s",
			services.ErrProviderUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
