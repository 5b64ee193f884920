package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	langpkg "clipforge/internal/language"
	"clipforge/internal/services"
	"clipforge/internal/transcript"
)

const (
	// DefaultBaseURL is the hosted API endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"

	DefaultTranscribeModel = "whisper-1"
	DefaultChatModel       = "gpt-4o-mini"
	DefaultSpeechModel     = "tts-1"
	DefaultVoice           = "alloy"

	defaultTimeout = 120 * time.Second
)

// Config holds API credentials and model selection.
type Config struct {
	APIKey          string
	BaseURL         string
	TranscribeModel string
	ChatModel       string
	SpeechModel     string
	Timeout         time.Duration
}

// Client is the paid provider for transcription, translation, and speech.
// Without an API key every call fails as provider-unavailable, which lets it
// sit harmlessly at the end of a fallback chain.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a client with the given configuration.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.TranscribeModel == "" {
		cfg.TranscribeModel = DefaultTranscribeModel
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = DefaultSpeechModel
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
func (c *Client) Name() string { return "openai" }

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return strings.TrimSpace(c.cfg.APIKey) != "" }

func (c *Client) requireKey() error {
	if !c.Configured() {
		return fmt.Errorf("%w: openai: no API key configured", services.ErrProviderUnavailable)
	}
	return nil
}

type transcribeSegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type transcribeResponse struct {
	Text     string              `json:"text"`
	Segments []transcribeSegment `json:"segments"`
}

// Transcribe uploads the audio file and returns timed segments.
func (c *Client) Transcribe(ctx context.Context, audioPath, language string) ([]transcript.Segment, error) {
	if err := c.requireKey(); err != nil {
		return nil, err
	}

	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: open audio: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("transcribe: build form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("transcribe: read audio: %w", err)
	}
	_ = writer.WriteField("model", c.cfg.TranscribeModel)
	_ = writer.WriteField("response_format", "verbose_json")
	if lang := langpkg.ToISO2(language); lang != "" {
		_ = writer.WriteField("language", lang)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("transcribe: finish form: %w", err)
	}

	data, err := c.post(ctx, "/audio/transcriptions", writer.FormDataContentType(), &body)
	if err != nil {
		return nil, err
	}

	var parsed transcribeResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("%w: openai: decode transcription: %v", services.ErrProviderUnavailable, err)
	}

	segments := make([]transcript.Segment, 0, len(parsed.Segments))
	for _, seg := range parsed.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, transcript.Segment{Start: seg.Start, End: seg.End, Text: text})
	}
	if len(segments) == 0 && strings.TrimSpace(parsed.Text) != "" {
		segments = append(segments, transcript.Segment{Text: strings.TrimSpace(parsed.Text)})
	}
	transcript.Reindex(segments)
	return segments, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Translate asks the chat model for a translation, returning the text only.
func (c *Client) Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error) {
	if err := c.requireKey(); err != nil {
		return "", err
	}

	target := langpkg.DisplayName(targetLanguage)
	prompt := fmt.Sprintf("Translate the following text to %s. Reply with the translation only, no commentary.", target)
	if source := langpkg.ToISO2(sourceLanguage); source != "" {
		prompt = fmt.Sprintf("Translate the following %s text to %s. Reply with the translation only, no commentary.",
			langpkg.DisplayName(source), target)
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.cfg.ChatModel,
		Messages: []chatMessage{
			{Role: "system", Content: prompt},
			{Role: "user", Content: text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("translate: encode request: %w", err)
	}

	data, err := c.post(ctx, "/chat/completions", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil || len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: openai: decode translation", services.ErrProviderUnavailable)
	}
	out := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if out == "" {
		return "", fmt.Errorf("%w: openai: empty translation", services.ErrProviderUnavailable)
	}
	return out, nil
}

type speechRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
	Voice string `json:"voice"`
}

// Synthesize renders text as speech and writes the audio to outputPath.
func (c *Client) Synthesize(ctx context.Context, text, language, voice, outputPath string) error {
	_ = language // the speech models infer language from the input text

	if err := c.requireKey(); err != nil {
		return err
	}
	if strings.TrimSpace(voice) == "" {
		voice = DefaultVoice
	}

	payload, err := json.Marshal(speechRequest{
		Model: c.cfg.SpeechModel,
		Input: text,
		Voice: voice,
	})
	if err != nil {
		return fmt.Errorf("synthesize: encode request: %w", err)
	}

	data, err := c.post(ctx, "/audio/speech", "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("synthesize: write audio: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+path, body)
	if err != nil {
		return nil, fmt.Errorf("openai: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: openai: %v", services.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: openai: read response: %v", services.ErrProviderUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: openai: status %d: %s",
			services.ErrProviderUnavailable, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}
