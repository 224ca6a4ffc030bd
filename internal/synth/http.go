package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

const errorBodyLimit = 512

// HTTPDoer describes the HTTP client used by the HTTP engine.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPEngine posts text to a synthesis server that answers with WAV bytes.
type HTTPEngine struct {
	client   HTTPDoer
	endpoint string
}

type synthesisRequest struct {
	Text       string `json:"text"`
	Voice      string `json:"voice,omitempty"`
	SpeechRate int    `json:"speech_rate"`
	Pitch      int    `json:"pitch,omitempty"`
}

// NewHTTPEngine constructs an engine that posts to endpoint.
func NewHTTPEngine(client HTTPDoer, endpoint string) *HTTPEngine {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPEngine{client: client, endpoint: strings.TrimSpace(endpoint)}
}

// Name reports the server host.
func (e *HTTPEngine) Name() string {
	if parsed, err := url.Parse(e.endpoint); err == nil && parsed.Host != "" {
		return "http:" + parsed.Host
	}
	return "http"
}

// Synthesize requests audio for text and streams the response body to dest.
func (e *HTTPEngine) Synthesize(ctx context.Context, text string, voice VoiceConfig, dest string) error {
	payload, err := json.Marshal(synthesisRequest{
		Text:       text,
		Voice:      voice.Voice,
		SpeechRate: voice.SpeechRate,
		Pitch:      voice.Pitch,
	})
	if err != nil {
		return fmt.Errorf("encode synthesis request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("post synthesis request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return fmt.Errorf("synthesis server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	file, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		return fmt.Errorf("write audio: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close audio: %w", err)
	}
	return nil
}
