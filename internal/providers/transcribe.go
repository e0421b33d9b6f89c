package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

const defaultTranscribeModel = "whisper-1"

// WhisperTranscriber implements Transcriber against the OpenAI audio
// transcription endpoint. Voice notes from patients are Spanish; the
// language hint keeps short clips from being misdetected.
type WhisperTranscriber struct {
	apiKey   string
	apiBase  string
	model    string
	language string
	client   *http.Client
}

// NewWhisperTranscriber creates a transcriber sharing the provider's API
// credentials. Empty model defaults to whisper-1.
func NewWhisperTranscriber(apiKey, apiBase, model, language string) *WhisperTranscriber {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	if model == "" {
		model = defaultTranscribeModel
	}
	return &WhisperTranscriber{
		apiKey:   apiKey,
		apiBase:  strings.TrimRight(apiBase, "/"),
		model:    model,
		language: language,
		client:   &http.Client{Timeout: requestTimeout},
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the audio bytes as multipart form data and returns the
// transcript text.
func (t *WhisperTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fw, err := w.CreateFormFile("file", "voice"+extensionFor(mimeType))
	if err != nil {
		return "", fmt.Errorf("transcribe: create form file: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return "", fmt.Errorf("transcribe: write audio bytes: %w", err)
	}
	if err := w.WriteField("model", t.model); err != nil {
		return "", fmt.Errorf("transcribe: write model field: %w", err)
	}
	if t.language != "" {
		if err := w.WriteField("language", t.language); err != nil {
			return "", fmt.Errorf("transcribe: write language field: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("transcribe: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.apiBase+"/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("transcribe: build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcribe: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("transcribe: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcribe: upstream returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result transcriptionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("transcribe: parse response JSON: %w", err)
	}
	return strings.TrimSpace(result.Text), nil
}

// extensionFor picks a filename extension the API recognizes. WhatsApp voice
// notes are ogg/opus.
func extensionFor(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "ogg"), strings.Contains(mimeType, "opus"):
		return ".ogg"
	case strings.Contains(mimeType, "mpeg"), strings.Contains(mimeType, "mp3"):
		return ".mp3"
	case strings.Contains(mimeType, "mp4"), strings.Contains(mimeType, "m4a"):
		return ".m4a"
	case strings.Contains(mimeType, "wav"):
		return ".wav"
	default:
		return ".ogg"
	}
}
