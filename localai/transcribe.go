// Package localai holds the HTTP clients for the two local AI
// microservices: speech-to-text and ticket-text classification. Both are
// plain request/response collaborators; the bot treats any failure here as
// "no suggestion" and falls back, never as a user-visible crash.
package localai

import (
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
)

type Transcriber struct {
	BaseURL string
	HTTP    *http.Client
}

func NewTranscriber(baseURL string) *Transcriber {
	return &Transcriber{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 120 * time.Second},
	}
}

type transcribeResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Transcribe uploads a voice recording and returns the recognized text.
// lang is a hint ("uk", "ru") the service may ignore.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath, lang string) (string, error) {
	audioPath = strings.TrimSpace(audioPath)
	if audioPath == "" {
		return "", fmt.Errorf("missing audio path")
	}

	f, err := os.Open(audioPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		defer pw.Close()
		defer mw.Close()

		if lang != "" {
			_ = mw.WriteField("language", lang)
		}
		part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, f); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL+"/transcribe", pr)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := t.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("speech service http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out transcribeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("speech service: decode response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("speech service: %s", out.Error)
	}
	text := strings.TrimSpace(out.Text)
	if text == "" {
		return "", fmt.Errorf("speech service: empty transcript")
	}
	return text, nil
}
