package localai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Suggestion is a department/priority hint from the classification service.
// Values are advisory; the rule-based classifier stays the source of truth
// and the bot only overlays fields it can map onto known enum values.
type Suggestion struct {
	Department string  `json:"department"`
	Priority   string  `json:"priority"`
	Confidence float64 `json:"confidence"`
}

type Classifier struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClassifier(baseURL string) *Classifier {
	return &Classifier{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

type classifyRequest struct {
	Text string `json:"text"`
}

// Suggest asks the local classification service for a hint on the given
// ticket text.
func (c *Classifier) Suggest(ctx context.Context, text string) (Suggestion, error) {
	b, err := json.Marshal(classifyRequest{Text: text})
	if err != nil {
		return Suggestion{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/classify", bytes.NewReader(b))
	if err != nil {
		return Suggestion{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Suggestion{}, err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Suggestion{}, fmt.Errorf("classifier service http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out Suggestion
	if err := json.Unmarshal(raw, &out); err != nil {
		return Suggestion{}, fmt.Errorf("classifier service: decode response: %w", err)
	}
	return out, nil
}
