// Package helpdesk submits confirmed tickets to the external helpdesk API.
// The numeric group/priority mapping is a fixed external contract; changing
// it breaks the receiving side silently.
package helpdesk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/SvetlanaKrugovykh/ai-dialog/ticket"
)

type Client struct {
	BaseURL  string
	APIToken string
	HTTP     *http.Client
}

func New(baseURL, apiToken string) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		APIToken: apiToken,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
	}
}

// GroupID maps a department name onto the helpdesk group id. Unknown
// departments land in IT.
func GroupID(department string) int {
	switch strings.ToLower(strings.TrimSpace(department)) {
	case "it":
		return 1
	case "hr":
		return 2
	case "finance":
		return 3
	case "support":
		return 4
	default:
		return 1
	}
}

// PriorityID maps a priority onto the helpdesk priority id by substring
// match, so both the enum names and their localized display forms resolve.
// Unknown values default to Medium.
func PriorityID(priority string) int {
	p := strings.ToLower(strings.TrimSpace(priority))
	switch {
	case strings.Contains(p, "critical"), strings.Contains(p, "критичн"), strings.Contains(p, "критическ"):
		return 4
	case strings.Contains(p, "high"), strings.Contains(p, "висок"), strings.Contains(p, "высок"):
		return 3
	case strings.Contains(p, "low"), strings.Contains(p, "низьк"), strings.Contains(p, "низк"):
		return 1
	default:
		return 2
	}
}

type submitRequest struct {
	ExternalID  string `json:"external_id"`
	GroupID     int    `json:"group_id"`
	PriorityID  int    `json:"priority_id"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Requester   string `json:"requester"`
	Language    string `json:"language,omitempty"`
	// Body carries the rendered display text verbatim, so the helpdesk side
	// sees exactly what the user confirmed.
	Body string `json:"body,omitempty"`
}

type submitResponse struct {
	OK    bool   `json:"ok"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

// Submit sends the structured fields plus the rendered display text. The
// ticket is immutable from the caller's point of view once this returns nil.
func (c *Client) Submit(ctx context.Context, t ticket.Ticket, display string) error {
	body := submitRequest{
		ExternalID:  t.ID,
		GroupID:     GroupID(string(t.Department)),
		PriorityID:  PriorityID(string(t.Priority)),
		Subject:     t.Title,
		Description: t.Description,
		Requester:   t.Requester,
		Language:    string(t.Language),
		Body:        display,
	}
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/tickets", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIToken)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("helpdesk http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out submitResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("helpdesk: decode response: %w", err)
	}
	if !out.OK {
		return fmt.Errorf("helpdesk: submit rejected: %s", out.Error)
	}
	return nil
}
