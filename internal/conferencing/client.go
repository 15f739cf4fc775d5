package conferencing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/eduops/cohort-sync-api/internal/models"
	"github.com/eduops/cohort-sync-api/pkg/config"
)

// Client registers participants with the video-conferencing provider so
// session invitations reach them under their current name and email.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient constructs the conferencing client.
func NewClient(cfg config.ConferencingConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

type registrantRequest struct {
	ExternalID string `json:"external_id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
}

// RegisterParticipant creates or refreshes the provider-side registrant.
// The endpoint upserts by external id, so repeated calls are safe.
func (c *Client) RegisterParticipant(ctx context.Context, snapshot models.ParticipantSnapshot) error {
	payload, err := json.Marshal(registrantRequest{
		ExternalID: snapshot.ParticipantID,
		FullName:   snapshot.FullName,
		Email:      snapshot.Email,
	})
	if err != nil {
		return fmt.Errorf("conferencing: marshal registrant: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/registrants", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("conferencing: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("conferencing: register %s: %w", snapshot.ParticipantID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("conferencing: register %s: status %d: %s", snapshot.ParticipantID, resp.StatusCode, string(raw))
	}
	return nil
}
