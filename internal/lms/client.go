package lms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/eduops/cohort-sync-api/pkg/config"
)

// RemoteEnrollment is one user's membership in a remote group.
type RemoteEnrollment struct {
	ID      int64  `json:"id"`
	UserID  int64  `json:"user_id"`
	GroupID int64  `json:"group_id"`
	Role    string `json:"role"`
	Limited bool   `json:"limited"`
}

// AssignmentOverride is a per-user or per-group exception to a default
// assignment deadline.
type AssignmentOverride struct {
	AssignmentID int64      `json:"assignment_id"`
	Title        string     `json:"title,omitempty"`
	DueAt        *time.Time `json:"due_at,omitempty"`
	UnlockAt     *time.Time `json:"unlock_at,omitempty"`
	LockAt       *time.Time `json:"lock_at,omitempty"`
	StudentIDs   []int64    `json:"student_ids,omitempty"`
	GroupID      *int64     `json:"group_id,omitempty"`
}

// Client is a thin adapter over the LMS REST API. All mutating calls are
// idempotent-safe to retry except CreateGroup, which callers must precede
// with a find check.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient constructs the LMS client.
func NewClient(cfg config.LMSConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

type createGroupRequest struct {
	Name string `json:"name"`
}

type idResponse struct {
	ID int64 `json:"id"`
}

// CreateGroup creates a section-like group in a remote course.
func (c *Client) CreateGroup(ctx context.Context, courseRemoteID int64, name string) (int64, error) {
	var resp idResponse
	path := fmt.Sprintf("/courses/%d/groups", courseRemoteID)
	if err := c.do(ctx, http.MethodPost, path, createGroupRequest{Name: name}, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

type enrollRequest struct {
	UserID  int64  `json:"user_id"`
	Role    string `json:"role"`
	Limited bool   `json:"limited"`
}

// EnrollUser adds a user to a remote group with the given role. Limited
// enrollments scope visibility without granting full section membership.
func (c *Client) EnrollUser(ctx context.Context, userRemoteID, groupRemoteID int64, role string, limited bool) (int64, error) {
	var resp idResponse
	path := fmt.Sprintf("/groups/%d/enrollments", groupRemoteID)
	if err := c.do(ctx, http.MethodPost, path, enrollRequest{UserID: userRemoteID, Role: role, Limited: limited}, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// UnenrollUser removes a remote enrollment.
func (c *Client) UnenrollUser(ctx context.Context, enrollmentRemoteID int64) error {
	path := fmt.Sprintf("/enrollments/%d", enrollmentRemoteID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// ListGroupEnrollments returns all memberships of a remote group.
func (c *Client) ListGroupEnrollments(ctx context.Context, groupRemoteID int64) ([]RemoteEnrollment, error) {
	var resp struct {
		Enrollments []RemoteEnrollment `json:"enrollments"`
	}
	path := fmt.Sprintf("/groups/%d/enrollments", groupRemoteID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Enrollments, nil
}

// ListUserEnrollments returns a user's memberships across a remote course.
func (c *Client) ListUserEnrollments(ctx context.Context, courseRemoteID, userRemoteID int64) ([]RemoteEnrollment, error) {
	var resp struct {
		Enrollments []RemoteEnrollment `json:"enrollments"`
	}
	path := fmt.Sprintf("/courses/%d/users/%d/enrollments", courseRemoteID, userRemoteID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Enrollments, nil
}

// ListUserOverrides returns the per-student assignment date overrides for a
// user within a course.
func (c *Client) ListUserOverrides(ctx context.Context, courseRemoteID, userRemoteID int64) ([]AssignmentOverride, error) {
	var resp struct {
		Overrides []AssignmentOverride `json:"overrides"`
	}
	path := fmt.Sprintf("/courses/%d/overrides?student_id=%d", courseRemoteID, userRemoteID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Overrides, nil
}

// ListGroupOverrides returns the group-scoped assignment date overrides.
func (c *Client) ListGroupOverrides(ctx context.Context, courseRemoteID, groupRemoteID int64) ([]AssignmentOverride, error) {
	var resp struct {
		Overrides []AssignmentOverride `json:"overrides"`
	}
	path := fmt.Sprintf("/courses/%d/overrides?group_id=%d", courseRemoteID, groupRemoteID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Overrides, nil
}

// CreateOverride creates an assignment date override within a course.
func (c *Client) CreateOverride(ctx context.Context, courseRemoteID int64, override AssignmentOverride) error {
	path := fmt.Sprintf("/courses/%d/overrides", courseRemoteID)
	return c.do(ctx, http.MethodPost, path, override, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("lms: marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("lms: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("lms: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("lms: %s %s: status %d: %s", method, path, resp.StatusCode, string(raw))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("lms: decode response: %w", err)
	}
	return nil
}
