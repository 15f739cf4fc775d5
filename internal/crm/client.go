package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/eduops/cohort-sync-api/internal/models"
	"github.com/eduops/cohort-sync-api/pkg/config"
)

// Client pulls participant rosters from the CRM of record. The CRM has no
// change feed, so the full flattened roster is fetched on every sync and
// change detection happens locally by diffing.
type Client struct {
	baseURL  string
	token    string
	pageSize int
	http     *http.Client
}

// NewClient constructs the CRM client.
func NewClient(cfg config.CRMConfig) *Client {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		token:    cfg.Token,
		pageSize: pageSize,
		http:     &http.Client{Timeout: cfg.Timeout},
	}
}

type groupRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type participantRecord struct {
	ID            string                      `json:"id"`
	FullName      string                      `json:"full_name"`
	Email         string                      `json:"email"`
	ContactID     int64                       `json:"contact_id"`
	LMSUserID     int64                       `json:"lms_user_id"`
	Role          string                      `json:"role"`
	Status        string                      `json:"status"`
	ScheduleGroup *groupRef                   `json:"schedule_group"`
	CohortGroup   *groupRef                   `json:"cohort_group"`
	Caseloads     []models.CaseloadAssignment `json:"caseloads"`
}

type rosterPage struct {
	Participants []participantRecord `json:"participants"`
	NextPage     *int                `json:"next_page"`
}

// ListParticipants returns the authoritative current state of every
// participant in a program. Absence from this list means "no longer
// tracked"; status transitions are explicit fields, never inferred.
func (c *Client) ListParticipants(ctx context.Context, programID string) ([]models.ParticipantSnapshot, error) {
	var roster []models.ParticipantSnapshot

	page := 1
	for {
		path := fmt.Sprintf("/programs/%s/participants?page=%d&per_page=%d", programID, page, c.pageSize)
		var payload rosterPage
		if err := c.get(ctx, path, &payload); err != nil {
			return nil, err
		}

		for _, record := range payload.Participants {
			roster = append(roster, flatten(programID, record))
		}

		if payload.NextPage == nil {
			return roster, nil
		}
		page = *payload.NextPage
	}
}

func flatten(programID string, record participantRecord) models.ParticipantSnapshot {
	snapshot := models.ParticipantSnapshot{
		ParticipantID: record.ID,
		ProgramID:     programID,
		FullName:      record.FullName,
		Email:         record.Email,
		CRMContactID:  record.ContactID,
		RemoteUserID:  record.LMSUserID,
		Role:          models.ParticipantRole(strings.ToUpper(record.Role)),
		Status:        models.ParticipantStatus(strings.ToUpper(record.Status)),
		Caseloads:     record.Caseloads,
	}
	if record.ScheduleGroup != nil {
		snapshot.ScheduleGroupID = record.ScheduleGroup.ID
		snapshot.ScheduleGroupName = record.ScheduleGroup.Name
	}
	if record.CohortGroup != nil {
		snapshot.CohortGroupID = &record.CohortGroup.ID
		snapshot.CohortGroupName = &record.CohortGroup.Name
	}
	return snapshot
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("crm: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("crm: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("crm: GET %s: status %d: %s", path, resp.StatusCode, string(raw))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("crm: decode response: %w", err)
	}
	return nil
}
